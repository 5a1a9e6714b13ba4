package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lovenest/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// loadConcurrency bounds the parallel fetches of Load
const loadConcurrency = 4

// Load fetches every collection for the signed-in user. A failed fetch
// keeps whatever the collection held before; all failures are joined
// into the returned error.
func (s *Store) Load(ctx context.Context) error {
	_, gen, err := s.begin(ctx)
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	fail := func(name string, err error) {
		log.Error().Err(err).Str("collection", name).Msg("Failed to load collection")
		mu.Lock()
		errs = append(errs, fmt.Errorf("load %s: %w", name, err))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	g.Go(func() error {
		loadInto(gctx, s, gen, &s.moods, s.gw.ListMoods, fail)
		return nil
	})
	g.Go(func() error {
		loadInto(gctx, s, gen, &s.wishes, s.gw.ListWishes, fail)
		return nil
	})
	g.Go(func() error {
		loadInto(gctx, s, gen, &s.coupons, s.gw.ListCoupons, fail)
		return nil
	})
	g.Go(func() error {
		loadInto(gctx, s, gen, &s.milestones, s.gw.ListMilestones, fail)
		return nil
	})
	g.Go(func() error {
		loadFeed(gctx, s, gen, &s.notes, s.gw.ListNotes, true, fail)
		return nil
	})
	g.Go(func() error {
		loadFeed(gctx, s, gen, &s.messages, s.gw.ListMessages, false, fail)
		return nil
	})
	g.Go(func() error {
		loadInto(gctx, s, gen, &s.settings, s.gw.ListSettings, fail)
		return nil
	})
	g.Go(func() error {
		loadInto(gctx, s, gen, &s.folders, func(ctx context.Context) ([]models.Folder, error) {
			return s.gw.ListFolders(ctx, nil)
		}, fail)
		return nil
	})
	_ = g.Wait()

	if len(errs) > 0 {
		s.notify(Notice{Level: NoticeError, Message: "Some data could not be loaded"})
		return errors.Join(errs...)
	}
	return nil
}

// loadInto replaces c with the fetched rows. Rows for a user who has
// since signed out are dropped.
func loadInto[T models.Entity](
	ctx context.Context,
	s *Store,
	gen uint64,
	c *collection[T],
	fetch func(context.Context) ([]T, error),
	fail func(string, error),
) {
	items, err := fetch(ctx)
	if err != nil {
		fail(c.name, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	commit(s, gen, c, func([]T) []T { return dedupe(items) })
}

// loadFeed is loadInto for collections that live updates and local sends
// touch while the fetch is in flight. Entries that arrived meanwhile or
// still carry a local id are kept, ahead of the fetched rows when newest
// is true and behind them otherwise. Entries removed meanwhile stay removed.
func loadFeed[T models.Entity](
	ctx context.Context,
	s *Store,
	gen uint64,
	c *collection[T],
	fetch func(context.Context) ([]T, error),
	newest bool,
	fail func(string, error),
) {
	s.mu.Lock()
	before := make(map[string]struct{}, len(c.items))
	for _, v := range c.items {
		before[v.EntityID()] = struct{}{}
	}
	s.mu.Unlock()

	items, err := fetch(ctx)
	if err != nil {
		fail(c.name, err)
		return
	}
	commit(s, gen, c, func(current []T) []T {
		present := make(map[string]struct{}, len(current))
		for _, v := range current {
			present[v.EntityID()] = struct{}{}
		}
		fetched := make([]T, 0, len(items))
		seen := make(map[string]struct{}, len(items))
		for _, v := range dedupe(items) {
			id := v.EntityID()
			seen[id] = struct{}{}
			_, had := before[id]
			_, has := present[id]
			if had && !has {
				continue
			}
			fetched = append(fetched, v)
		}

		var extra []T
		for _, v := range current {
			id := v.EntityID()
			if _, ok := seen[id]; ok {
				continue
			}
			if _, had := before[id]; had && !models.ID(id).IsLocal() {
				continue
			}
			extra = append(extra, v)
		}
		out := make([]T, 0, len(extra)+len(fetched))
		if newest {
			return append(append(out, extra...), fetched...)
		}
		return append(append(out, fetched...), extra...)
	})
}
