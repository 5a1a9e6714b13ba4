package store

import (
	"context"

	"lovenest/internal/apperr"
	"lovenest/internal/models"

	"github.com/rs/zerolog/log"
)

// mutation is a three-phase change to one collection: snapshot and apply
// locally, call the backend, then confirm or roll back.
type mutation[T models.Entity, R any] struct {
	op   string
	id   string
	coll *collection[T]

	// apply runs under the store lock on a private copy of the items and
	// returns false to abort without calling the backend
	apply func(items []T) ([]T, bool)

	remote func(ctx context.Context) (R, error)

	// confirm reconciles the stored result; nil keeps the optimistic state
	confirm func(items []T, result R) []T

	// rollback undoes apply; nil restores the snapshot verbatim
	rollback func(current, snapshot []T) []T

	// failure is the toast shown when the backend rejects the change
	failure string
}

type appliedKey struct{}

// WithApplied returns a context whose optimistic mutations call fn once the
// local change is in place, before the backend is asked
func WithApplied(ctx context.Context, fn func()) context.Context {
	return context.WithValue(ctx, appliedKey{}, fn)
}

func markApplied(ctx context.Context) {
	if fn, ok := ctx.Value(appliedKey{}).(func()); ok {
		fn()
	}
}

// mutate runs m. A failed backend call is rolled back, logged and turned
// into a notice; it is not returned. Results that arrive after the
// identity changed are dropped without touching state.
func mutate[T models.Entity, R any](ctx context.Context, s *Store, m mutation[T, R]) (R, bool) {
	var zero R

	s.mu.Lock()
	gen := s.generation
	snapshot := m.coll.snapshot()
	next, ok := m.apply(m.coll.snapshot())
	if !ok {
		s.mu.Unlock()
		return zero, false
	}
	m.coll.set(next)
	s.mu.Unlock()
	s.changed(m.coll.name)
	markApplied(ctx)

	result, err := m.remote(ctx)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		log.Debug().Str("op", m.op).Str("id", m.id).Msg("Discarding result from a previous session")
		return zero, false
	}
	current := m.coll.snapshot()
	switch {
	case err != nil && m.rollback != nil:
		m.coll.set(m.rollback(current, snapshot))
	case err != nil:
		m.coll.set(snapshot)
	case m.confirm != nil:
		m.coll.set(m.confirm(current, result))
	}
	s.mu.Unlock()

	if err != nil {
		log.Error().
			Err(err).
			Str("collection", m.coll.name).
			Str("op", m.op).
			Str("id", m.id).
			Msg("Remote change failed, rolled back")
		s.changed(m.coll.name)
		s.notify(Notice{Level: NoticeError, Message: m.failure})
		return zero, false
	}
	if m.confirm != nil {
		s.changed(m.coll.name)
	}
	return result, true
}

// commit applies fn to c once a non-optimistic backend call succeeded.
// It reports false when the identity changed in the meantime.
func commit[T models.Entity](s *Store, gen uint64, c *collection[T], fn func(items []T) []T) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	c.set(fn(c.snapshot()))
	s.mu.Unlock()
	s.changed(c.name)
	return true
}

// begin renews an expiring session, then captures the current identity
// and generation for a mutation
func (s *Store) begin(ctx context.Context) (models.Identity, uint64, error) {
	if err := s.ensureSession(ctx); err != nil {
		return models.Identity{}, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return models.Identity{}, 0, apperr.Auth("", "login required", nil)
	}
	return s.session.User, s.generation, nil
}

// setFlag returns an apply/rollback step that sets a boolean field on the
// entry with id
func setFlag[T models.Entity](id string, set func(*T, bool), value bool) func(items []T) []T {
	return func(items []T) []T {
		if i := indexOf(items, id); i >= 0 {
			set(&items[i], value)
		}
		return items
	}
}
