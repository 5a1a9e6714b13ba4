package store

import (
	"context"
	"errors"
	"strings"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
)

// ErrNotFound is returned when an operation names an id the store does not hold
var ErrNotFound = errors.New("not found")

// Wishes returns the wish list, newest first
func (s *Store) Wishes() []models.WishItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishes.snapshot()
}

// AddWish stores a new wish and prepends it once the backend accepted it
func (s *Store) AddWish(ctx context.Context, text string, category models.WishCategory, description *string) (models.WishItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.WishItem{}, apperr.Invalid("text", "text is required")
	}
	_, gen, err := s.begin(ctx)
	if err != nil {
		return models.WishItem{}, err
	}

	rec, err := s.gw.CreateWish(ctx, models.WishItem{
		Text:        text,
		Category:    models.NormalizeWishCategory(string(category)),
		Description: description,
	})
	if err != nil {
		s.notify(Notice{Level: NoticeError, Message: "Could not add the wish"})
		return models.WishItem{}, err
	}
	commit(s, gen, &s.wishes, func(items []models.WishItem) []models.WishItem {
		if indexOf(items, rec.EntityID()) >= 0 {
			return items
		}
		return prepend(items, rec)
	})
	return rec, nil
}

// ToggleWish flips the completed flag. A remote failure restores the
// value the flag had before this call.
func (s *Store) ToggleWish(ctx context.Context, id string) error {
	if _, _, err := s.begin(ctx); err != nil {
		return err
	}

	var (
		found bool
		prior bool
	)
	setCompleted := func(w *models.WishItem, v bool) { w.Completed = v }
	mutate(ctx, s, mutation[models.WishItem, struct{}]{
		op:   "toggle wish",
		id:   id,
		coll: &s.wishes,
		apply: func(items []models.WishItem) ([]models.WishItem, bool) {
			i := indexOf(items, id)
			if i < 0 {
				return nil, false
			}
			found, prior = true, items[i].Completed
			items[i].Completed = !prior
			return items, true
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gw.SetWishCompleted(ctx, id, !prior)
		},
		rollback: func(current, _ []models.WishItem) []models.WishItem {
			return setFlag(id, setCompleted, prior)(current)
		},
		failure: "Could not update the wish",
	})
	if !found {
		return ErrNotFound
	}
	return nil
}

// DeleteWish removes a wish optimistically. A remote failure restores the
// whole list as it was, order included.
func (s *Store) DeleteWish(ctx context.Context, id string) error {
	if _, _, err := s.begin(ctx); err != nil {
		return err
	}

	found := false
	mutate(ctx, s, mutation[models.WishItem, struct{}]{
		op:   "delete wish",
		id:   id,
		coll: &s.wishes,
		apply: func(items []models.WishItem) ([]models.WishItem, bool) {
			if indexOf(items, id) < 0 {
				return nil, false
			}
			found = true
			return without(items, id), true
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gw.DeleteWish(ctx, id)
		},
		failure: "Could not delete the wish",
	})
	if !found {
		return ErrNotFound
	}
	return nil
}
