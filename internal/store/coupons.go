package store

import (
	"context"
	"strings"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
)

// Coupons returns the coupon book
func (s *Store) Coupons() []models.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coupons.snapshot()
}

// AddCoupon stores a coupon and appends it once the backend accepted it
func (s *Store) AddCoupon(ctx context.Context, title string) (models.Coupon, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Coupon{}, apperr.Invalid("title", "title is required")
	}
	_, gen, err := s.begin(ctx)
	if err != nil {
		return models.Coupon{}, err
	}

	rec, err := s.gw.CreateCoupon(ctx, title)
	if err != nil {
		s.notify(Notice{Level: NoticeError, Message: "Could not add the coupon"})
		return models.Coupon{}, err
	}
	commit(s, gen, &s.coupons, func(items []models.Coupon) []models.Coupon {
		return upsert(items, rec)
	})
	return rec, nil
}

// RedeemCoupon marks a coupon as used. Redemption is one-way, so a coupon
// that is already redeemed is left alone.
func (s *Store) RedeemCoupon(ctx context.Context, id string) error {
	if _, _, err := s.begin(ctx); err != nil {
		return err
	}

	var (
		found bool
		prior bool
	)
	setRedeemed := func(c *models.Coupon, v bool) { c.Redeemed = v }
	mutate(ctx, s, mutation[models.Coupon, struct{}]{
		op:   "redeem coupon",
		id:   id,
		coll: &s.coupons,
		apply: func(items []models.Coupon) ([]models.Coupon, bool) {
			i := indexOf(items, id)
			if i < 0 {
				return nil, false
			}
			found, prior = true, items[i].Redeemed
			if prior {
				return nil, false
			}
			items[i].Redeemed = true
			return items, true
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gw.RedeemCoupon(ctx, id)
		},
		rollback: func(current, _ []models.Coupon) []models.Coupon {
			return setFlag(id, setRedeemed, prior)(current)
		},
		failure: "Could not redeem the coupon",
	})
	if !found {
		return ErrNotFound
	}
	return nil
}

// DeleteCoupon removes a coupon optimistically. A remote failure restores
// the whole book as it was.
func (s *Store) DeleteCoupon(ctx context.Context, id string) error {
	if _, _, err := s.begin(ctx); err != nil {
		return err
	}

	found := false
	mutate(ctx, s, mutation[models.Coupon, struct{}]{
		op:   "delete coupon",
		id:   id,
		coll: &s.coupons,
		apply: func(items []models.Coupon) ([]models.Coupon, bool) {
			if indexOf(items, id) < 0 {
				return nil, false
			}
			found = true
			return without(items, id), true
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gw.DeleteCoupon(ctx, id)
		},
		failure: "Could not delete the coupon",
	})
	if !found {
		return ErrNotFound
	}
	return nil
}
