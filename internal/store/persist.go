package store

import (
	"lovenest/internal/cache"
	"lovenest/internal/models"

	"github.com/rs/zerolog/log"
)

// Shown until the couple adds their own
var (
	starterWishes = []models.WishItem{
		{ID: "1", Text: "See the northern lights", Category: models.WishTravel},
		{ID: "2", Text: "Cook homemade pasta together", Category: models.WishFood},
	}
	starterCoupons = []models.Coupon{
		{ID: "1", Title: "Voucher for a 15 minute massage"},
		{ID: "2", Title: "Voucher for picking the movie"},
		{ID: "3", Title: "Voucher for a romantic dinner"},
	}
)

// restore seeds the store from the cache at construction
func (s *Store) restore() {
	var snap cache.Snapshot
	if s.cache != nil {
		var err error
		snap, err = s.cache.Load()
		if err != nil {
			log.Error().Err(err).Msg("Failed to load local cache, starting empty")
			snap = cache.Snapshot{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Theme == models.ThemeDark || snap.Theme == models.ThemeLight {
		s.theme = snap.Theme
	}
	s.session = snap.Session
	if snap.Wishes != nil {
		s.wishes.set(snap.Wishes)
	} else {
		s.wishes.set(append([]models.WishItem(nil), starterWishes...))
	}
	if snap.Coupons != nil {
		s.coupons.set(snap.Coupons)
	} else {
		s.coupons.set(append([]models.Coupon(nil), starterCoupons...))
	}
	s.milestones.set(snap.Milestones)
}

// persist mirrors the cached parts of the state to the device
func (s *Store) persist() {
	if s.cache == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	snap := cache.Snapshot{
		Theme:      s.theme,
		Session:    s.session,
		Wishes:     nonNil(s.wishes.snapshot()),
		Coupons:    nonNil(s.coupons.snapshot()),
		Milestones: nonNil(s.milestones.snapshot()),
	}
	s.mu.Unlock()

	if err := s.cache.Save(snap); err != nil {
		log.Error().Err(err).Msg("Failed to save local cache")
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
