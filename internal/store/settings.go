package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
)

// Settings returns the typed settings, falling back to defaults for
// anything not stored
func (s *Store) Settings(now time.Time) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SettingsFrom(s.settings.items, now)
}

// PutSetting upserts one setting optimistically
func (s *Store) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperr.Invalid("key", "key is required")
	}
	if !json.Valid(value) {
		return apperr.Invalid("value", "value must be JSON")
	}
	if _, _, err := s.begin(ctx); err != nil {
		return err
	}

	row := models.AppSetting{Key: key, Value: append(json.RawMessage(nil), value...)}
	mutate(ctx, s, mutation[models.AppSetting, struct{}]{
		op:   "put setting",
		id:   key,
		coll: &s.settings,
		apply: func(items []models.AppSetting) ([]models.AppSetting, bool) {
			return upsert(items, row), true
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gw.PutSetting(ctx, key, row.Value)
		},
		failure: "Could not save the setting",
	})
	return nil
}
