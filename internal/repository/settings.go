package repository

import (
	"context"
	"encoding/json"

	"lovenest/internal/models"
)

// SettingsRepository handles the app_settings key/value rows
type SettingsRepository struct {
	table Table[models.AppSetting]
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(client *Client) *SettingsRepository {
	return &SettingsRepository{table: NewTable[models.AppSetting](client, "app_settings")}
}

// ListSettings returns every stored setting
func (r *SettingsRepository) ListSettings(ctx context.Context) ([]models.AppSetting, error) {
	return r.table.List(ctx, nil)
}

// PutSetting inserts or replaces the value under key
func (r *SettingsRepository) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	return r.table.Upsert(ctx, models.AppSetting{Key: key, Value: value})
}
