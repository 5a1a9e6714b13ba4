package repository

import (
	"context"

	"lovenest/internal/models"
)

// MoodRepository handles mood check-ins
type MoodRepository struct {
	table Table[models.Mood]
}

// NewMoodRepository creates a new mood repository
func NewMoodRepository(client *Client) *MoodRepository {
	return &MoodRepository{table: NewTable[models.Mood](client, "moods")}
}

// ListMoods returns every check-in, oldest first
func (r *MoodRepository) ListMoods(ctx context.Context) ([]models.Mood, error) {
	return r.table.List(ctx, NewQuery().Order("created_at", true))
}

// CreateMood stores a check-in for userID
func (r *MoodRepository) CreateMood(ctx context.Context, userID string, mood models.MoodCategory, note *string) (models.Mood, error) {
	return r.table.Insert(ctx, models.Mood{UserID: userID, Mood: mood, Note: note})
}
