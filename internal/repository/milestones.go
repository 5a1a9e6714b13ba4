package repository

import (
	"context"

	"lovenest/internal/models"
)

// MilestoneRepository handles story milestones
type MilestoneRepository struct {
	table Table[models.Milestone]
}

// NewMilestoneRepository creates a new milestone repository
func NewMilestoneRepository(client *Client) *MilestoneRepository {
	return &MilestoneRepository{table: NewTable[models.Milestone](client, "milestones")}
}

// ListMilestones returns milestones in date order
func (r *MilestoneRepository) ListMilestones(ctx context.Context) ([]models.Milestone, error) {
	return r.table.List(ctx, NewQuery().Order("date", true))
}

// CreateMilestone stores a new milestone
func (r *MilestoneRepository) CreateMilestone(ctx context.Context, m models.Milestone) (models.Milestone, error) {
	m.ID = ""
	return r.table.Insert(ctx, m)
}
