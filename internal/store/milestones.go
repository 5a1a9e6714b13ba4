package store

import (
	"context"

	"lovenest/internal/models"
)

// Milestones returns the timeline
func (s *Store) Milestones() []models.Milestone {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.milestones.snapshot()
}

// AddMilestone stores a milestone and appends it once the backend
// accepted it
func (s *Store) AddMilestone(ctx context.Context, m models.Milestone) (models.Milestone, error) {
	if err := m.Validate(); err != nil {
		return models.Milestone{}, err
	}
	_, gen, err := s.begin(ctx)
	if err != nil {
		return models.Milestone{}, err
	}

	m.ID = ""
	rec, err := s.gw.CreateMilestone(ctx, m)
	if err != nil {
		s.notify(Notice{Level: NoticeError, Message: "Could not add the milestone"})
		return models.Milestone{}, err
	}
	commit(s, gen, &s.milestones, func(items []models.Milestone) []models.Milestone {
		return upsert(items, rec)
	})
	return rec, nil
}
