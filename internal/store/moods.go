package store

import (
	"context"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
)

// Moods returns the mood history
func (s *Store) Moods() []models.Mood {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moods.snapshot()
}

// AddMood records today's check-in optimistically. Only an invalid
// category or a missing identity is returned; a remote failure removes
// the entry again.
func (s *Store) AddMood(ctx context.Context, mood models.MoodCategory, note *string) error {
	if !mood.Valid() {
		return apperr.Invalid("mood", "unknown mood "+`"`+string(mood)+`"`)
	}
	user, _, err := s.begin(ctx)
	if err != nil {
		return err
	}

	temp := models.Mood{
		ID:        localID(),
		UserID:    user.ID,
		Mood:      mood,
		Note:      note,
		CreatedAt: s.now(),
	}
	tempID := string(temp.ID)

	mutate(ctx, s, mutation[models.Mood, models.Mood]{
		op:   "add mood",
		id:   tempID,
		coll: &s.moods,
		apply: func(items []models.Mood) ([]models.Mood, bool) {
			return append(items, temp), true
		},
		remote: func(ctx context.Context) (models.Mood, error) {
			return s.gw.CreateMood(ctx, user.ID, mood, note)
		},
		confirm: func(items []models.Mood, rec models.Mood) []models.Mood {
			return confirmReplace(items, tempID, rec)
		},
		rollback: func(current, _ []models.Mood) []models.Mood {
			return without(current, tempID)
		},
		failure: "Could not save your mood",
	})
	return nil
}

// TodayMood returns the signed-in user's latest mood on now's calendar day
func (s *Store) TodayMood(now time.Time) (models.Mood, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return models.Mood{}, false
	}
	userID := s.session.User.ID

	var (
		found  models.Mood
		exists bool
	)
	for _, m := range s.moods.items {
		if m.UserID != "" && m.UserID != userID {
			continue
		}
		if !models.SameDay(m.CreatedAt, now, s.loc) {
			continue
		}
		if !exists || !m.CreatedAt.Before(found.CreatedAt) {
			found, exists = m, true
		}
	}
	return found, exists
}
