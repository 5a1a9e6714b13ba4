package store

import (
	"context"
	"strings"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
)

// Notes returns the sticky notes, newest first
func (s *Store) Notes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes.snapshot()
}

// AddNote pins a note. The board is fed by the change feed too, so the
// stored note is only added if its echo has not arrived first.
func (s *Store) AddNote(ctx context.Context, content string, color models.NoteColor) (models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Note{}, apperr.Invalid("content", "content is required")
	}
	user, gen, err := s.begin(ctx)
	if err != nil {
		return models.Note{}, err
	}

	rec, err := s.gw.CreateNote(ctx, content, models.NormalizeNoteColor(string(color)), user.Email)
	if err != nil {
		s.notify(Notice{Level: NoticeError, Message: "Could not pin the note"})
		return models.Note{}, err
	}
	commit(s, gen, &s.notes, func(items []models.Note) []models.Note {
		if indexOf(items, rec.EntityID()) >= 0 {
			return items
		}
		return prepend(items, rec)
	})
	return rec, nil
}

// DeleteNote removes a note optimistically. On failure the note goes back
// to its former position unless the change feed re-added it meanwhile;
// other notes that arrived in between are kept.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	if _, _, err := s.begin(ctx); err != nil {
		return err
	}

	var (
		removed models.Note
		index   = -1
	)
	mutate(ctx, s, mutation[models.Note, struct{}]{
		op:   "delete note",
		id:   id,
		coll: &s.notes,
		apply: func(items []models.Note) ([]models.Note, bool) {
			index = indexOf(items, id)
			if index < 0 {
				return nil, false
			}
			removed = items[index]
			return without(items, id), true
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gw.DeleteNote(ctx, id)
		},
		rollback: func(current, _ []models.Note) []models.Note {
			if indexOf(current, id) >= 0 {
				return current
			}
			return insertAt(current, index, removed)
		},
		failure: "Could not delete the note",
	})
	if index < 0 {
		return ErrNotFound
	}
	return nil
}
