package repository

import (
	"context"

	"lovenest/internal/models"
)

// NoteRepository handles the sticky-note board
type NoteRepository struct {
	table Table[models.Note]
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(client *Client) *NoteRepository {
	return &NoteRepository{table: NewTable[models.Note](client, "notes")}
}

// ListNotes returns the board, newest first
func (r *NoteRepository) ListNotes(ctx context.Context) ([]models.Note, error) {
	return r.table.List(ctx, NewQuery().Order("created_at", false))
}

// CreateNote pins a new note
func (r *NoteRepository) CreateNote(ctx context.Context, content string, color models.NoteColor, author string) (models.Note, error) {
	return r.table.Insert(ctx, models.Note{Content: content, Color: color, Author: author})
}

// DeleteNote removes a note
func (r *NoteRepository) DeleteNote(ctx context.Context, id string) error {
	return r.table.Delete(ctx, NewQuery().Eq("id", id))
}
