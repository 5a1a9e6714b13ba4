package store

import (
	"context"
	"strings"
	"unicode/utf8"

	"lovenest/internal/apperr"
	"lovenest/internal/models"

	"github.com/rs/zerolog/log"
)

// previewRunes is how much of a message the push notification shows
const previewRunes = 50

// Messages returns the chat history, oldest first
func (s *Store) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.snapshot()
}

// SendMessage appends the message optimistically and, once stored, pushes
// a preview to the partner. A failed push is only logged.
func (s *Store) SendMessage(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return apperr.Invalid("content", "content is required")
	}
	user, _, err := s.begin(ctx)
	if err != nil {
		return err
	}

	temp := models.Message{
		ID:        localID(),
		Content:   content,
		SenderID:  user.ID,
		CreatedAt: s.now(),
	}
	tempID := string(temp.ID)

	rec, ok := mutate(ctx, s, mutation[models.Message, models.Message]{
		op:   "send message",
		id:   tempID,
		coll: &s.messages,
		apply: func(items []models.Message) ([]models.Message, bool) {
			return append(items, temp), true
		},
		remote: func(ctx context.Context) (models.Message, error) {
			return s.gw.SendMessage(ctx, user.ID, content)
		},
		confirm: func(items []models.Message, rec models.Message) []models.Message {
			return confirmReplace(items, tempID, rec)
		},
		rollback: func(current, _ []models.Message) []models.Message {
			return without(current, tempID)
		},
		failure: "Could not send the message",
	})
	if !ok {
		return nil
	}

	if _, err := s.gw.Notify(ctx, models.PushNotification{Message: "💬 " + preview(content)}); err != nil {
		log.Warn().Err(err).Str("message_id", rec.EntityID()).Msg("Failed to send push notification")
	}
	return nil
}

// MarkRead flags every unread message from the partner as read
func (s *Store) MarkRead(ctx context.Context) error {
	user, _, err := s.begin(ctx)
	if err != nil {
		return err
	}

	var ids []string
	markRead := setFlagAll(func(m *models.Message, v bool) { m.Read = v })
	mutate(ctx, s, mutation[models.Message, struct{}]{
		op:   "mark read",
		coll: &s.messages,
		apply: func(items []models.Message) ([]models.Message, bool) {
			for _, m := range items {
				if m.SenderID != user.ID && !m.Read && !m.ID.IsLocal() {
					ids = append(ids, string(m.ID))
				}
			}
			if len(ids) == 0 {
				return nil, false
			}
			return markRead(items, ids, true), true
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gw.MarkMessagesRead(ctx, ids)
		},
		rollback: func(current, _ []models.Message) []models.Message {
			return markRead(current, ids, false)
		},
		failure: "Could not mark messages as read",
	})
	return nil
}

// setFlagAll is setFlag over several ids
func setFlagAll[T models.Entity](set func(*T, bool)) func(items []T, ids []string, value bool) []T {
	return func(items []T, ids []string, value bool) []T {
		for _, id := range ids {
			items = setFlag(id, set, value)(items)
		}
		return items
	}
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewRunes {
		return content
	}
	return string([]rune(content)[:previewRunes]) + "..."
}
