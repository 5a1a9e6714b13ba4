package repository

import (
	"context"

	"lovenest/internal/models"
)

// MessageHistory is how many messages a chat load fetches
const MessageHistory = 100

// MessageRepository handles chat messages
type MessageRepository struct {
	table Table[models.Message]
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(client *Client) *MessageRepository {
	return &MessageRepository{table: NewTable[models.Message](client, "messages")}
}

// ListMessages returns the chat history in creation order
func (r *MessageRepository) ListMessages(ctx context.Context) ([]models.Message, error) {
	return r.table.List(ctx, NewQuery().Order("created_at", true).Limit(MessageHistory))
}

// SendMessage stores a new unread message
func (r *MessageRepository) SendMessage(ctx context.Context, senderID, content string) (models.Message, error) {
	return r.table.Insert(ctx, models.Message{Content: content, SenderID: senderID})
}

// MarkMessagesRead sets the read flag on every listed message
func (r *MessageRepository) MarkMessagesRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.table.Update(ctx, NewQuery().In("id", ids), map[string]bool{"read": true})
	return err
}
