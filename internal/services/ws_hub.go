package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"lovenest/internal/store"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Time allowed to write a message to a view
const viewWriteWait = 10 * time.Second

// WSMessage is a message pushed to connected views
type WSMessage struct {
	Type       string            `json:"type"`
	Timestamp  int64             `json:"timestamp,omitempty"`
	Collection string            `json:"collection,omitempty"`
	Level      store.NoticeLevel `json:"level,omitempty"`
	Message    string            `json:"message,omitempty"`
	Data       any               `json:"data,omitempty"`
}

// Message types
const (
	MessageChanged = "changed"
	MessageToast   = "toast"
	MessageState   = "state"
	MessageError   = "error"
)

type viewConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *viewConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(viewWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages the WebSocket connections of open views and relays store
// changes to them
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*viewConn
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*viewConn),
	}
}

// Register registers a view connection under connID
func (h *WSHub) Register(connID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.connections[connID]; exists {
		existing.conn.Close()
	}
	h.connections[connID] = &viewConn{conn: conn}

	log.Info().Str("conn_id", connID).Int("views", len(h.connections)).Msg("View connected")
}

// Unregister removes and closes a view connection
func (h *WSHub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, exists := h.connections[connID]; exists {
		c.conn.Close()
		delete(h.connections, connID)
		log.Info().Str("conn_id", connID).Msg("View disconnected")
	}
}

// Count returns the number of connected views
func (h *WSHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SendTo sends a message to one view
func (h *WSHub) SendTo(connID string, message WSMessage) error {
	h.mu.RLock()
	c, exists := h.connections[connID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("view %s is not connected", connID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.write(data); err != nil {
		h.Unregister(connID)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Broadcast sends a message to every view. Views that fail to receive it
// are dropped.
func (h *WSHub) Broadcast(message WSMessage) {
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("type", message.Type).Msg("Failed to marshal broadcast")
		return
	}

	h.mu.RLock()
	targets := make(map[string]*viewConn, len(h.connections))
	for id, c := range h.connections {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		if err := c.write(data); err != nil {
			log.Error().Err(err).Str("conn_id", id).Msg("Failed to send to view")
			h.Unregister(id)
		}
	}
}

// Changed tells every view that a collection changed
func (h *WSHub) Changed(collection string) {
	h.Broadcast(WSMessage{Type: MessageChanged, Collection: collection})
}

// Notice shows a toast on every view
func (h *WSHub) Notice(n store.Notice) {
	h.Broadcast(WSMessage{Type: MessageToast, Level: n.Level, Message: n.Message})
}

// CloseAll disconnects every view
func (h *WSHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.connections {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.conn.Close()
		delete(h.connections, id)
	}
}
