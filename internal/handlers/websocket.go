package handlers

import (
	"encoding/json"
	"net/http"

	"lovenest/internal/services"
	"lovenest/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the bridge listens on the device only
	},
}

// Maximum message size accepted from a view
const maxViewMessage = 4 << 10

// WebSocketHandler streams store changes to open views
type WebSocketHandler struct {
	hub   *services.WSHub
	store *store.Store
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, s *store.Store) *WebSocketHandler {
	return &WebSocketHandler{
		hub:   hub,
		store: s,
	}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	connID := uuid.New().String()
	h.hub.Register(connID, conn)
	defer h.hub.Unregister(connID)

	if err := h.sendState(connID); err != nil {
		log.Error().Err(err).Str("conn_id", connID).Msg("Failed to send initial state")
		return
	}

	conn.SetReadLimit(maxViewMessage)
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("conn_id", connID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("conn_id", connID).Msg("Failed to parse WebSocket message")
			h.sendError(connID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case services.MessageState:
			err = h.sendState(connID)
		default:
			err = h.sendError(connID, "Unknown message type")
		}
		if err != nil {
			log.Error().Err(err).Str("conn_id", connID).Str("type", msg.Type).Msg("Failed to handle message")
			break
		}
	}
}

func (h *WebSocketHandler) sendState(connID string) error {
	return h.hub.SendTo(connID, services.WSMessage{
		Type: services.MessageState,
		Data: h.store.State(),
	})
}

func (h *WebSocketHandler) sendError(connID, message string) error {
	return h.hub.SendTo(connID, services.WSMessage{
		Type:    services.MessageError,
		Message: message,
	})
}
