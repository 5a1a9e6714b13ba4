package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
)

// PushRelay invokes the backend function that relays push notifications
// to the partner's device
type PushRelay struct {
	client   *Client
	function string
	heading  string
	playerID string
}

// NewPushRelay creates a relay bound to the partner's player id
func NewPushRelay(client *Client, function, defaultHeading, partnerPlayerID string) *PushRelay {
	return &PushRelay{
		client:   client,
		function: function,
		heading:  defaultHeading,
		playerID: partnerPlayerID,
	}
}

// Notify relays n and returns the delivery service's raw response.
// Heading and player id default to the relay's configuration.
func (p *PushRelay) Notify(ctx context.Context, n models.PushNotification) (json.RawMessage, error) {
	if strings.TrimSpace(n.Message) == "" {
		return nil, apperr.Invalid("message", "message is required")
	}
	if n.Heading == "" {
		n.Heading = p.heading
	}
	if n.PlayerID == "" {
		n.PlayerID = p.playerID
	}
	if n.PlayerID == "" {
		return nil, apperr.Invalid("player_id", "player_id is required")
	}

	var resp json.RawMessage
	err := p.client.do(ctx, request{
		op:     "push notification",
		method: http.MethodPost,
		path:   "functions/v1/" + p.function,
		body:   n,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
