// Package realtime subscribes to the backend's row-change feed and delivers
// insert/update/delete events for the shared tables.
package realtime

import (
	"encoding/json"
	"time"

	"lovenest/internal/models"
)

// Kind is the type of row change
type Kind string

const (
	Insert Kind = "INSERT"
	Update Kind = "UPDATE"
	Delete Kind = "DELETE"
)

// Event is one row change on a subscribed table
type Event struct {
	Table           string
	Kind            Kind
	Record          json.RawMessage
	OldRecord       json.RawMessage
	CommitTimestamp time.Time
}

// RecordID returns the id of the changed row, read from the new record or,
// for deletes, from the old one
func (e Event) RecordID() string {
	for _, raw := range []json.RawMessage{e.Record, e.OldRecord} {
		if len(raw) == 0 {
			continue
		}
		var row struct {
			ID models.ID `json:"id"`
		}
		if json.Unmarshal(raw, &row) == nil && row.ID != "" {
			return string(row.ID)
		}
	}
	return ""
}

// Decode unmarshals the new record into v
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Record, v)
}

// frame is one message of the channel protocol
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

// Channel protocol event names
const (
	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventHeartbeat = "heartbeat"
	eventChanges   = "postgres_changes"
	eventSystem    = "system"
)

type joinPayload struct {
	Config      joinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

type joinConfig struct {
	Broadcast       map[string]bool `json:"broadcast"`
	Presence        map[string]any  `json:"presence"`
	PostgresChanges []changeFilter  `json:"postgres_changes"`
}

type changeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changePayload struct {
	Data struct {
		Schema          string          `json:"schema"`
		Table           string          `json:"table"`
		Type            Kind            `json:"type"`
		Record          json.RawMessage `json:"record"`
		OldRecord       json.RawMessage `json:"old_record"`
		CommitTimestamp time.Time       `json:"commit_timestamp"`
	} `json:"data"`
}

// Topic is the channel name used for table
func Topic(table string) string {
	return "realtime:" + table
}
