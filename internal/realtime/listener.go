package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a frame to the backend
	writeWait = 10 * time.Second

	// Maximum frame size accepted from the backend
	maxMessageSize = 1 << 20

	// Buffered events before the read pump waits on the consumer
	eventBuffer = 64
)

// Listener opens subscriptions to the backend change feed
type Listener struct {
	endpoint  *url.URL
	apiKey    string
	heartbeat time.Duration
	dialer    *websocket.Dialer
}

// NewListener creates a listener for the backend at backendURL
func NewListener(backendURL, apiKey string, heartbeat time.Duration) (*Listener, error) {
	u, err := url.Parse(strings.TrimRight(backendURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported backend url scheme %q", u.Scheme)
	}
	u = u.JoinPath("realtime/v1/websocket")
	u.RawQuery = url.Values{"apikey": {apiKey}, "vsn": {"1.0.0"}}.Encode()

	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &Listener{
		endpoint:  u,
		apiKey:    apiKey,
		heartbeat: heartbeat,
		dialer:    websocket.DefaultDialer,
	}, nil
}

// Subscribe dials the feed and joins one channel per table. It returns
// once every join is acknowledged.
func (l *Listener) Subscribe(ctx context.Context, accessToken string, tables ...string) (*Subscription, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to subscribe to")
	}

	conn, _, err := l.dialer.DialContext(ctx, l.endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial realtime: %w", err)
	}

	s := newSubscription(conn, l.heartbeat)
	s.start()

	acks := make([]<-chan error, 0, len(tables))
	for _, table := range tables {
		ack, err := s.join(table, accessToken)
		if err != nil {
			s.Close()
			return nil, err
		}
		acks = append(acks, ack)
	}

	for i, ack := range acks {
		select {
		case err := <-ack:
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("failed to join %s: %w", tables[i], err)
			}
		case <-ctx.Done():
			s.Close()
			return nil, ctx.Err()
		}
	}

	log.Info().Strs("tables", tables).Msg("Realtime subscription established")
	return s, nil
}

// Subscription is one open connection to the change feed
type Subscription struct {
	conn      *websocket.Conn
	heartbeat time.Duration

	events   chan Event
	send     chan []byte
	closing  chan struct{}
	readDone chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
	ref       atomic.Uint64

	mu      sync.Mutex
	topics  []string
	pending map[string]chan error
}

func newSubscription(conn *websocket.Conn, heartbeat time.Duration) *Subscription {
	return &Subscription{
		conn:      conn,
		heartbeat: heartbeat,
		events:    make(chan Event, eventBuffer),
		send:      make(chan []byte, 16),
		closing:   make(chan struct{}),
		readDone:  make(chan struct{}),
		pending:   make(map[string]chan error),
	}
}

// Events delivers row changes in arrival order. It is closed when the
// subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close leaves every channel and closes the connection. Safe to call more
// than once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		topics := append([]string(nil), s.topics...)
		s.mu.Unlock()
		for _, topic := range topics {
			_ = s.enqueue(topic, eventLeave, json.RawMessage(`{}`), nil)
		}
		close(s.closing)
	})
	s.wg.Wait()
	return nil
}

func (s *Subscription) start() {
	s.wg.Add(2)
	go s.readPump()
	go s.writePump()
}

func (s *Subscription) nextRef() string {
	return strconv.FormatUint(s.ref.Add(1), 10)
}

// join queues a join for table and returns the channel its reply lands on
func (s *Subscription) join(table, accessToken string) (<-chan error, error) {
	payload, err := json.Marshal(joinPayload{
		Config: joinConfig{
			Broadcast: map[string]bool{"self": false},
			Presence:  map[string]any{"key": ""},
			PostgresChanges: []changeFilter{
				{Event: "*", Schema: "public", Table: table},
			},
		},
		AccessToken: accessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal join: %w", err)
	}

	ref := s.nextRef()
	ack := make(chan error, 1)
	topic := Topic(table)

	s.mu.Lock()
	s.topics = append(s.topics, topic)
	s.pending[ref] = ack
	s.mu.Unlock()

	if err := s.enqueue(topic, eventJoin, payload, &ref); err != nil {
		return nil, err
	}
	return ack, nil
}

func (s *Subscription) enqueue(topic, event string, payload json.RawMessage, ref *string) error {
	if ref == nil {
		r := s.nextRef()
		ref = &r
	}
	f := frame{Topic: topic, Event: event, Payload: payload, Ref: ref}
	if event == eventJoin {
		f.JoinRef = ref
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	select {
	case s.send <- data:
		return nil
	case <-s.readDone:
		return fmt.Errorf("realtime connection closed")
	}
}

// readPump decodes frames from the backend until the connection ends
func (s *Subscription) readPump() {
	defer func() {
		s.failPending(fmt.Errorf("realtime connection closed"))
		close(s.events)
		close(s.readDone)
		s.wg.Done()
	}()

	readWait := 2*s.heartbeat + 10*time.Second
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(readWait))

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closing:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Msg("Realtime connection lost")
				}
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(readWait))

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Error().Err(err).Msg("Failed to parse realtime frame")
			continue
		}

		if ev, ok := s.handleFrame(f); ok {
			select {
			case s.events <- ev:
			case <-s.closing:
				return
			}
		}
	}
}

// handleFrame settles join replies and turns change frames into events
func (s *Subscription) handleFrame(f frame) (Event, bool) {
	switch f.Event {
	case eventReply:
		if f.Ref == nil {
			return Event{}, false
		}
		s.mu.Lock()
		ack, ok := s.pending[*f.Ref]
		delete(s.pending, *f.Ref)
		s.mu.Unlock()
		if !ok {
			return Event{}, false
		}
		var reply replyPayload
		_ = json.Unmarshal(f.Payload, &reply)
		if reply.Status != "ok" {
			ack <- fmt.Errorf("join rejected: %s %s", reply.Status, string(reply.Response))
		} else {
			ack <- nil
		}
		return Event{}, false

	case eventChanges:
		var p changePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			log.Error().Err(err).Str("topic", f.Topic).Msg("Failed to parse change payload")
			return Event{}, false
		}
		return Event{
			Table:           p.Data.Table,
			Kind:            p.Data.Type,
			Record:          p.Data.Record,
			OldRecord:       p.Data.OldRecord,
			CommitTimestamp: p.Data.CommitTimestamp,
		}, true

	case eventError, eventClose:
		log.Warn().Str("topic", f.Topic).Str("event", f.Event).Msg("Realtime channel closed by backend")
	case eventSystem:
		log.Debug().Str("topic", f.Topic).RawJSON("payload", f.Payload).Msg("Realtime system message")
	}
	return Event{}, false
}

func (s *Subscription) failPending(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ref, ack := range s.pending {
		ack <- err
		delete(s.pending, ref)
	}
}

// writePump sends queued frames and heartbeats, and owns closing the
// connection
func (s *Subscription) writePump() {
	ticker := time.NewTicker(s.heartbeat)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		s.wg.Done()
	}()

	for {
		select {
		case data := <-s.send:
			if err := s.write(data); err != nil {
				return
			}

		case <-ticker.C:
			hb, _ := json.Marshal(frame{
				Topic:   "phoenix",
				Event:   eventHeartbeat,
				Payload: json.RawMessage(`{}`),
				Ref:     ptr(s.nextRef()),
			})
			if err := s.write(hb); err != nil {
				return
			}

		case <-s.closing:
			for {
				select {
				case data := <-s.send:
					if err := s.write(data); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-s.readDone:
			return
		}
	}
}

func (s *Subscription) write(data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Error().Err(err).Msg("Failed to write realtime frame")
		return err
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
