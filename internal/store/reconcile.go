package store

import (
	"sync"

	"lovenest/internal/models"
	"lovenest/internal/realtime"

	"github.com/rs/zerolog/log"
)

// Tables whose changes are fed into the store
const (
	TableNotes    = "notes"
	TableMessages = "messages"
)

// EventSource is an open change feed
type EventSource interface {
	Events() <-chan realtime.Event
	Close() error
}

// Generation identifies the current session. It changes when a different
// user signs in and on every sign-out.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Attach applies every event from src while gen is the current session,
// replacing any previously attached source. A source opened for a session
// that has already ended is closed and refused.
func (s *Store) Attach(gen uint64, src EventSource) bool {
	stop := make(chan struct{})
	var once sync.Once
	detach := func() {
		once.Do(func() {
			close(stop)
			if err := src.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close change feed")
			}
		})
	}

	s.mu.Lock()
	if s.session == nil || gen != s.generation {
		s.mu.Unlock()
		detach()
		log.Info().Msg("Change feed opened for an ended session, closed")
		return false
	}
	prev := s.detach
	s.detach = detach
	s.mu.Unlock()
	if prev != nil {
		prev()
	}

	go func() {
		events := src.Events()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-events:
				if !ok {
					log.Info().Msg("Change feed ended")
					return
				}
				if !s.reconcile(gen, ev) {
					return
				}
			}
		}
	}()
	return true
}

// Detach stops applying change events
func (s *Store) Detach() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.mu.Unlock()
	if detach != nil {
		detach()
	}
}

// Reconcile applies one change event to the current state. Inserts of an
// id already present are dropped, deletes of an absent id do nothing.
func (s *Store) Reconcile(ev realtime.Event) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	s.reconcile(gen, ev)
}

// reconcile reports false once gen is no longer current
func (s *Store) reconcile(gen uint64, ev realtime.Event) bool {
	switch ev.Table {
	case TableNotes:
		return applyEvent(s, gen, &s.notes, ev, prepend[models.Note])
	case TableMessages:
		return applyEvent(s, gen, &s.messages, ev, appendTo[models.Message])
	default:
		log.Debug().Str("table", ev.Table).Msg("Ignoring change for unwatched table")
		return true
	}
}

func applyEvent[T models.Entity](s *Store, gen uint64, c *collection[T], ev realtime.Event, insert func([]T, T) []T) bool {
	id := ev.RecordID()
	if id == "" {
		log.Warn().Str("table", ev.Table).Str("kind", string(ev.Kind)).Msg("Change event without id")
		return true
	}

	var fn func(items []T) []T
	switch ev.Kind {
	case realtime.Insert, realtime.Update:
		var rec T
		if err := ev.Decode(&rec); err != nil {
			log.Error().Err(err).Str("table", ev.Table).Str("id", id).Msg("Failed to decode change record")
			return true
		}
		if ev.Kind == realtime.Insert {
			fn = func(items []T) []T {
				if indexOf(items, id) >= 0 {
					return items
				}
				return insert(items, rec)
			}
		} else {
			fn = func(items []T) []T {
				if i := indexOf(items, id); i >= 0 {
					items[i] = rec
				}
				return items
			}
		}
	case realtime.Delete:
		fn = func(items []T) []T {
			if indexOf(items, id) < 0 {
				return items
			}
			return without(items, id)
		}
	default:
		return true
	}
	return commit(s, gen, c, fn)
}
