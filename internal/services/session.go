package services

import (
	"context"
	"fmt"
	"time"

	"lovenest/internal/realtime"
	"lovenest/internal/store"

	"github.com/rs/zerolog/log"
)

// Time allowed to reopen the change feed after a token refresh
const resubscribeTimeout = 30 * time.Second

// SharedTables are the tables both partners watch live
var SharedTables = []string{store.TableNotes, store.TableMessages}

// FeedFunc opens a change feed for the given tables
type FeedFunc func(ctx context.Context, accessToken string, tables ...string) (store.EventSource, error)

// ListenerFeed adapts a realtime listener to a FeedFunc
func ListenerFeed(l *realtime.Listener) FeedFunc {
	return func(ctx context.Context, accessToken string, tables ...string) (store.EventSource, error) {
		sub, err := l.Subscribe(ctx, accessToken, tables...)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
}

// SessionService runs the sign-in flow: authenticate, load every
// collection, then follow the shared tables live
type SessionService struct {
	store *store.Store
	feed  FeedFunc
}

// NewSessionService creates a new session service
func NewSessionService(s *store.Store, feed FeedFunc) *SessionService {
	svc := &SessionService{store: s, feed: feed}
	s.OnTokenRefresh(svc.resubscribe)
	return svc
}

// Login signs in and starts the session. Only the authentication result
// is returned; load and feed failures are logged and shown as toasts.
func (s *SessionService) Login(ctx context.Context, email, password string) error {
	if err := s.store.Login(ctx, email, password); err != nil {
		return err
	}
	s.start(ctx)
	return nil
}

// SignUp registers an account and starts the session when one was issued
func (s *SessionService) SignUp(ctx context.Context, email, password string) error {
	if err := s.store.SignUp(ctx, email, password); err != nil {
		return err
	}
	if _, ok := s.store.Identity(); ok {
		s.start(ctx)
	}
	return nil
}

// Resume restores the cached session, if any
func (s *SessionService) Resume(ctx context.Context) error {
	if err := s.store.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume session: %w", err)
	}
	s.start(ctx)
	return nil
}

// Logout ends the session; the store releases the change feed
func (s *SessionService) Logout(ctx context.Context) {
	s.store.Logout(ctx)
}

func (s *SessionService) start(ctx context.Context) {
	gen := s.store.Generation()
	if err := s.store.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial load incomplete")
	}
	if s.feed == nil {
		return
	}

	src, err := s.feed(ctx, s.store.AccessToken(), SharedTables...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to subscribe to live updates")
		s.store.Detach()
		return
	}
	s.store.Attach(gen, src)
}

// resubscribe reopens the change feed with a renewed access token
func (s *SessionService) resubscribe(gen uint64, accessToken string) {
	if s.feed == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resubscribeTimeout)
		defer cancel()

		src, err := s.feed(ctx, accessToken, SharedTables...)
		if err != nil {
			log.Error().Err(err).Msg("Failed to renew live updates")
			return
		}
		if s.store.Attach(gen, src) {
			log.Info().Msg("Live updates renewed")
		}
	}()
}
