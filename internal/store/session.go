package store

import (
	"context"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/models"

	"github.com/rs/zerolog/log"
)

// refreshMargin renews the session this long before the access token
// expires
const refreshMargin = 30 * time.Second

// TokenFunc is told about every renewed access token of session gen
type TokenFunc func(gen uint64, accessToken string)

// OnTokenRefresh registers fn, called without the store lock after the
// session was renewed
func (s *Store) OnTokenRefresh(fn TokenFunc) {
	s.mu.Lock()
	s.onToken = fn
	s.mu.Unlock()
}

// ensureSession renews an expiring session before a backend call. A
// refresh rejected by the backend ends the session; any other refresh
// failure keeps the current token.
func (s *Store) ensureSession(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	sess, gen := s.session, s.generation
	s.mu.Unlock()
	if sess == nil || !sess.Expired(s.now().Add(refreshMargin)) {
		return nil
	}

	fresh, err := s.gw.Refresh(ctx, sess.RefreshToken)
	switch {
	case apperr.IsAuth(err):
		log.Warn().Err(err).Str("user_id", sess.User.ID).Msg("Session expired, login required")
		s.expire(sess)
		return err
	case err != nil:
		log.Warn().Err(err).Msg("Failed to refresh session, keeping the current token")
		return nil
	}
	s.renew(gen, fresh)
	return nil
}

// renew installs a refreshed session of the same user, unless the session
// ended while the refresh was in flight
func (s *Store) renew(gen uint64, fresh *models.Session) {
	s.mu.Lock()
	if s.session == nil || s.generation != gen || s.session.User.ID != fresh.User.ID {
		s.mu.Unlock()
		return
	}
	s.session = fresh
	onToken := s.onToken
	s.mu.Unlock()

	log.Info().Str("user_id", fresh.User.ID).Msg("Session refreshed")
	s.changed(CollectionSession)
	if onToken != nil {
		onToken(gen, fresh.AccessToken)
	}
}

// expire ends sess locally after the backend refused to renew it
func (s *Store) expire(sess *models.Session) {
	s.mu.Lock()
	if s.session != sess {
		s.mu.Unlock()
		return
	}
	detach := s.clear()
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
	s.changedAll()
	s.notify(Notice{Level: NoticeError, Message: "Your session expired, please log in again"})
}
