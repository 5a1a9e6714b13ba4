package handlers

import (
	"context"
	"net/http"

	"lovenest/internal/models"
	"lovenest/internal/services"
	"lovenest/internal/store"

	"github.com/rs/zerolog/log"
)

// SessionHandler handles sign-in, sign-up and sign-out
type SessionHandler struct {
	sessions *services.SessionService
	store    *store.Store
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *services.SessionService, s *store.Store) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		store:    s,
	}
}

// CredentialsRequest is the body of the login and sign-up requests
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the signed-in user
type SessionResponse struct {
	Identity             *models.Identity `json:"identity"`
	ConfirmationRequired bool             `json:"confirmation_required,omitempty"`
}

// Login handles POST /api/v1/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.sessions.Login(r.Context(), req.Email, req.Password); err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("Login failed")
		respondFailure(w, err)
		return
	}

	identity, _ := h.store.Identity()
	respondJSON(w, http.StatusOK, SessionResponse{Identity: &identity})
}

// SignUp handles POST /api/v1/users
func (h *SessionHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.sessions.SignUp(r.Context(), req.Email, req.Password); err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("Sign-up failed")
		respondFailure(w, err)
		return
	}

	identity, ok := h.store.Identity()
	if !ok {
		respondJSON(w, http.StatusCreated, SessionResponse{ConfirmationRequired: true})
		return
	}
	respondJSON(w, http.StatusCreated, SessionResponse{Identity: &identity})
}

// Logout handles DELETE /api/v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(context.WithoutCancel(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// State handles GET /api/v1/state
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.State())
}
