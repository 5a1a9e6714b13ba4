package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
	"lovenest/internal/store"

	"github.com/go-chi/chi/v5"
)

// maxSettingSize bounds a setting value
const maxSettingSize = 64 << 10

// SettingsHandler handles the home screen settings and the theme
type SettingsHandler struct {
	store    *store.Store
	dispatch *Dispatcher
	now      func() time.Time
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(s *store.Store, dispatch *Dispatcher) *SettingsHandler {
	return &SettingsHandler{
		store:    s,
		dispatch: dispatch,
		now:      time.Now,
	}
}

// ThemeResponse carries the colour scheme
type ThemeResponse struct {
	Theme models.Theme `json:"theme"`
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Settings(h.now()))
}

// PutSetting handles PUT /api/v1/settings/{key}
func (h *SettingsHandler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSettingSize+1))
	if err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxSettingSize {
		respondFailure(w, apperr.Invalid("value", "value is too large"))
		return
	}
	if !json.Valid(body) {
		respondFailure(w, apperr.Invalid("value", "value must be JSON"))
		return
	}

	h.dispatch.Go(w, r, "put setting", func(ctx context.Context) error {
		return h.store.PutSetting(ctx, key, json.RawMessage(body))
	})
}

// ToggleTheme handles POST /api/v1/theme/toggle
func (h *SettingsHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ThemeResponse{Theme: h.store.ToggleTheme()})
}
