package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"lovenest/internal/apperr"
	"lovenest/internal/middleware"
	"lovenest/internal/store"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// AcceptedResponse is returned for changes applied in the background
type AcceptedResponse struct {
	Status string `json:"status"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends v as a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// respondFailure maps err onto a status code and sends it
func respondFailure(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	switch {
	case apperr.IsValidation(err):
		statusCode = http.StatusBadRequest
	case apperr.IsAuth(err):
		statusCode = http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		statusCode = http.StatusNotFound
	case apperr.IsRemote(err):
		statusCode = http.StatusBadGateway
	}
	respondError(w, apperr.Message(err), statusCode)
}

// decodeJSON reads the request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// Dispatcher runs optimistic changes in the background. The response is
// sent once the change is applied locally; the view sees the backend's
// verdict over the WebSocket.
type Dispatcher struct {
	wg sync.WaitGroup
}

// NewDispatcher creates a new dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Go runs fn detached from the request. It answers 202 Accepted as soon
// as the change is visible in the store, or maps the error of a change
// that failed before it was applied.
func (d *Dispatcher) Go(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context) error) {
	applied := make(chan struct{})
	var once sync.Once
	ctx := store.WithApplied(context.WithoutCancel(r.Context()), func() {
		once.Do(func() { close(applied) })
	})
	userID := middleware.GetUserID(r.Context())

	result := make(chan error, 1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		err := fn(ctx)
		if err != nil {
			log.Warn().
				Err(err).
				Str("user_id", userID).
				Str("op", op).
				Msg("Change not applied")
		}
		result <- err
	}()

	select {
	case <-applied:
	case err := <-result:
		if err != nil {
			respondFailure(w, err)
			return
		}
	case <-r.Context().Done():
		return
	}
	respondJSON(w, http.StatusAccepted, AcceptedResponse{Status: "accepted"})
}

// Wait blocks until every dispatched change finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
