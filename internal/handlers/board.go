package handlers

import (
	"context"
	"net/http"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
	"lovenest/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// BoardHandler exposes the shared collections: moods, wishes, coupons,
// milestones and notes
type BoardHandler struct {
	store    *store.Store
	dispatch *Dispatcher
	now      func() time.Time
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(s *store.Store, dispatch *Dispatcher) *BoardHandler {
	return &BoardHandler{
		store:    s,
		dispatch: dispatch,
		now:      time.Now,
	}
}

// MoodRequest is the body of a daily check-in
type MoodRequest struct {
	Mood string  `json:"mood"`
	Note *string `json:"note,omitempty"`
}

// TodayMoodResponse holds today's check-in, if any
type TodayMoodResponse struct {
	Mood *models.Mood `json:"mood"`
}

// AddMood handles POST /api/v1/moods
func (h *BoardHandler) AddMood(w http.ResponseWriter, r *http.Request) {
	var req MoodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mood, err := models.ParseMoodCategory(req.Mood)
	if err != nil {
		respondFailure(w, err)
		return
	}

	h.dispatch.Go(w, r, "add mood", func(ctx context.Context) error {
		return h.store.AddMood(ctx, mood, req.Note)
	})
}

// TodayMood handles GET /api/v1/moods/today
func (h *BoardHandler) TodayMood(w http.ResponseWriter, r *http.Request) {
	var resp TodayMoodResponse
	if m, ok := h.store.TodayMood(h.now()); ok {
		resp.Mood = &m
	}
	respondJSON(w, http.StatusOK, resp)
}

// WishRequest is the body of a new wish
type WishRequest struct {
	Text        string  `json:"text"`
	Category    string  `json:"category"`
	Description *string `json:"description,omitempty"`
}

// AddWish handles POST /api/v1/wishes
func (h *BoardHandler) AddWish(w http.ResponseWriter, r *http.Request) {
	var req WishRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wish, err := h.store.AddWish(r.Context(), req.Text, models.WishCategory(req.Category), req.Description)
	if err != nil {
		log.Error().Err(err).Msg("Failed to add wish")
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, wish)
}

// ToggleWish handles POST /api/v1/wishes/{id}/toggle
func (h *BoardHandler) ToggleWish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.dispatch.Go(w, r, "toggle wish", func(ctx context.Context) error {
		return h.store.ToggleWish(ctx, id)
	})
}

// DeleteWish handles DELETE /api/v1/wishes/{id}
func (h *BoardHandler) DeleteWish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.dispatch.Go(w, r, "delete wish", func(ctx context.Context) error {
		return h.store.DeleteWish(ctx, id)
	})
}

// CouponRequest is the body of a new coupon
type CouponRequest struct {
	Title string `json:"title"`
}

// AddCoupon handles POST /api/v1/coupons
func (h *BoardHandler) AddCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	coupon, err := h.store.AddCoupon(r.Context(), req.Title)
	if err != nil {
		log.Error().Err(err).Msg("Failed to add coupon")
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, coupon)
}

// RedeemCoupon handles POST /api/v1/coupons/{id}/redeem
func (h *BoardHandler) RedeemCoupon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.dispatch.Go(w, r, "redeem coupon", func(ctx context.Context) error {
		return h.store.RedeemCoupon(ctx, id)
	})
}

// DeleteCoupon handles DELETE /api/v1/coupons/{id}
func (h *BoardHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.dispatch.Go(w, r, "delete coupon", func(ctx context.Context) error {
		return h.store.DeleteCoupon(ctx, id)
	})
}

// AddMilestone handles POST /api/v1/milestones
func (h *BoardHandler) AddMilestone(w http.ResponseWriter, r *http.Request) {
	var req models.Milestone
	if !decodeJSON(w, r, &req) {
		return
	}

	milestone, err := h.store.AddMilestone(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to add milestone")
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, milestone)
}

// NoteRequest is the body of a new sticky note
type NoteRequest struct {
	Content string `json:"content"`
	Color   string `json:"color"`
}

// AddNote handles POST /api/v1/notes
func (h *BoardHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.store.AddNote(r.Context(), req.Content, models.NoteColor(req.Color))
	if err != nil {
		log.Error().Err(err).Msg("Failed to add note")
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

// DeleteNote handles DELETE /api/v1/notes/{id}
func (h *BoardHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.dispatch.Go(w, r, "delete note", func(ctx context.Context) error {
		return h.store.DeleteNote(ctx, id)
	})
}

// MessageRequest is the body of a chat message
type MessageRequest struct {
	Content string `json:"content"`
}

// SendMessage handles POST /api/v1/messages
func (h *BoardHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Content == "" {
		respondFailure(w, apperr.Invalid("content", "content is required"))
		return
	}

	h.dispatch.Go(w, r, "send message", func(ctx context.Context) error {
		return h.store.SendMessage(ctx, req.Content)
	})
}

// MarkRead handles POST /api/v1/messages/read
func (h *BoardHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.dispatch.Go(w, r, "mark read", h.store.MarkRead)
}
