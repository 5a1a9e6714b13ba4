package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
	"lovenest/internal/repository"
	"lovenest/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	// multipart overhead allowed on top of the file itself
	uploadOverhead = 1 << 20

	// form data kept in memory while parsing an upload
	uploadMemory = 8 << 20
)

// GalleryHandler handles folders and memories
type GalleryHandler struct {
	store    *store.Store
	dispatch *Dispatcher
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(s *store.Store, dispatch *Dispatcher) *GalleryHandler {
	return &GalleryHandler{
		store:    s,
		dispatch: dispatch,
	}
}

// FolderRequest is the body of a new or renamed folder
type FolderRequest struct {
	Name     string     `json:"name"`
	ParentID *models.ID `json:"parent_id,omitempty"`
}

// ExternalMemoryRequest adds a memory that links to a hosted video
type ExternalMemoryRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	FolderID    *models.ID `json:"folder_id,omitempty"`
	ExternalURL string     `json:"external_url"`
}

// GetFolders handles GET /api/v1/folders
func (h *GalleryHandler) GetFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.store.Folders(r.Context(), optionalID(r.URL.Query().Get("parent_id")))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get folders")
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// CreateFolder handles POST /api/v1/folders
func (h *GalleryHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	folder, err := h.store.CreateFolder(r.Context(), req.Name, req.ParentID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create folder")
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, folder)
}

// RenameFolder handles PATCH /api/v1/folders/{id}
func (h *GalleryHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req FolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondFailure(w, apperr.Invalid("name", "name is required"))
		return
	}

	h.dispatch.Go(w, r, "rename folder", func(ctx context.Context) error {
		return h.store.RenameFolder(ctx, id, req.Name)
	})
}

// DeleteFolder handles DELETE /api/v1/folders/{id}
func (h *GalleryHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.dispatch.Go(w, r, "delete folder", func(ctx context.Context) error {
		return h.store.DeleteFolder(ctx, id)
	})
}

// GetMemories handles GET /api/v1/memories
func (h *GalleryHandler) GetMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := h.store.Memories(r.Context(), optionalID(r.URL.Query().Get("folder_id")))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get memories")
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"memories": memories,
		"total":    len(memories),
	})
}

// UploadMemory handles POST /api/v1/memories. A multipart body carries a
// file; a JSON body carries an external video link.
func (h *GalleryHandler) UploadMemory(w http.ResponseWriter, r *http.Request) {
	var (
		in  models.MemoryUpload
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		in, err = h.readMultipart(w, r)
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
	} else {
		in, err = readExternal(r)
	}
	if err != nil {
		respondFailure(w, err)
		return
	}
	if c, ok := in.File.(io.Closer); ok {
		defer c.Close()
	}

	memory, err := h.store.UploadMemory(r.Context(), in)
	if err != nil {
		log.Error().
			Err(err).
			Str("title", in.Title).
			Int64("size", in.Size).
			Msg("Failed to upload memory")
		respondFailure(w, err)
		return
	}

	log.Info().
		Str("memory_id", string(memory.ID)).
		Str("media_type", memory.MediaType).
		Msg("Memory uploaded")
	respondJSON(w, http.StatusCreated, memory)
}

func (h *GalleryHandler) readMultipart(w http.ResponseWriter, r *http.Request) (models.MemoryUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, repository.MaxUploadSize+uploadOverhead)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.MemoryUpload{}, apperr.Invalid("file", "file is too large, the limit is 50MB")
		}
		return models.MemoryUpload{}, apperr.Invalid("body", "invalid multipart form")
	}

	date, err := parseDate(r.FormValue("date"))
	if err != nil {
		return models.MemoryUpload{}, err
	}
	in := models.MemoryUpload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Date:        date,
		FolderID:    optionalID(r.FormValue("folder_id")),
		ExternalURL: r.FormValue("external_url"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return models.MemoryUpload{}, apperr.Invalid("file", "unreadable file")
	default:
		in.File = file
		in.Size = header.Size
		in.Filename = header.Filename
		in.ContentType = header.Header.Get("Content-Type")
	}
	return in, nil
}

func readExternal(r *http.Request) (models.MemoryUpload, error) {
	var req ExternalMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.MemoryUpload{}, apperr.Invalid("body", "Invalid request body")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return models.MemoryUpload{}, err
	}
	return models.MemoryUpload{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		FolderID:    req.FolderID,
		ExternalURL: req.ExternalURL,
	}, nil
}

// UpdateMemory handles PATCH /api/v1/memories/{id}
func (h *GalleryHandler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch models.MemoryPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	memory, err := h.store.UpdateMemory(r.Context(), id, patch)
	if err != nil {
		log.Error().Err(err).Str("memory_id", id).Msg("Failed to update memory")
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, memory)
}

// DeleteMemory handles DELETE /api/v1/memories/{id}
func (h *GalleryHandler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteMemory(r.Context(), id); err != nil {
		log.Error().Err(err).Str("memory_id", id).Msg("Failed to delete memory")
		respondFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func optionalID(v string) *models.ID {
	if v == "" {
		return nil
	}
	id := models.ID(v)
	return &id
}

// parseDate accepts YYYY-MM-DD or RFC 3339; empty means today
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Invalid("date", "date must be YYYY-MM-DD")
}
