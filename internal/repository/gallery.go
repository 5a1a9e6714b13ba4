package repository

import (
	"context"
	"net/url"
	"strings"
	"time"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
)

// FolderRepository handles gallery folders
type FolderRepository struct {
	table Table[models.Folder]
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(client *Client) *FolderRepository {
	return &FolderRepository{table: NewTable[models.Folder](client, "folders")}
}

// ListFolders returns the children of parentID, or the top level when nil
func (r *FolderRepository) ListFolders(ctx context.Context, parentID *models.ID) ([]models.Folder, error) {
	q := NewQuery().Order("created_at", true)
	if parentID != nil {
		q.Eq("parent_id", string(*parentID))
	} else {
		q.IsNull("parent_id")
	}
	return r.table.List(ctx, q)
}

// CreateFolder stores a new folder
func (r *FolderRepository) CreateFolder(ctx context.Context, name string, parentID *models.ID) (models.Folder, error) {
	return r.table.Insert(ctx, models.Folder{Name: name, ParentID: parentID})
}

// RenameFolder changes a folder name
func (r *FolderRepository) RenameFolder(ctx context.Context, id, name string) (models.Folder, error) {
	return updateOne(ctx, r.table, id, map[string]string{"name": name})
}

// DeleteFolder removes a folder
func (r *FolderRepository) DeleteFolder(ctx context.Context, id string) error {
	return r.table.Delete(ctx, NewQuery().Eq("id", id))
}

// MemoryRepository handles gallery memories and their media
type MemoryRepository struct {
	table   Table[models.Memory]
	objects ObjectStore
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(client *Client, objects ObjectStore) *MemoryRepository {
	return &MemoryRepository{
		table:   NewTable[models.Memory](client, "memories"),
		objects: objects,
	}
}

// ListMemories returns memories newest first, optionally inside one folder
func (r *MemoryRepository) ListMemories(ctx context.Context, folderID *models.ID) ([]models.Memory, error) {
	q := NewQuery().Order("date", false)
	if folderID != nil {
		q.Eq("folder_id", string(*folderID))
	}
	return r.table.List(ctx, q)
}

// UploadMemory validates the input, uploads the file when there is one,
// and stores the memory record. Oversized files fail before any network
// call; an external link is stored as is without uploading.
func (r *MemoryRepository) UploadMemory(ctx context.Context, in models.MemoryUpload) (models.Memory, error) {
	if err := validateUpload(in); err != nil {
		return models.Memory{}, err
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	mem := models.Memory{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Date:        date.UTC(),
		FolderID:    in.FolderID,
	}

	if in.ExternalURL != "" {
		link := in.ExternalURL
		mem.ExternalURL = &link
		mem.MediaType = models.MediaVideo
	} else {
		if r.objects == nil {
			return models.Memory{}, apperr.Remote("upload memory", errNoObjectStore)
		}
		contentType := detectContentType(in.Filename, in.ContentType)
		key := objectKey(in.Filename)
		if err := r.objects.PutObject(ctx, key, in.File, in.Size, contentType); err != nil {
			return models.Memory{}, err
		}
		mem.MediaURL = r.objects.PublicURL(key)
		mem.MediaType = models.MediaImage
		if strings.HasPrefix(contentType, "video/") {
			mem.MediaType = models.MediaVideo
		}
	}

	return r.table.Insert(ctx, mem)
}

// UpdateMemory edits the text fields of a memory
func (r *MemoryRepository) UpdateMemory(ctx context.Context, id string, patch models.MemoryPatch) (models.Memory, error) {
	return updateOne(ctx, r.table, id, patch)
}

// DeleteMemory removes a memory record
func (r *MemoryRepository) DeleteMemory(ctx context.Context, id string) error {
	return r.table.Delete(ctx, NewQuery().Eq("id", id))
}

func validateUpload(in models.MemoryUpload) error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Invalid("title", "title is required")
	}
	if in.ExternalURL != "" {
		u, err := url.Parse(in.ExternalURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperr.Invalid("external_url", "must be an http(s) link")
		}
		return nil
	}
	if in.File == nil {
		return apperr.Invalid("file", "a file or an external link is required")
	}
	if in.Size > MaxUploadSize {
		return apperr.Invalid("file", "file is too large, the limit is 50MB")
	}
	return nil
}
