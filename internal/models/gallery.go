package models

import (
	"io"
	"time"
)

// Media types stored on a memory
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Folder groups memories in the gallery
type Folder struct {
	ID        ID        `json:"id,omitempty"`
	Name      string    `json:"name"`
	ParentID  *ID       `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

func (f Folder) EntityID() string { return string(f.ID) }

// Memory is a photo or video in the gallery
type Memory struct {
	ID          ID        `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	MediaURL    string    `json:"media_url"`
	ExternalURL *string   `json:"external_url"`
	MediaType   string    `json:"media_type"`
	FolderID    *ID       `json:"folder_id"`
}

func (m Memory) EntityID() string { return string(m.ID) }

// MemoryUpload is the input for a new memory: either a file or an
// externally hosted video link
type MemoryUpload struct {
	Title       string
	Description string
	Date        time.Time
	FolderID    *ID

	File        io.Reader
	Size        int64
	Filename    string
	ContentType string

	ExternalURL string
}

// MemoryPatch edits the text fields of a memory
type MemoryPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}
