package store

import (
	"context"
	"strings"

	"lovenest/internal/apperr"
	"lovenest/internal/models"
)

// CollectionMemories is reported when gallery media changed. Memories are
// fetched per folder and not held by the store.
const CollectionMemories = "memories"

// Folders fetches the children of parent (the top level when nil) and
// merges them into the known folders
func (s *Store) Folders(ctx context.Context, parent *models.ID) ([]models.Folder, error) {
	_, gen, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	fetched, err := s.gw.ListFolders(ctx, parent)
	if err != nil {
		return nil, err
	}
	commit(s, gen, &s.folders, func(items []models.Folder) []models.Folder {
		for _, f := range fetched {
			items = upsert(items, f)
		}
		return items
	})
	return fetched, nil
}

// CreateFolder stores a folder and adds it once the backend accepted it
func (s *Store) CreateFolder(ctx context.Context, name string, parent *models.ID) (models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Folder{}, apperr.Invalid("name", "name is required")
	}
	_, gen, err := s.begin(ctx)
	if err != nil {
		return models.Folder{}, err
	}

	rec, err := s.gw.CreateFolder(ctx, name, parent)
	if err != nil {
		s.notify(Notice{Level: NoticeError, Message: "Could not create the folder"})
		return models.Folder{}, err
	}
	commit(s, gen, &s.folders, func(items []models.Folder) []models.Folder {
		return upsert(items, rec)
	})
	return rec, nil
}

// RenameFolder renames optimistically and restores the old name on failure
func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Invalid("name", "name is required")
	}
	if _, _, err := s.begin(ctx); err != nil {
		return err
	}

	var (
		found bool
		prior string
	)
	mutate(ctx, s, mutation[models.Folder, models.Folder]{
		op:   "rename folder",
		id:   id,
		coll: &s.folders,
		apply: func(items []models.Folder) ([]models.Folder, bool) {
			i := indexOf(items, id)
			if i < 0 {
				return nil, false
			}
			found, prior = true, items[i].Name
			items[i].Name = name
			return items, true
		},
		remote: func(ctx context.Context) (models.Folder, error) {
			return s.gw.RenameFolder(ctx, id, name)
		},
		confirm: func(items []models.Folder, rec models.Folder) []models.Folder {
			return upsert(items, rec)
		},
		rollback: func(current, _ []models.Folder) []models.Folder {
			if i := indexOf(current, id); i >= 0 {
				current[i].Name = prior
			}
			return current
		},
		failure: "Could not rename the folder",
	})
	if !found {
		return ErrNotFound
	}
	return nil
}

// DeleteFolder removes a folder optimistically and restores every folder
// on failure
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	if _, _, err := s.begin(ctx); err != nil {
		return err
	}

	found := false
	mutate(ctx, s, mutation[models.Folder, struct{}]{
		op:   "delete folder",
		id:   id,
		coll: &s.folders,
		apply: func(items []models.Folder) ([]models.Folder, bool) {
			if indexOf(items, id) < 0 {
				return nil, false
			}
			found = true
			return without(items, id), true
		},
		remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gw.DeleteFolder(ctx, id)
		},
		failure: "Could not delete the folder",
	})
	if !found {
		return ErrNotFound
	}
	return nil
}

// Memories lists the memories of a folder, or all of them when nil
func (s *Store) Memories(ctx context.Context, folder *models.ID) ([]models.Memory, error) {
	if _, _, err := s.begin(ctx); err != nil {
		return nil, err
	}
	return s.gw.ListMemories(ctx, folder)
}

// UploadMemory stores a photo, a video or an external video link.
// Oversized files and missing media fail with a ValidationError before
// anything is sent.
func (s *Store) UploadMemory(ctx context.Context, in models.MemoryUpload) (models.Memory, error) {
	if _, _, err := s.begin(ctx); err != nil {
		return models.Memory{}, err
	}
	mem, err := s.gw.UploadMemory(ctx, in)
	if err != nil {
		if !apperr.IsValidation(err) {
			s.notify(Notice{Level: NoticeError, Message: "Could not upload the memory"})
		}
		return models.Memory{}, err
	}
	s.changed(CollectionMemories)
	return mem, nil
}

// UpdateMemory edits the text of a memory
func (s *Store) UpdateMemory(ctx context.Context, id string, patch models.MemoryPatch) (models.Memory, error) {
	if _, _, err := s.begin(ctx); err != nil {
		return models.Memory{}, err
	}
	mem, err := s.gw.UpdateMemory(ctx, id, patch)
	if err != nil {
		s.notify(Notice{Level: NoticeError, Message: "Could not update the memory"})
		return models.Memory{}, err
	}
	s.changed(CollectionMemories)
	return mem, nil
}

// DeleteMemory removes a memory
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	if _, _, err := s.begin(ctx); err != nil {
		return err
	}
	if err := s.gw.DeleteMemory(ctx, id); err != nil {
		s.notify(Notice{Level: NoticeError, Message: "Could not delete the memory"})
		return err
	}
	s.changed(CollectionMemories)
	return nil
}
