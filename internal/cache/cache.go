// Package cache persists the device-local state: theme, the last session,
// and fallback copies of the wish list, coupons and milestones.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lovenest/internal/models"

	"gopkg.in/yaml.v3"
)

// Snapshot is everything kept on the device. A nil collection means it was
// never stored; an empty one means it was stored empty.
type Snapshot struct {
	Theme      models.Theme       `yaml:"theme,omitempty"`
	Session    *models.Session    `yaml:"session,omitempty"`
	Wishes     []models.WishItem  `yaml:"wishes"`
	Coupons    []models.Coupon    `yaml:"coupons"`
	Milestones []models.Milestone `yaml:"milestones"`
}

// FileCache stores the snapshot in a YAML file
type FileCache struct {
	path string
	mu   sync.Mutex
}

// NewFileCache creates a cache backed by path
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (c *FileCache) Load() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var snap Snapshot
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("failed to read cache: %w", err)
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse cache: %w", err)
	}
	return snap, nil
}

// Save replaces the stored snapshot. The file is written next to the
// target and renamed over it so readers never see a partial file.
func (c *FileCache) Save(snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".lovenest-cache-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to replace cache: %w", err)
	}
	return nil
}
