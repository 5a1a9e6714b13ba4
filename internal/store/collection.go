package store

import (
	"slices"

	"lovenest/internal/models"

	"github.com/google/uuid"
)

// Collection names reported to observers
const (
	CollectionSession    = "session"
	CollectionTheme      = "theme"
	CollectionMoods      = "moods"
	CollectionWishes     = "wishes"
	CollectionCoupons    = "coupons"
	CollectionMilestones = "milestones"
	CollectionNotes      = "notes"
	CollectionMessages   = "messages"
	CollectionSettings   = "settings"
	CollectionFolders    = "folders"
)

// collection is an ordered list of entities keyed by id. It does no
// locking; the store mutex guards every access.
type collection[T models.Entity] struct {
	name  string
	items []T
}

// snapshot returns a copy that later mutations cannot reach
func (c *collection[T]) snapshot() []T {
	return slices.Clone(c.items)
}

func (c *collection[T]) set(items []T) {
	c.items = items
}

func (c *collection[T]) reset() {
	c.items = nil
}

func indexOf[T models.Entity](items []T, id string) int {
	return slices.IndexFunc(items, func(v T) bool { return v.EntityID() == id })
}

func without[T models.Entity](items []T, id string) []T {
	return slices.DeleteFunc(slices.Clone(items), func(v T) bool { return v.EntityID() == id })
}

func prepend[T models.Entity](items []T, v T) []T {
	return append([]T{v}, items...)
}

func appendTo[T models.Entity](items []T, v T) []T {
	return append(slices.Clone(items), v)
}

// insertAt places v at index i, clamped to the slice bounds
func insertAt[T models.Entity](items []T, i int, v T) []T {
	i = max(0, min(i, len(items)))
	return slices.Insert(slices.Clone(items), i, v)
}

// upsert replaces the entry with v's id, or appends v
func upsert[T models.Entity](items []T, v T) []T {
	out := slices.Clone(items)
	if i := indexOf(out, v.EntityID()); i >= 0 {
		out[i] = v
		return out
	}
	return append(out, v)
}

// confirmReplace swaps the optimistic entry tempID for the stored record.
// When the record already arrived through another path (a realtime echo)
// the optimistic entry is dropped instead, so the id never appears twice.
func confirmReplace[T models.Entity](items []T, tempID string, rec T) []T {
	if indexOf(items, rec.EntityID()) >= 0 {
		return without(items, tempID)
	}
	out := slices.Clone(items)
	if i := indexOf(out, tempID); i >= 0 {
		out[i] = rec
		return out
	}
	return append(out, rec)
}

// dedupe keeps the first entry for every id
func dedupe[T models.Entity](items []T) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, v := range items {
		id := v.EntityID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, v)
	}
	return out
}

// localID mints an id for an optimistic entry
func localID() models.ID {
	return models.ID(models.LocalPrefix + uuid.New().String())
}
