package repository

import (
	"context"

	"lovenest/internal/models"
)

// WishRepository handles the shared wish list
type WishRepository struct {
	table Table[models.WishItem]
}

// NewWishRepository creates a new wish repository
func NewWishRepository(client *Client) *WishRepository {
	return &WishRepository{table: NewTable[models.WishItem](client, "bucket_list")}
}

// ListWishes returns the wish list, newest first
func (r *WishRepository) ListWishes(ctx context.Context) ([]models.WishItem, error) {
	return r.table.List(ctx, NewQuery().Order("created_at", false))
}

// CreateWish stores a new wish
func (r *WishRepository) CreateWish(ctx context.Context, item models.WishItem) (models.WishItem, error) {
	return r.table.Insert(ctx, models.WishItem{
		Text:        item.Text,
		Category:    item.Category,
		Description: item.Description,
	})
}

// SetWishCompleted updates the completed flag
func (r *WishRepository) SetWishCompleted(ctx context.Context, id string, completed bool) error {
	_, err := updateOne(ctx, r.table, id, map[string]bool{"completed": completed})
	return err
}

// DeleteWish removes a wish
func (r *WishRepository) DeleteWish(ctx context.Context, id string) error {
	return r.table.Delete(ctx, NewQuery().Eq("id", id))
}
