package repository

import (
	"context"

	"lovenest/internal/models"
)

// CouponRepository handles coupons
type CouponRepository struct {
	table Table[models.Coupon]
}

// NewCouponRepository creates a new coupon repository
func NewCouponRepository(client *Client) *CouponRepository {
	return &CouponRepository{table: NewTable[models.Coupon](client, "coupons")}
}

// ListCoupons returns every coupon, oldest first
func (r *CouponRepository) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	return r.table.List(ctx, NewQuery().Order("created_at", true))
}

// CreateCoupon stores a new coupon
func (r *CouponRepository) CreateCoupon(ctx context.Context, title string) (models.Coupon, error) {
	return r.table.Insert(ctx, models.Coupon{Title: title})
}

// RedeemCoupon marks a coupon as redeemed
func (r *CouponRepository) RedeemCoupon(ctx context.Context, id string) error {
	_, err := updateOne(ctx, r.table, id, map[string]bool{"redeemed": true})
	return err
}

// DeleteCoupon removes a coupon
func (r *CouponRepository) DeleteCoupon(ctx context.Context, id string) error {
	return r.table.Delete(ctx, NewQuery().Eq("id", id))
}
