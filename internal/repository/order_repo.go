package repository

import (
	"context"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== OrderRepository ====================

// OrderRepository order persistence, keyed by (account, eBay order id)
type OrderRepository interface {
	Upsert(ctx context.Context, order *model.Order) error
	GetByOrderID(ctx context.Context, accountID, orderID string) (*model.Order, error)
	CountByAccount(ctx context.Context, accountID string) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates the order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Upsert inserts the order or refreshes its mutable fields
func (r *orderRepository) Upsert(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ebay_account_id"}, {Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"order_created_at", "last_modified_at", "fulfillment_status",
			"buyer_username", "summary", "updated_at",
		}),
	}).Create(order).Error
	return wrapErr("upsert order", err)
}

func (r *orderRepository) GetByOrderID(ctx context.Context, accountID, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("ebay_account_id = ? AND order_id = ?", accountID, orderID).
		First(&order).Error
	if err != nil {
		return nil, wrapErr("get order", err)
	}
	return &order, nil
}

func (r *orderRepository) CountByAccount(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).Where("ebay_account_id = ?", accountID).Count(&count).Error
	return count, wrapErr("count orders", err)
}
