package repository

import (
	"context"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== TrackingRepository ====================

// TrackingRepository shipment tracking persistence, keyed by (account, tracking number)
type TrackingRepository interface {
	// Upsert creates the row or refreshes its order/fulfillment/carrier fields.
	// Provider progress on an existing row is never reset.
	Upsert(ctx context.Context, tracking *model.ShipmentTracking) error
	ListByAccount(ctx context.Context, accountID string) ([]model.ShipmentTracking, error)
	GetByNumber(ctx context.Context, accountID, trackingNumber string) (*model.ShipmentTracking, error)
	UpdateProviderRef(ctx context.Context, id, providerRef string) error
	UpdateProgress(ctx context.Context, id string, progress model.TrackingProgress) error
	CountByAccount(ctx context.Context, accountID string) (int64, error)
}

type trackingRepository struct {
	db *gorm.DB
}

// NewTrackingRepository creates the tracking repository
func NewTrackingRepository(db *gorm.DB) TrackingRepository {
	return &trackingRepository{db: db}
}

func (r *trackingRepository) Upsert(ctx context.Context, tracking *model.ShipmentTracking) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ebay_account_id"}, {Name: "tracking_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"order_id", "fulfillment_id", "carrier_code", "updated_at",
		}),
	}).Create(tracking).Error
	return wrapErr("upsert tracking", err)
}

func (r *trackingRepository) ListByAccount(ctx context.Context, accountID string) ([]model.ShipmentTracking, error) {
	var trackings []model.ShipmentTracking
	err := r.db.WithContext(ctx).
		Where("ebay_account_id = ?", accountID).
		Order("created_at ASC").
		Find(&trackings).Error
	return trackings, wrapErr("list trackings", err)
}

func (r *trackingRepository) GetByNumber(ctx context.Context, accountID, trackingNumber string) (*model.ShipmentTracking, error) {
	var tracking model.ShipmentTracking
	err := r.db.WithContext(ctx).
		Where("ebay_account_id = ? AND tracking_number = ?", accountID, trackingNumber).
		First(&tracking).Error
	if err != nil {
		return nil, wrapErr("get tracking", err)
	}
	return &tracking, nil
}

func (r *trackingRepository) UpdateProviderRef(ctx context.Context, id, providerRef string) error {
	return r.updateFields(ctx, "update provider ref", id, map[string]interface{}{
		"provider_ref": providerRef,
	})
}

// UpdateProgress writes the progress fields that are set, nil fields keep their stored value
func (r *trackingRepository) UpdateProgress(ctx context.Context, id string, p model.TrackingProgress) error {
	fields := map[string]interface{}{}
	if p.ProviderRef != nil {
		fields["provider_ref"] = *p.ProviderRef
	}
	if p.LastCheckpointAt != nil {
		fields["last_checkpoint_at"] = *p.LastCheckpointAt
	}
	if p.DeliveredAt != nil {
		fields["delivered_at"] = *p.DeliveredAt
	}
	if p.LastTag != nil {
		fields["last_tag"] = *p.LastTag
	}
	if p.LastCheckpointSummary != nil {
		fields["last_checkpoint_summary"] = *p.LastCheckpointSummary
	}
	if len(p.LastSnapshot) > 0 {
		fields["last_snapshot"] = p.LastSnapshot
	}
	if len(fields) == 0 {
		return nil
	}
	return r.updateFields(ctx, "update tracking progress", id, fields)
}

func (r *trackingRepository) CountByAccount(ctx context.Context, accountID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ShipmentTracking{}).Where("ebay_account_id = ?", accountID).Count(&count).Error
	return count, wrapErr("count trackings", err)
}

func (r *trackingRepository) updateFields(ctx context.Context, op, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.ShipmentTracking{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return wrapErr(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapErr(op, ErrNotFound)
	}
	return nil
}
