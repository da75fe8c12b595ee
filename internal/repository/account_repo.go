package repository

import (
	"context"
	"time"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"

	"gorm.io/gorm"
)

// ==================== AccountRepository ====================

// SyncMarkers nil fields are left untouched
type SyncMarkers struct {
	LastOrderSyncAt    *time.Time
	LastTrackingSyncAt *time.Time
}

// AccountRepository eBay account persistence
type AccountRepository interface {
	Create(ctx context.Context, account *model.EbayAccount) error
	GetByID(ctx context.Context, id string) (*model.EbayAccount, error)
	ListAll(ctx context.Context) ([]model.EbayAccount, error)
	UpdateAccessToken(ctx context.Context, id, accessTokenEnc string, expiresAt time.Time) error
	UpdateSyncMarkers(ctx context.Context, id string, markers SyncMarkers) error
	// Unlink deletes the account with its orders, trackings and guild links
	Unlink(ctx context.Context, id string) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates the account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *model.EbayAccount) error {
	return wrapErr("create account", r.db.WithContext(ctx).Create(account).Error)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*model.EbayAccount, error) {
	var account model.EbayAccount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, wrapErr("get account", err)
	}
	return &account, nil
}

func (r *accountRepository) ListAll(ctx context.Context) ([]model.EbayAccount, error) {
	var accounts []model.EbayAccount
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&accounts).Error
	return accounts, wrapErr("list accounts", err)
}

func (r *accountRepository) UpdateAccessToken(ctx context.Context, id, accessTokenEnc string, expiresAt time.Time) error {
	return r.updateFields(ctx, "update access token", id, map[string]interface{}{
		"access_token_enc":        accessTokenEnc,
		"access_token_expires_at": expiresAt,
	})
}

func (r *accountRepository) UpdateSyncMarkers(ctx context.Context, id string, markers SyncMarkers) error {
	fields := map[string]interface{}{}
	if markers.LastOrderSyncAt != nil {
		fields["last_order_sync_at"] = *markers.LastOrderSyncAt
	}
	if markers.LastTrackingSyncAt != nil {
		fields["last_tracking_sync_at"] = *markers.LastTrackingSyncAt
	}
	if len(fields) == 0 {
		return nil
	}
	return r.updateFields(ctx, "update sync markers", id, fields)
}

func (r *accountRepository) updateFields(ctx context.Context, op, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.EbayAccount{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return wrapErr(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapErr(op, ErrNotFound)
	}
	return nil
}

func (r *accountRepository) Unlink(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ebay_account_id = ?", id).Delete(&model.GuildAccountLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ebay_account_id = ?", id).Delete(&model.ShipmentTracking{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ebay_account_id = ?", id).Delete(&model.Order{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.EbayAccount{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return wrapErr("unlink account", err)
}
