package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/repository"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/logger"
)

// ==================== Dependencies ====================

// AccessTokenSource yields a usable access token for an account
type AccessTokenSource interface {
	GetValidAccessToken(ctx context.Context, account *model.EbayAccount) (string, error)
}

// OrderSyncer runs the order walk
type OrderSyncer interface {
	SyncOrders(ctx context.Context, account *model.EbayAccount, accessToken string) (*OrderSyncResult, error)
}

// TrackingSyncer runs the tracking pass
type TrackingSyncer interface {
	SyncTrackings(ctx context.Context, account *model.EbayAccount) (*TrackingSyncResult, error)
}

// ==================== AccountSyncService ====================

// AccountStatus sync state of one account, safe to expose
type AccountStatus struct {
	ID                 string     `json:"id"`
	DiscordUserID      string     `json:"discord_user_id"`
	EbayUserID         string     `json:"ebay_user_id"`
	Environment        string     `json:"environment"`
	HasAccessToken     bool       `json:"has_access_token"`
	AccessTokenExpires *time.Time `json:"access_token_expires_at,omitempty"`
	LastOrderSyncAt    *time.Time `json:"last_order_sync_at,omitempty"`
	LastTrackingSyncAt *time.Time `json:"last_tracking_sync_at,omitempty"`
}

// AccountSyncService runs one account through credentials, orders and trackings
type AccountSyncService struct {
	accounts     repository.AccountRepository
	credentials  AccessTokenSource
	orderSync    OrderSyncer
	trackingSync TrackingSyncer
	log          *zap.Logger
}

// NewAccountSyncService creates the account pass. trackingSync may be nil when no provider is configured.
func NewAccountSyncService(
	accounts repository.AccountRepository,
	credentials AccessTokenSource,
	orderSync OrderSyncer,
	trackingSync TrackingSyncer,
	log *zap.Logger,
) *AccountSyncService {
	return &AccountSyncService{
		accounts:     accounts,
		credentials:  credentials,
		orderSync:    orderSync,
		trackingSync: trackingSync,
		log:          logger.OrGlobal(log).Named("account_sync"),
	}
}

// ListAccounts every linked account without credentials
func (s *AccountSyncService) ListAccounts(ctx context.Context) ([]AccountStatus, error) {
	accounts, err := s.accounts.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	statuses := make([]AccountStatus, 0, len(accounts))
	for _, a := range accounts {
		statuses = append(statuses, AccountStatus{
			ID:                 a.ID,
			DiscordUserID:      a.DiscordUserID,
			EbayUserID:         a.EbayUserID,
			Environment:        a.Environment,
			HasAccessToken:     a.AccessTokenEnc != nil,
			AccessTokenExpires: a.AccessTokenExpiresAt,
			LastOrderSyncAt:    a.LastOrderSyncAt,
			LastTrackingSyncAt: a.LastTrackingSyncAt,
		})
	}
	return statuses, nil
}

// ListForSync full account rows for a sweep
func (s *AccountSyncService) ListForSync(ctx context.Context) ([]model.EbayAccount, error) {
	return s.accounts.ListAll(ctx)
}

// Unlink removes the account and everything hanging off it
func (s *AccountSyncService) Unlink(ctx context.Context, accountID string) error {
	if err := s.accounts.Unlink(ctx, accountID); err != nil {
		return err
	}
	s.log.Info("account unlinked", zap.String("account_id", accountID))
	return nil
}

// SyncAccount credentials, then orders, then trackings. Tracking is skipped when the order walk fails.
// Orders that failed individually do not stop tracking sync but are reported as ErrOrdersIncomplete.
func (s *AccountSyncService) SyncAccount(ctx context.Context, account *model.EbayAccount) error {
	token, err := s.credentials.GetValidAccessToken(ctx, account)
	if err != nil {
		return fmt.Errorf("access token: %w", err)
	}

	orders, err := s.orderSync.SyncOrders(ctx, account, token)
	if err != nil {
		return fmt.Errorf("order sync: %w", err)
	}

	if s.trackingSync == nil {
		s.log.Debug("skipping tracking sync, no provider configured", zap.String("account_id", account.ID))
	} else if _, err := s.trackingSync.SyncTrackings(ctx, account); err != nil {
		return fmt.Errorf("tracking sync: %w", err)
	}

	if orders != nil && orders.Failures > 0 {
		return fmt.Errorf("order sync: %w: %d of %d orders", ErrOrdersIncomplete, orders.Failures, orders.Orders)
	}
	return nil
}
