package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/repository"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/ebay"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/logger"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/net"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/secret"
)

// ==================== Dependencies ====================

// TokenRefresher exchanges a refresh token for a new access token
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, req ebay.RefreshReq) (*ebay.TokenResp, error)
}

// ==================== CredentialService ====================

// CredentialConfig credential manager settings
type CredentialConfig struct {
	EncryptionKey string
	ClientID      string
	ClientSecret  string
	// DefaultScopes requested for accounts that stored none
	DefaultScopes string
	// Leeway a token expiring sooner than this is refreshed
	Leeway time.Duration
	// Attempts refresh calls before giving up, including the first
	Attempts int
	// Backoff grows linearly: attempt n waits n*Backoff
	Backoff time.Duration
}

// DefaultCredentialConfig 60s leeway, 3 attempts, 1s linear backoff
func DefaultCredentialConfig() CredentialConfig {
	return CredentialConfig{
		Leeway:   60 * time.Second,
		Attempts: 3,
		Backoff:  time.Second,
	}
}

// CredentialService keeps account access tokens fresh and encrypted at rest
type CredentialService struct {
	accounts  repository.AccountRepository
	refresher TokenRefresher
	cfg       CredentialConfig
	log       *zap.Logger
	now       func() time.Time
}

// NewCredentialService creates the credential manager
func NewCredentialService(accounts repository.AccountRepository, refresher TokenRefresher, cfg CredentialConfig, log *zap.Logger) *CredentialService {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	return &CredentialService{
		accounts:  accounts,
		refresher: refresher,
		cfg:       cfg,
		log:       logger.OrGlobal(log).Named("credentials"),
		now:       time.Now,
	}
}

// GetValidAccessToken returns a plaintext access token valid for at least the leeway,
// refreshing and persisting a new one when needed. account is updated in place.
func (s *CredentialService) GetValidAccessToken(ctx context.Context, account *model.EbayAccount) (string, error) {
	now := s.now()
	if account.AccessTokenEnc != nil && account.AccessTokenExpiresAt != nil &&
		account.AccessTokenExpiresAt.After(now.Add(s.cfg.Leeway)) {
		token, err := secret.DecryptString(*account.AccessTokenEnc, s.cfg.EncryptionKey)
		if err != nil {
			return "", fmt.Errorf("%w: access token: %w", ErrCredentialUnreadable, err)
		}
		return token, nil
	}

	refreshToken, err := secret.DecryptString(account.RefreshTokenEnc, s.cfg.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: refresh token: %w", ErrCredentialUnreadable, err)
	}

	resp, err := s.refresh(ctx, account, refreshToken)
	if err != nil {
		return "", err
	}

	expiresAt := s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	enc, err := secret.EncryptString(resp.AccessToken, s.cfg.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("encrypt access token: %w", err)
	}

	if err := s.accounts.UpdateAccessToken(ctx, account.ID, enc, expiresAt); err != nil {
		s.log.Warn("persist refreshed access token failed",
			zap.String("account_id", account.ID), zap.Error(err))
	}
	account.AccessTokenEnc = &enc
	account.AccessTokenExpiresAt = &expiresAt

	return resp.AccessToken, nil
}

func (s *CredentialService) refresh(ctx context.Context, account *model.EbayAccount, refreshToken string) (*ebay.TokenResp, error) {
	scopes := account.Scopes
	if scopes == "" {
		scopes = s.cfg.DefaultScopes
	}
	if scopes == "" {
		scopes = ebay.DefaultScope
	}
	req := ebay.RefreshReq{
		Environment:  ebay.Environment(account.Environment),
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		RefreshToken: refreshToken,
		Scopes:       scopes,
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		resp, err := s.refresher.RefreshAccessToken(ctx, req)
		if err == nil {
			return resp, nil
		}
		if net.IsAuthRejected(err) {
			return nil, fmt.Errorf("%w: %w", ErrAuthInvalid, err)
		}
		if !net.IsTransient(err) {
			return nil, fmt.Errorf("refresh access token: %w", err)
		}
		lastErr = err
		if attempt == s.cfg.Attempts {
			break
		}

		s.log.Warn("refresh access token failed, retrying",
			zap.String("account_id", account.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if err := sleepCtx(ctx, time.Duration(attempt)*s.cfg.Backoff); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("refresh access token after %d attempts: %w", s.cfg.Attempts, lastErr)
}

// sleepCtx waits d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsReauthRequired true when the account cannot proceed until the seller links again
func IsReauthRequired(err error) bool {
	return errors.Is(err, ErrAuthInvalid) || errors.Is(err, ErrCredentialUnreadable)
}
