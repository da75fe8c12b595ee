package model

import (
	"strings"
	"time"
)

// ==================== EbayAccount ====================

// Environment eBay environment an account lives in
const (
	EnvProduction = "production"
	EnvSandbox    = "sandbox"
)

// EbayAccount a linked seller identity and its encrypted credentials
type EbayAccount struct {
	BaseModel
	DiscordUserID string `gorm:"size:32;not null;uniqueIndex:uk_ebay_accounts_env_user,priority:2" json:"discord_user_id"`
	EbayUserID    string `gorm:"size:128;not null;index:idx_ebay_accounts_ebay_user" json:"ebay_user_id"`
	Environment   string `gorm:"size:16;not null;uniqueIndex:uk_ebay_accounts_env_user,priority:1" json:"environment"`
	// Scopes space separated
	Scopes string `gorm:"type:text;not null" json:"scopes"`

	// --- credentials, secret codec envelopes ---
	AccessTokenEnc        *string    `gorm:"type:text" json:"-"`
	AccessTokenExpiresAt  *time.Time `json:"access_token_expires_at"`
	RefreshTokenEnc       string     `gorm:"type:text;not null" json:"-"`
	RefreshTokenExpiresAt *time.Time `json:"refresh_token_expires_at"`

	// --- sync markers ---
	LastOrderSyncAt    *time.Time `json:"last_order_sync_at"`
	LastTrackingSyncAt *time.Time `json:"last_tracking_sync_at"`
}

func (EbayAccount) TableName() string { return "ebay_accounts" }

// HasKnownEbayUser false for accounts linked before the eBay user id was resolved
func (a *EbayAccount) HasKnownEbayUser() bool {
	id := strings.TrimSpace(a.EbayUserID)
	return id != "" && id != "unknown"
}
