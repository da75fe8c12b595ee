package model

import "time"

// ==================== Guild ====================

// GuildSettings per-guild notification preferences
type GuildSettings struct {
	GuildID         string    `gorm:"primaryKey;size:32" json:"guild_id"`
	NotifyChannelID *string   `gorm:"size:32" json:"notify_channel_id"`
	MentionRoleID   *string   `gorm:"size:32" json:"mention_role_id"`
	SendChannel     bool      `gorm:"not null" json:"send_channel"`
	SendDM          bool      `gorm:"column:send_dm;not null" json:"send_dm"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (GuildSettings) TableName() string { return "guild_settings" }

// NewGuildSettings settings with channel and DM delivery enabled
func NewGuildSettings(guildID string) *GuildSettings {
	return &GuildSettings{GuildID: guildID, SendChannel: true, SendDM: true}
}

// GuildAccountLink a guild member subscribed to an eBay account
type GuildAccountLink struct {
	BaseModel
	GuildID       string `gorm:"size:32;not null;uniqueIndex:uk_guild_links_guild_user,priority:1" json:"guild_id"`
	DiscordUserID string `gorm:"size:32;not null;uniqueIndex:uk_guild_links_guild_user,priority:2" json:"discord_user_id"`
	EbayAccountID string `gorm:"size:36;not null;index" json:"ebay_account_id"`
}

func (GuildAccountLink) TableName() string { return "guild_ebay_accounts" }

// NotificationTarget a link joined with its guild's settings, not stored
type NotificationTarget struct {
	GuildID         string
	DiscordUserID   string
	NotifyChannelID string
	MentionRoleID   string
	SendChannel     bool
	SendDM          bool
}

// AllModels every table the notifier migrates
func AllModels() []any {
	return []any{
		&EbayAccount{},
		&Order{},
		&ShipmentTracking{},
		&GuildSettings{},
		&GuildAccountLink{},
	}
}
