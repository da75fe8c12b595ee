package repository

import (
	"context"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==================== GuildRepository ====================

// GuildRepository guild settings, account links and the notification targets derived from them
type GuildRepository interface {
	UpsertSettings(ctx context.Context, settings *model.GuildSettings) error
	UpsertLink(ctx context.Context, link *model.GuildAccountLink) error
	ListTargetsByAccount(ctx context.Context, accountID string) ([]model.NotificationTarget, error)
	// ListTargetsByEbayUser targets for every account sharing the seller identity
	ListTargetsByEbayUser(ctx context.Context, environment, ebayUserID string) ([]model.NotificationTarget, error)
}

type guildRepository struct {
	db *gorm.DB
}

// NewGuildRepository creates the guild repository
func NewGuildRepository(db *gorm.DB) GuildRepository {
	return &guildRepository{db: db}
}

func (r *guildRepository) UpsertSettings(ctx context.Context, settings *model.GuildSettings) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"notify_channel_id", "mention_role_id", "send_channel", "send_dm", "updated_at",
		}),
	}).Create(settings).Error
	return wrapErr("upsert guild settings", err)
}

func (r *guildRepository) UpsertLink(ctx context.Context, link *model.GuildAccountLink) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}, {Name: "discord_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"ebay_account_id", "updated_at"}),
	}).Create(link).Error
	return wrapErr("upsert guild link", err)
}

// targetRow left-joined settings may be missing entirely
type targetRow struct {
	GuildID         string
	DiscordUserID   string
	NotifyChannelID *string
	MentionRoleID   *string
	SendChannel     *bool
	SendDM          *bool `gorm:"column:send_dm"`
}

func (r *guildRepository) targetsQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("guild_ebay_accounts AS l").
		Select("l.guild_id, l.discord_user_id, s.notify_channel_id, s.mention_role_id, s.send_channel, s.send_dm").
		Joins("LEFT JOIN guild_settings AS s ON s.guild_id = l.guild_id").
		Order("l.created_at ASC")
}

func (r *guildRepository) ListTargetsByAccount(ctx context.Context, accountID string) ([]model.NotificationTarget, error) {
	var rows []targetRow
	err := r.targetsQuery(ctx).Where("l.ebay_account_id = ?", accountID).Scan(&rows).Error
	if err != nil {
		return nil, wrapErr("list notification targets", err)
	}
	return toTargets(rows), nil
}

func (r *guildRepository) ListTargetsByEbayUser(ctx context.Context, environment, ebayUserID string) ([]model.NotificationTarget, error) {
	var rows []targetRow
	err := r.targetsQuery(ctx).
		Joins("JOIN ebay_accounts AS a ON a.id = l.ebay_account_id").
		Where("a.environment = ? AND a.ebay_user_id = ?", environment, ebayUserID).
		Scan(&rows).Error
	if err != nil {
		return nil, wrapErr("list notification targets by ebay user", err)
	}
	return toTargets(rows), nil
}

func toTargets(rows []targetRow) []model.NotificationTarget {
	targets := make([]model.NotificationTarget, 0, len(rows))
	for _, row := range rows {
		targets = append(targets, model.NotificationTarget{
			GuildID:         row.GuildID,
			DiscordUserID:   row.DiscordUserID,
			NotifyChannelID: deref(row.NotifyChannelID),
			MentionRoleID:   deref(row.MentionRoleID),
			SendChannel:     row.SendChannel == nil || *row.SendChannel,
			SendDM:          row.SendDM == nil || *row.SendDM,
		})
	}
	return targets
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
