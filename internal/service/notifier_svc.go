package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/discord"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/logger"
)

// ==================== Dependencies ====================

// NotificationTransport the messaging operations the notifier needs
type NotificationTransport interface {
	// FetchChannel returns nil when the channel does not exist
	FetchChannel(ctx context.Context, channelID string) (*discord.Channel, error)
	CanSend(ctx context.Context, ch *discord.Channel) (bool, error)
	// OpenDM returns the direct-message channel id for a user
	OpenDM(ctx context.Context, userID string) (string, error)
	Send(ctx context.Context, channelID string, msg discord.Message) error
}

// ==================== Types ====================

// NotificationBatch the embeds collected for one account in one pass
type NotificationBatch struct {
	Embeds []discord.Embed
	// PingUserInChannel also mention subscribers in channel messages
	PingUserInChannel bool
}

// DeliveryKind where a notification went
type DeliveryKind string

const (
	DeliveryChannel DeliveryKind = "channel"
	DeliveryDM      DeliveryKind = "dm"
)

// DeliveryStatus outcome of one destination
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliverySkipped DeliveryStatus = "skipped"
	DeliveryFailed  DeliveryStatus = "failed"
)

// DeliveryOutcome result for one destination
type DeliveryOutcome struct {
	Kind      DeliveryKind
	GuildID   string
	ChannelID string
	UserID    string
	Status    DeliveryStatus
	Reason    string
	Err       error
}

// channelDestination targets merged by (guild, channel)
type channelDestination struct {
	guildID   string
	channelID string
	roles     []string
	users     []string
}

var (
	errChannelMissing = errors.New("channel not found")
	errNotTextChannel = errors.New("not a guild text channel")
	errNoPermission   = errors.New("missing view/send/embed permission")
)

// ==================== Notifier ====================

// Notifier fans a batch out to every channel and DM destination concurrently
type Notifier struct {
	transport NotificationTransport
	log       *zap.Logger
}

// NewNotifier creates the fan-out notifier
func NewNotifier(transport NotificationTransport, log *zap.Logger) *Notifier {
	return &Notifier{
		transport: transport,
		log:       logger.OrGlobal(log).Named("notifier"),
	}
}

// Notify delivers batch to all destinations derived from targets.
// A failing destination never prevents delivery to the others.
func (n *Notifier) Notify(ctx context.Context, targets []model.NotificationTarget, batch NotificationBatch) []DeliveryOutcome {
	if len(batch.Embeds) == 0 {
		return nil
	}

	channels := groupChannelDestinations(targets)
	dmUsers := collectDMUsers(targets)
	chunks := chunkEmbeds(batch.Embeds, discord.MaxEmbedsPerMessage)

	outcomes := make([]DeliveryOutcome, len(channels)+len(dmUsers))
	var g errgroup.Group

	for i, dest := range channels {
		g.Go(func() error {
			outcomes[i] = n.deliverChannel(ctx, dest, chunks, batch.PingUserInChannel)
			return nil
		})
	}
	for j, userID := range dmUsers {
		idx := len(channels) + j
		g.Go(func() error {
			outcomes[idx] = n.deliverDM(ctx, userID, chunks)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		fields := []zap.Field{
			zap.String("kind", string(o.Kind)),
			zap.String("status", string(o.Status)),
			zap.String("guild_id", o.GuildID),
			zap.String("channel_id", o.ChannelID),
			zap.String("user_id", o.UserID),
		}
		switch o.Status {
		case DeliveryFailed:
			n.log.Warn("notification delivery failed", append(fields, zap.Error(o.Err))...)
		case DeliverySkipped:
			n.log.Info("notification destination skipped", append(fields, zap.String("reason", o.Reason))...)
		default:
			n.log.Debug("notification delivered", fields...)
		}
	}
	return outcomes
}

func (n *Notifier) deliverChannel(ctx context.Context, dest channelDestination, chunks [][]discord.Embed, pingUsers bool) DeliveryOutcome {
	out := DeliveryOutcome{Kind: DeliveryChannel, GuildID: dest.guildID, ChannelID: dest.channelID}

	ch, err := n.transport.FetchChannel(ctx, dest.channelID)
	if err != nil {
		return skipped(out, "fetch channel failed", err)
	}
	if ch == nil {
		return skipped(out, "channel not found", errChannelMissing)
	}
	if !ch.Text || ch.GuildID == "" {
		return skipped(out, "not a guild text channel", errNotTextChannel)
	}
	ok, err := n.transport.CanSend(ctx, ch)
	if err != nil {
		return skipped(out, "permission check failed", err)
	}
	if !ok {
		return skipped(out, "missing permissions", errNoPermission)
	}

	content := mentionContent(dest, pingUsers)
	for i, chunk := range chunks {
		msg := discord.Message{Embeds: chunk}
		if i == 0 {
			msg.Content = content
		}
		if err := n.transport.Send(ctx, ch.ID, msg); err != nil {
			out.Status, out.Err = DeliveryFailed, err
			return out
		}
	}
	out.Status = DeliverySent
	return out
}

func (n *Notifier) deliverDM(ctx context.Context, userID string, chunks [][]discord.Embed) DeliveryOutcome {
	out := DeliveryOutcome{Kind: DeliveryDM, UserID: userID}

	// an unreachable user is skipped like an unusable channel, only send errors count as failed
	channelID, err := n.transport.OpenDM(ctx, userID)
	if err != nil {
		return skipped(out, "open DM failed", err)
	}
	out.ChannelID = channelID

	for _, chunk := range chunks {
		if err := n.transport.Send(ctx, channelID, discord.Message{Embeds: chunk}); err != nil {
			out.Status, out.Err = DeliveryFailed, err
			return out
		}
	}
	out.Status = DeliverySent
	return out
}

func skipped(out DeliveryOutcome, reason string, err error) DeliveryOutcome {
	out.Status = DeliverySkipped
	out.Reason = reason
	out.Err = err
	return out
}

// ==================== Helpers ====================

// groupChannelDestinations merges channel targets by (guild, channel), keeping first-seen order
func groupChannelDestinations(targets []model.NotificationTarget) []channelDestination {
	var dests []channelDestination
	index := make(map[[2]string]int)

	for _, t := range targets {
		if !t.SendChannel || t.NotifyChannelID == "" {
			continue
		}
		key := [2]string{t.GuildID, t.NotifyChannelID}
		i, ok := index[key]
		if !ok {
			i = len(dests)
			index[key] = i
			dests = append(dests, channelDestination{guildID: t.GuildID, channelID: t.NotifyChannelID})
		}
		d := &dests[i]
		if t.MentionRoleID != "" {
			d.roles = appendUnique(d.roles, t.MentionRoleID)
		}
		if t.DiscordUserID != "" {
			d.users = appendUnique(d.users, t.DiscordUserID)
		}
	}
	return dests
}

func collectDMUsers(targets []model.NotificationTarget) []string {
	var users []string
	for _, t := range targets {
		if t.SendDM && t.DiscordUserID != "" {
			users = appendUnique(users, t.DiscordUserID)
		}
	}
	return users
}

func mentionContent(dest channelDestination, pingUsers bool) string {
	var mentions []string
	for _, role := range dest.roles {
		mentions = append(mentions, "<@&"+role+">")
	}
	if pingUsers {
		for _, user := range dest.users {
			mentions = append(mentions, "<@"+user+">")
		}
	}
	return strings.Join(mentions, " ")
}

func chunkEmbeds(embeds []discord.Embed, size int) [][]discord.Embed {
	var chunks [][]discord.Embed
	for start := 0; start < len(embeds); start += size {
		end := min(start+size, len(embeds))
		chunks = append(chunks, embeds[start:end])
	}
	return chunks
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
