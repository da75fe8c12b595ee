package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// sendMask permissions a bot needs to post an embed in a channel
const sendMask = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionEmbedLinks

// ==================== Transport ====================

// Transport delivers notifications through a discordgo session
type Transport struct {
	session *discordgo.Session
}

// NewSession creates a bot session with the intents the notifier relies on.
// Guild state is needed to resolve channel permissions.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("discord token is empty")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages
	s.StateEnabled = true
	return s, nil
}

// NewTransport wraps an opened session
func NewTransport(session *discordgo.Session) *Transport {
	return &Transport{session: session}
}

// FetchChannel resolves a channel by id
func (t *Transport) FetchChannel(ctx context.Context, channelID string) (*Channel, error) {
	ch, err := t.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	if ch == nil {
		return nil, nil
	}
	return &Channel{
		ID:      ch.ID,
		GuildID: ch.GuildID,
		Text:    ch.GuildID != "" && isTextChannel(ch.Type),
	}, nil
}

// CanSend reports whether the bot may post embeds in the channel
func (t *Transport) CanSend(ctx context.Context, ch *Channel) (bool, error) {
	if t.session.State == nil || t.session.State.User == nil {
		return false, errors.New("discord session is not ready")
	}
	perms, err := t.session.UserChannelPermissions(t.session.State.User.ID, ch.ID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("resolve permissions for %s: %w", ch.ID, err)
	}
	return perms&sendMask == sendMask, nil
}

// OpenDM returns the direct-message channel id for a user
func (t *Transport) OpenDM(ctx context.Context, userID string) (string, error) {
	ch, err := t.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("open dm with %s: %w", userID, err)
	}
	return ch.ID, nil
}

// Send posts one message
func (t *Transport) Send(ctx context.Context, channelID string, msg Message) error {
	_, err := t.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send to %s: %w", channelID, err)
	}
	return nil
}

func isTextChannel(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	default:
		return false
	}
}

// ==================== Conversion ====================

func toMessageSend(msg Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content: msg.Content,
		Embeds:  make([]*discordgo.MessageEmbed, 0, len(msg.Embeds)),
	}
	for _, e := range msg.Embeds {
		send.Embeds = append(send.Embeds, toMessageEmbed(e))
	}
	return send
}

func toMessageEmbed(e Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if !e.Timestamp.IsZero() {
		embed.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return embed
}
