package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/discord"
)

func textChannel(guildID, id string) *discord.Channel {
	return &discord.Channel{ID: id, GuildID: guildID, Text: true}
}

func embeds(n int) []discord.Embed {
	out := make([]discord.Embed, n)
	for i := range out {
		out[i] = discord.Embed{Title: fmt.Sprintf("e%d", i)}
	}
	return out
}

func outcomeFor(outcomes []DeliveryOutcome, channelID string) (DeliveryOutcome, bool) {
	for _, o := range outcomes {
		if o.ChannelID == channelID {
			return o, true
		}
	}
	return DeliveryOutcome{}, false
}

func TestNotify_FailureIsIsolated(t *testing.T) {
	transport := &fakeTransport{
		channels: map[string]*discord.Channel{
			"c1": textChannel("g1", "c1"),
			"c2": textChannel("g2", "c2"),
		},
		failSend: map[string]bool{"c2": true},
	}
	n := NewNotifier(transport, nil)

	targets := []model.NotificationTarget{
		{GuildID: "g1", DiscordUserID: "u1", NotifyChannelID: "c1", SendChannel: true},
		{GuildID: "g2", DiscordUserID: "u2", NotifyChannelID: "c2", SendChannel: true},
		{GuildID: "g3", DiscordUserID: "u3", SendDM: true},
	}
	outcomes := n.Notify(t.Context(), targets, NotificationBatch{Embeds: embeds(1)})
	require.Len(t, outcomes, 3)

	c1, ok := outcomeFor(outcomes, "c1")
	require.True(t, ok)
	assert.Equal(t, DeliverySent, c1.Status)

	c2, ok := outcomeFor(outcomes, "c2")
	require.True(t, ok)
	assert.Equal(t, DeliveryFailed, c2.Status)
	assert.Error(t, c2.Err)

	dm, ok := outcomeFor(outcomes, "dm-u3")
	require.True(t, ok)
	assert.Equal(t, DeliverySent, dm.Status)
	assert.Equal(t, DeliveryDM, dm.Kind)

	assert.Len(t, transport.sentTo("c1"), 1)
	assert.Len(t, transport.sentTo("dm-u3"), 1)
}

func TestNotify_DMFailureIsIsolated(t *testing.T) {
	transport := &fakeTransport{
		failDM:   map[string]bool{"u2": true},
		failSend: map[string]bool{"dm-u3": true},
	}
	n := NewNotifier(transport, nil)

	targets := []model.NotificationTarget{
		{GuildID: "g1", DiscordUserID: "u1", SendDM: true},
		{GuildID: "g1", DiscordUserID: "u2", SendDM: true},
		{GuildID: "g2", DiscordUserID: "u3", SendDM: true},
		{GuildID: "g2", DiscordUserID: "u4", SendDM: true},
	}
	outcomes := n.Notify(t.Context(), targets, NotificationBatch{Embeds: embeds(2)})
	require.Len(t, outcomes, 4)

	byUser := make(map[string]DeliveryOutcome)
	for _, o := range outcomes {
		assert.Equal(t, DeliveryDM, o.Kind)
		byUser[o.UserID] = o
	}

	assert.Equal(t, DeliverySent, byUser["u1"].Status)
	assert.Equal(t, DeliverySent, byUser["u4"].Status)

	assert.Equal(t, DeliverySkipped, byUser["u2"].Status)
	assert.Equal(t, "open DM failed", byUser["u2"].Reason)
	assert.Error(t, byUser["u2"].Err)

	assert.Equal(t, DeliveryFailed, byUser["u3"].Status)
	assert.Error(t, byUser["u3"].Err)

	assert.Len(t, transport.sentTo("dm-u1"), 1)
	assert.Len(t, transport.sentTo("dm-u4"), 1)
	assert.Empty(t, transport.sentTo("dm-u3"))
}

func TestNotify_GroupsChannelsAndChunks(t *testing.T) {
	transport := &fakeTransport{channels: map[string]*discord.Channel{"c1": textChannel("g1", "c1")}}
	n := NewNotifier(transport, nil)

	targets := []model.NotificationTarget{
		{GuildID: "g1", DiscordUserID: "u1", NotifyChannelID: "c1", MentionRoleID: "r1", SendChannel: true},
		{GuildID: "g1", DiscordUserID: "u2", NotifyChannelID: "c1", MentionRoleID: "r1", SendChannel: true},
		{GuildID: "g1", DiscordUserID: "u1", NotifyChannelID: "c1", MentionRoleID: "r2", SendChannel: true},
	}
	outcomes := n.Notify(t.Context(), targets, NotificationBatch{Embeds: embeds(12), PingUserInChannel: true})
	require.Len(t, outcomes, 1)
	assert.Equal(t, DeliverySent, outcomes[0].Status)

	msgs := transport.sentTo("c1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "<@&r1> <@&r2> <@u1> <@u2>", msgs[0].Content)
	assert.Len(t, msgs[0].Embeds, 10)
	assert.Equal(t, "e0", msgs[0].Embeds[0].Title)
	assert.Empty(t, msgs[1].Content)
	assert.Len(t, msgs[1].Embeds, 2)
	assert.Equal(t, "e11", msgs[1].Embeds[1].Title)
}

func TestNotify_RolesOnlyWithoutPing(t *testing.T) {
	transport := &fakeTransport{channels: map[string]*discord.Channel{"c1": textChannel("g1", "c1")}}
	n := NewNotifier(transport, nil)

	targets := []model.NotificationTarget{
		{GuildID: "g1", DiscordUserID: "u1", NotifyChannelID: "c1", MentionRoleID: "r1", SendChannel: true, SendDM: true},
	}
	n.Notify(t.Context(), targets, NotificationBatch{Embeds: embeds(1)})

	msgs := transport.sentTo("c1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "<@&r1>", msgs[0].Content)

	dms := transport.sentTo("dm-u1")
	require.Len(t, dms, 1)
	assert.Empty(t, dms[0].Content)
}

func TestNotify_SkipsUnusableChannels(t *testing.T) {
	transport := &fakeTransport{
		channels: map[string]*discord.Channel{
			"voice":  {ID: "voice", GuildID: "g1", Text: false},
			"locked": textChannel("g1", "locked"),
		},
		denied: map[string]bool{"locked": true},
	}
	n := NewNotifier(transport, nil)

	targets := []model.NotificationTarget{
		{GuildID: "g1", DiscordUserID: "u1", NotifyChannelID: "voice", SendChannel: true},
		{GuildID: "g1", DiscordUserID: "u1", NotifyChannelID: "locked", SendChannel: true},
		{GuildID: "g1", DiscordUserID: "u1", NotifyChannelID: "gone", SendChannel: true},
		{GuildID: "g2", DiscordUserID: "u2", NotifyChannelID: "ignored", SendChannel: false},
	}
	outcomes := n.Notify(t.Context(), targets, NotificationBatch{Embeds: embeds(1)})
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Equal(t, DeliverySkipped, o.Status, o.ChannelID)
	}
	assert.Empty(t, transport.sent)
}

func TestNotify_EmptyBatch(t *testing.T) {
	transport := &fakeTransport{}
	n := NewNotifier(transport, nil)
	assert.Nil(t, n.Notify(t.Context(), []model.NotificationTarget{{DiscordUserID: "u1", SendDM: true}}, NotificationBatch{}))
}
