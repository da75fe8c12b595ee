package service

import (
	"time"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/discord"
)

var eventTitles = map[TrackingEvent]string{
	EventCarrierScan: "Carrier scan received",
	EventMovement:    "Shipment update",
	EventDelivered:   "Delivered",
	EventDelay:       "Delivery issue detected",
}

var eventColors = map[TrackingEvent]int{
	EventDelivered:   0x22c55e,
	EventDelay:       0xef4444,
	EventCarrierScan: 0x3b82f6,
	EventMovement:    0x8b5cf6,
}

// TrackingEmbedInput what a tracking notification shows
type TrackingEmbedInput struct {
	Event          TrackingEvent
	OrderID        string
	TrackingNumber string
	Carrier        string
	Tag            string
	Summary        string
	CheckpointAt   *time.Time
	DeliveredAt    *time.Time
}

// BuildTrackingEmbed renders one event as an embed stamped with now
func BuildTrackingEmbed(in TrackingEmbedInput, now time.Time) discord.Embed {
	fields := []discord.EmbedField{
		{Name: "Order", Value: in.OrderID, Inline: true},
		{Name: "Tracking", Value: in.TrackingNumber, Inline: true},
	}
	if in.Carrier != "" {
		fields = append(fields, discord.EmbedField{Name: "Carrier", Value: in.Carrier, Inline: true})
	}
	if in.Tag != "" {
		fields = append(fields, discord.EmbedField{Name: "Status", Value: in.Tag, Inline: true})
	}
	if in.Event == EventDelivered && in.DeliveredAt != nil {
		fields = append(fields, discord.EmbedField{Name: "Delivered at", Value: in.DeliveredAt.UTC().Format(time.RFC3339)})
	} else if in.CheckpointAt != nil {
		fields = append(fields, discord.EmbedField{Name: "Updated at", Value: in.CheckpointAt.UTC().Format(time.RFC3339)})
	}

	return discord.Embed{
		Title:       eventTitles[in.Event],
		Description: in.Summary,
		Color:       eventColors[in.Event],
		Fields:      fields,
		Timestamp:   now,
	}
}
