package service

import (
	"strings"
	"time"
)

// TrackingEvent a notification-worthy transition between two observations
type TrackingEvent string

const (
	EventDelivered   TrackingEvent = "delivered"
	EventDelay       TrackingEvent = "delay"
	EventCarrierScan TrackingEvent = "carrier_scan"
	EventMovement    TrackingEvent = "movement"
	EventNone        TrackingEvent = "none"
)

// TrackingState the stored or freshly fetched view compared by the detector
type TrackingState struct {
	DeliveredAt  *time.Time
	CheckpointAt *time.Time
	Tag          string
}

// delayKeywords matched case-insensitively against the status tag
var delayKeywords = []string{"exception", "failed", "expired", "delay", "alert"}

type eventRule struct {
	event TrackingEvent
	match func(prev, cur TrackingState) bool
}

// eventRules first match wins
var eventRules = []eventRule{
	{EventDelivered, isDelivered},
	{EventDelay, isDelay},
	{EventCarrierScan, func(prev, cur TrackingState) bool {
		return cur.CheckpointAt != nil && prev.CheckpointAt == nil
	}},
	{EventMovement, func(prev, cur TrackingState) bool {
		return cur.CheckpointAt != nil && prev.CheckpointAt != nil && cur.CheckpointAt.After(*prev.CheckpointAt)
	}},
}

// DetectTrackingEvent classifies the change from prev to cur
func DetectTrackingEvent(prev, cur TrackingState) TrackingEvent {
	for _, rule := range eventRules {
		if rule.match(prev, cur) {
			return rule.event
		}
	}
	return EventNone
}

func isDelivered(prev, cur TrackingState) bool {
	if cur.DeliveredAt != nil && (prev.DeliveredAt == nil || cur.DeliveredAt.After(*prev.DeliveredAt)) {
		return true
	}
	return strings.EqualFold(cur.Tag, "delivered") && !strings.EqualFold(prev.Tag, "delivered")
}

func isDelay(prev, cur TrackingState) bool {
	if cur.Tag == "" || cur.Tag == prev.Tag {
		return false
	}
	tag := strings.ToLower(cur.Tag)
	for _, kw := range delayKeywords {
		if strings.Contains(tag, kw) {
			return true
		}
	}
	return false
}
