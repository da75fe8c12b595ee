package tracking

import (
	"strings"
	"time"
)

// State what the synchronizer compares between ticks
type State struct {
	CheckpointAt *time.Time
	DeliveredAt  *time.Time
	Tag          string
	Summary      string
	CarrierName  string
}

// Extract reduces a lookup to the latest checkpoint, status tag and delivery time
func Extract(info *TrackInfo) State {
	if info == nil {
		return State{}
	}

	var best *Checkpoint
	for i := range info.Checkpoints {
		cp := &info.Checkpoints[i]
		if cp.Time == nil {
			continue
		}
		if best == nil || cp.Time.After(*best.Time) {
			best = cp
		}
	}

	state := State{CarrierName: info.CarrierName}
	if best != nil {
		state.CheckpointAt = best.Time
		state.Summary = joinSummary(best.Description, best.Location)
	}

	state.Tag = firstNonEmpty(info.LatestStatus, info.LatestSubStatus)
	if state.Tag == "" && best != nil {
		state.Tag = firstNonEmpty(best.Stage, best.SubStatus)
	}

	state.DeliveredAt = info.DeliveredAt
	if state.DeliveredAt == nil {
		state.DeliveredAt = latestDelivered(info.Checkpoints)
	}
	if state.DeliveredAt == nil && strings.EqualFold(state.Tag, "delivered") {
		if info.LatestEventAt != nil {
			state.DeliveredAt = info.LatestEventAt
		} else {
			state.DeliveredAt = state.CheckpointAt
		}
	}

	return state
}

func latestDelivered(checkpoints []Checkpoint) *time.Time {
	var latest *time.Time
	for _, cp := range checkpoints {
		if cp.Time == nil {
			continue
		}
		if !strings.EqualFold(cp.Stage, "delivered") && !strings.EqualFold(cp.SubStatus, "delivered") {
			continue
		}
		if latest == nil || cp.Time.After(*latest) {
			latest = cp.Time
		}
	}
	return latest
}

func joinSummary(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " • ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
