package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/net"
)

const (
	ProviderSeventeenTrack = "seventeen-track"
	ProviderAfterShip      = "aftership"
)

// ==================== Provider Capability ====================

// Provider a tracking service the synchronizer can poll.
// Implementations normalize their payloads into TrackInfo so callers stay provider-agnostic.
type Provider interface {
	// Name the provider tag stored on tracking rows
	Name() string
	// ValidRef normalizes a stored carrier reference, false when it cannot be reused
	ValidRef(ref string) (string, bool)
	// Register announces a tracking number and returns the carrier reference, "" when unrecognized
	Register(ctx context.Context, trackingNumber string) (string, error)
	// Fetch returns the current tracking state, nil when the provider has nothing for the pair
	Fetch(ctx context.Context, carrierRef, trackingNumber string) (*TrackInfo, error)
}

// Checkpoint one tracking-history event
type Checkpoint struct {
	Time        *time.Time
	Description string
	Location    string
	Stage       string
	SubStatus   string
}

// TrackInfo provider-neutral view of a tracking lookup
type TrackInfo struct {
	LatestStatus    string
	LatestSubStatus string
	LatestEventAt   *time.Time
	// DeliveredAt set only when the provider reports it explicitly
	DeliveredAt *time.Time
	CarrierName string
	Checkpoints []Checkpoint
	// Raw the provider payload the view was built from
	Raw json.RawMessage
}

// ==================== Factory ====================

// Config provider selection
type Config struct {
	Provider       string
	APIKey         string
	BaseURL        string
	RequestsPerSec float64
	HTTP           net.ClientOptions
}

// New returns the configured provider, or nil when no API key is set
func New(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	switch cfg.Provider {
	case "", ProviderSeventeenTrack:
		return NewSeventeenTrackClient(cfg), nil
	case ProviderAfterShip:
		return NewAfterShipClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown tracking provider %q", cfg.Provider)
	}
}

func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSec), 1)
}

// parseTime accepts RFC3339 and the zone-less forms some carriers report (read as UTC)
func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
