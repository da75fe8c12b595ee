package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/net"
)

// 17TRACK Tracking API v2.4, auth header "17token"
const seventeenTrackBaseURL = "https://api.17track.net/track/v2.4"

// ==================== DTO ====================

type stRejected struct {
	Number string `json:"number"`
	Error  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type stResponse[T any] struct {
	Code int `json:"code"`
	Data struct {
		Accepted []T          `json:"accepted"`
		Rejected []stRejected `json:"rejected"`
	} `json:"data"`
}

type stRegistered struct {
	Number  string `json:"number"`
	Carrier int64  `json:"carrier"`
}

type stTracked struct {
	Number    string          `json:"number"`
	Carrier   int64           `json:"carrier"`
	TrackInfo json.RawMessage `json:"track_info"`
}

type stEvent struct {
	TimeISO     string `json:"time_iso"`
	TimeUTC     string `json:"time_utc"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Stage       string `json:"stage"`
	SubStatus   string `json:"sub_status"`
}

type stTrackInfo struct {
	LatestStatus struct {
		Status    string `json:"status"`
		SubStatus string `json:"sub_status"`
	} `json:"latest_status"`
	LatestEvent *stEvent `json:"latest_event"`
	Tracking    struct {
		Providers []struct {
			Provider struct {
				Key  int64  `json:"key"`
				Name string `json:"name"`
			} `json:"provider"`
			Events []stEvent `json:"events"`
		} `json:"providers"`
	} `json:"tracking"`
}

// ==================== Client ====================

// SeventeenTrackClient multi-carrier provider keyed by numeric carrier ids
type SeventeenTrackClient struct {
	http    *resty.Client
	limiter *rate.Limiter
}

var _ Provider = (*SeventeenTrackClient)(nil)

// NewSeventeenTrackClient builds the 17TRACK client
func NewSeventeenTrackClient(cfg Config) *SeventeenTrackClient {
	opts := cfg.HTTP
	opts.BaseURL = cfg.BaseURL
	if opts.BaseURL == "" {
		opts.BaseURL = seventeenTrackBaseURL
	}

	client := net.NewClient(opts).
		SetHeader("17token", cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &SeventeenTrackClient{http: client, limiter: newLimiter(cfg.RequestsPerSec)}
}

func (c *SeventeenTrackClient) Name() string { return ProviderSeventeenTrack }

// ValidRef a carrier id must be a positive integer
func (c *SeventeenTrackClient) ValidRef(ref string) (string, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil || n <= 0 {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

// Register POST /register
func (c *SeventeenTrackClient) Register(ctx context.Context, trackingNumber string) (string, error) {
	var out stResponse[stRegistered]
	if err := c.post(ctx, "/register", []map[string]any{{"number": trackingNumber}}, &out); err != nil {
		return "", fmt.Errorf("17track register %s: %w", trackingNumber, err)
	}

	for _, item := range out.Data.Accepted {
		if item.Number == trackingNumber && item.Carrier > 0 {
			return strconv.FormatInt(item.Carrier, 10), nil
		}
	}
	return "", nil
}

// Fetch POST /gettrackinfo
func (c *SeventeenTrackClient) Fetch(ctx context.Context, carrierRef, trackingNumber string) (*TrackInfo, error) {
	carrier, ok := c.ValidRef(carrierRef)
	if !ok {
		return nil, fmt.Errorf("17track fetch %s: invalid carrier %q", trackingNumber, carrierRef)
	}
	carrierID, _ := strconv.ParseInt(carrier, 10, 64)

	var out stResponse[stTracked]
	body := []map[string]any{{"number": trackingNumber, "carrier": carrierID}}
	if err := c.post(ctx, "/gettrackinfo", body, &out); err != nil {
		return nil, fmt.Errorf("17track fetch %s: %w", trackingNumber, err)
	}

	for _, item := range out.Data.Accepted {
		if item.Number != trackingNumber || len(item.TrackInfo) == 0 || string(item.TrackInfo) == "null" {
			continue
		}

		var raw stTrackInfo
		if err := json.Unmarshal(item.TrackInfo, &raw); err != nil {
			return nil, fmt.Errorf("17track fetch %s: decode: %w", trackingNumber, err)
		}
		info := raw.toTrackInfo()
		info.Raw = item.TrackInfo
		return info, nil
	}
	return nil, nil
}

func (c *SeventeenTrackClient) post(ctx context.Context, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	if err := net.CheckResponse(resp, err); err != nil {
		return err
	}
	return json.Unmarshal(resp.Body(), out)
}

func (ti *stTrackInfo) toTrackInfo() *TrackInfo {
	info := &TrackInfo{
		LatestStatus:    ti.LatestStatus.Status,
		LatestSubStatus: ti.LatestStatus.SubStatus,
	}
	if ti.LatestEvent != nil {
		info.LatestEventAt = parseTime(firstNonEmpty(ti.LatestEvent.TimeUTC, ti.LatestEvent.TimeISO))
	}

	for _, p := range ti.Tracking.Providers {
		if info.CarrierName == "" {
			info.CarrierName = p.Provider.Name
		}
		for _, ev := range p.Events {
			info.Checkpoints = append(info.Checkpoints, Checkpoint{
				Time:        parseTime(firstNonEmpty(ev.TimeUTC, ev.TimeISO)),
				Description: ev.Description,
				Location:    ev.Location,
				Stage:       ev.Stage,
				SubStatus:   ev.SubStatus,
			})
		}
	}
	return info
}
