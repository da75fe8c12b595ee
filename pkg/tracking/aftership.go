package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/net"
)

// AfterShip Tracking API, auth header "as-api-key"
const afterShipBaseURL = "https://api.aftership.com/tracking/2025-07"

// ==================== DTO ====================

type asCheckpoint struct {
	CheckpointTime string `json:"checkpoint_time"`
	Message        string `json:"message"`
	Tag            string `json:"tag"`
	Subtag         string `json:"subtag"`
	Location       string `json:"location"`
}

type asTracking struct {
	ID                   string         `json:"id"`
	Slug                 string         `json:"slug"`
	TrackingNumber       string         `json:"tracking_number"`
	Tag                  string         `json:"tag"`
	Subtag               string         `json:"subtag"`
	DeliveredAt          string         `json:"delivered_at"`
	ShipmentDeliveryDate string         `json:"shipment_delivery_date"`
	LastCheckpoint       *asCheckpoint  `json:"last_checkpoint"`
	Checkpoints          []asCheckpoint `json:"checkpoints"`
}

type asResponse struct {
	Meta struct {
		Code int `json:"code"`
	} `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// ==================== Client ====================

// AfterShipClient auto-detecting provider keyed by carrier slug
type AfterShipClient struct {
	http    *resty.Client
	limiter *rate.Limiter
}

var _ Provider = (*AfterShipClient)(nil)

// NewAfterShipClient builds the AfterShip client
func NewAfterShipClient(cfg Config) *AfterShipClient {
	opts := cfg.HTTP
	opts.BaseURL = cfg.BaseURL
	if opts.BaseURL == "" {
		opts.BaseURL = afterShipBaseURL
	}

	client := net.NewClient(opts).SetHeader("as-api-key", cfg.APIKey)
	return &AfterShipClient{http: client, limiter: newLimiter(cfg.RequestsPerSec)}
}

func (c *AfterShipClient) Name() string { return ProviderAfterShip }

// ValidRef any non-empty slug can be reused
func (c *AfterShipClient) ValidRef(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	return ref, ref != ""
}

// Register POST /trackings, AfterShip detects the carrier
func (c *AfterShipClient) Register(ctx context.Context, trackingNumber string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"tracking_number": trackingNumber}).
		Post("/trackings")
	if err := net.CheckResponse(resp, err); err != nil {
		return "", fmt.Errorf("aftership register %s: %w", trackingNumber, err)
	}

	tracking, err := decodeAfterShip(resp.Body())
	if err != nil {
		return "", fmt.Errorf("aftership register %s: %w", trackingNumber, err)
	}
	return tracking.Slug, nil
}

// Fetch GET /trackings/{slug}/{tracking_number}
func (c *AfterShipClient) Fetch(ctx context.Context, carrierRef, trackingNumber string) (*TrackInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	path := "/trackings/" + url.PathEscape(carrierRef) + "/" + url.PathEscape(trackingNumber)
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err := net.CheckResponse(resp, err); err != nil {
		var se *net.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("aftership fetch %s: %w", trackingNumber, err)
	}

	tracking, err := decodeAfterShip(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("aftership fetch %s: %w", trackingNumber, err)
	}

	info := tracking.toTrackInfo()
	info.Raw = json.RawMessage(resp.Body())
	return info, nil
}

func decodeAfterShip(body []byte) (*asTracking, error) {
	var env asResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var tracking asTracking
	if err := json.Unmarshal(env.Data, &tracking); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return &tracking, nil
}

func (t *asTracking) toTrackInfo() *TrackInfo {
	info := &TrackInfo{
		LatestStatus:    t.Tag,
		LatestSubStatus: t.Subtag,
		DeliveredAt:     parseTime(firstNonEmpty(t.DeliveredAt, t.ShipmentDeliveryDate)),
		CarrierName:     t.Slug,
	}

	checkpoints := t.Checkpoints
	if len(checkpoints) == 0 && t.LastCheckpoint != nil {
		checkpoints = []asCheckpoint{*t.LastCheckpoint}
	}
	for _, cp := range checkpoints {
		info.Checkpoints = append(info.Checkpoints, Checkpoint{
			Time:        parseTime(cp.CheckpointTime),
			Description: cp.Message,
			Location:    cp.Location,
			Stage:       cp.Tag,
			SubStatus:   cp.Subtag,
		})
	}
	if t.LastCheckpoint != nil {
		info.LatestEventAt = parseTime(t.LastCheckpoint.CheckpointTime)
	}
	return info
}
