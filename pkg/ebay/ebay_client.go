package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/net"
)

const (
	ordersPath = "/sell/fulfillment/v1/order"
	tokenPath  = "/identity/v1/oauth2/token"
)

// ==================== Client ====================

// Client eBay REST client shared by every account.
// The environment is chosen per call since accounts may live in either.
type Client struct {
	http     *resty.Client
	baseURLs map[Environment]string
}

// NewClient builds a client on the shared retrying transport
func NewClient(opts net.ClientOptions) *Client {
	return &Client{
		http: net.NewClient(opts),
		baseURLs: map[Environment]string{
			EnvProduction: APIBaseURL(EnvProduction),
			EnvSandbox:    APIBaseURL(EnvSandbox),
		},
	}
}

// WithBaseURL overrides the host for env, used against test servers
func (c *Client) WithBaseURL(env Environment, baseURL string) *Client {
	c.baseURLs[env] = baseURL
	return c
}

func (c *Client) baseURL(env Environment) string {
	if u, ok := c.baseURLs[env]; ok {
		return u
	}
	return c.baseURLs[EnvProduction]
}

// GetOrders returns one page of orders
func (c *Client) GetOrders(ctx context.Context, q OrdersQuery) ([]Order, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(q.AccessToken).
		SetQueryParams(map[string]string{
			"filter": q.Filter,
			"limit":  strconv.Itoa(limit),
			"offset": strconv.Itoa(q.Offset),
		}).
		Get(c.baseURL(q.Environment) + ordersPath)
	if err := net.CheckResponse(resp, err); err != nil {
		return nil, fmt.Errorf("ebay get orders: %w", err)
	}

	var out GetOrdersResp
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("ebay get orders: decode: %w", err)
	}
	return out.Orders, nil
}

// GetShippingFulfillments lists the fulfillments recorded for an order
func (c *Client) GetShippingFulfillments(ctx context.Context, env Environment, accessToken, orderID string) ([]ShippingFulfillment, error) {
	endpoint := c.baseURL(env) + ordersPath + "/" + url.PathEscape(orderID) + "/shipping_fulfillment"

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get(endpoint)
	if err := net.CheckResponse(resp, err); err != nil {
		return nil, fmt.Errorf("ebay get fulfillments for %s: %w", orderID, err)
	}

	var out GetShippingFulfillmentsResp
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("ebay get fulfillments for %s: decode: %w", orderID, err)
	}
	return out.Fulfillments, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
// A rejected grant surfaces as a *net.StatusError with status 400 or 401.
func (c *Client) RefreshAccessToken(ctx context.Context, req RefreshReq) (*TokenResp, error) {
	scopes := req.Scopes
	if scopes == "" {
		scopes = DefaultScope
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(req.ClientID, req.ClientSecret).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": req.RefreshToken,
			"scope":         scopes,
		}).
		Post(c.baseURL(req.Environment) + tokenPath)
	if err := net.CheckResponse(resp, err); err != nil {
		return nil, fmt.Errorf("ebay refresh token: %w", err)
	}

	var out TokenResp
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("ebay refresh token: decode: %w", err)
	}
	if out.AccessToken == "" || out.ExpiresIn <= 0 {
		return nil, fmt.Errorf("ebay refresh token: incomplete token response")
	}
	return &out, nil
}
