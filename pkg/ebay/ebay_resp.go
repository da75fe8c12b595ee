package ebay

// ==========================================
// DTO: raw JSON returned by the eBay Sell Fulfillment and Identity APIs
// ==========================================

// FulfillmentStatus order fulfillment state
type FulfillmentStatus string

const (
	FulfillmentNotStarted FulfillmentStatus = "NOT_STARTED"
	FulfillmentInProgress FulfillmentStatus = "IN_PROGRESS"
	FulfillmentFulfilled  FulfillmentStatus = "FULFILLED"
)

// Order GET /sell/fulfillment/v1/order item
type Order struct {
	OrderID                string            `json:"orderId"`
	CreationDate           string            `json:"creationDate,omitempty"`
	LastModifiedDate       string            `json:"lastModifiedDate,omitempty"`
	OrderFulfillmentStatus FulfillmentStatus `json:"orderFulfillmentStatus"`
	SellerID               string            `json:"sellerId,omitempty"`
	Buyer                  *Buyer            `json:"buyer,omitempty"`
	LineItems              []LineItem        `json:"lineItems,omitempty"`
}

type Buyer struct {
	Username string `json:"username,omitempty"`
}

type LineItem struct {
	Title    string `json:"title,omitempty"`
	SKU      string `json:"sku,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

// GetOrdersResp GET /sell/fulfillment/v1/order
type GetOrdersResp struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Next   string  `json:"next,omitempty"`
}

// ShippingFulfillment one shipment recorded against an order
type ShippingFulfillment struct {
	FulfillmentID          string `json:"fulfillmentId"`
	ShipmentTrackingNumber string `json:"shipmentTrackingNumber,omitempty"`
	ShippedDate            string `json:"shippedDate,omitempty"`
	ShippingCarrierCode    string `json:"shippingCarrierCode,omitempty"`
}

// GetShippingFulfillmentsResp GET /sell/fulfillment/v1/order/{orderId}/shipping_fulfillment
type GetShippingFulfillmentsResp struct {
	Fulfillments []ShippingFulfillment `json:"fulfillments"`
}

// TokenResp POST /identity/v1/oauth2/token
type TokenResp struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int64  `json:"expires_in"`
	TokenType             string `json:"token_type"`
	RefreshToken          string `json:"refresh_token,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in,omitempty"`
}
