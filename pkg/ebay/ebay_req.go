package ebay

import (
	"strings"
	"time"
)

// Environment eBay API environment
type Environment string

const (
	EnvProduction Environment = "production"
	EnvSandbox    Environment = "sandbox"
)

// DefaultScope the only scope the notifier needs
const DefaultScope = "https://api.ebay.com/oauth/api_scope/sell.fulfillment.readonly"

// APIBaseURL returns the REST host for env
func APIBaseURL(env Environment) string {
	if env == EnvSandbox {
		return "https://api.sandbox.ebay.com"
	}
	return "https://api.ebay.com"
}

// OrdersQuery GET /sell/fulfillment/v1/order parameters
type OrdersQuery struct {
	Environment Environment
	AccessToken string
	Filter      string
	Limit       int
	Offset      int
}

// RefreshReq refresh_token grant
type RefreshReq struct {
	Environment  Environment
	ClientID     string
	ClientSecret string
	RefreshToken string
	// Scopes space separated
	Scopes string
}

// BuildOrdersFilter orders modified since from, restricted to in-progress or fulfilled.
// NOT_STARTED orders cannot carry a tracking number yet.
func BuildOrdersFilter(from time.Time) string {
	var b strings.Builder
	b.WriteString("lastmodifieddate:[")
	b.WriteString(from.UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteString("..]")
	b.WriteString(",orderfulfillmentstatus:{FULFILLED|IN_PROGRESS}")
	return b.String()
}
