package net

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== Client Factory ====================

// retryableStatus statuses worth another attempt
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true, // 408
	http.StatusTooEarly:            true, // 425
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// ClientOptions shared outbound HTTP settings
type ClientOptions struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	UserAgent    string
}

// DefaultClientOptions 20s timeout, 3 retries
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:      20 * time.Second,
		RetryCount:   3,
		RetryWait:    500 * time.Millisecond,
		RetryMaxWait: 5 * time.Second,
		UserAgent:    "ebay-shipping-notifier/1.0",
	}
}

// NewClient builds the resty client every external integration goes through.
// Transport failures and retryable statuses are retried with resty's backoff.
func NewClient(opts ClientOptions) *resty.Client {
	def := DefaultClientOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = def.RetryWait
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = def.RetryMaxWait
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait).
		SetHeader("User-Agent", opts.UserAgent).
		AddRetryCondition(shouldRetry)

	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}
	return client
}

func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && IsRetryableStatus(resp.StatusCode())
}

// IsRetryableStatus reports whether status is in the retryable set
func IsRetryableStatus(status int) bool {
	return retryableStatus[status]
}
