package net

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// ==================== Typed Outcomes ====================

// StatusError the remote answered with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, truncate(e.Body, 256))
}

// TransientError a failure that may succeed on a later attempt:
// a transport error, or a retryable status left over after retries ran out
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// CheckResponse converts a resty result into nil or a typed error
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return &TransientError{Err: err}
	}
	if resp == nil {
		return &TransientError{Err: errors.New("empty response")}
	}
	if resp.IsSuccess() {
		return nil
	}

	statusErr := &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	if IsRetryableStatus(statusErr.StatusCode) {
		return &TransientError{Err: statusErr}
	}
	return statusErr
}

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsAuthRejected reports whether the remote rejected the credentials (400/401).
// For an OAuth refresh this means the grant is invalid, expired or revoked.
func IsAuthRejected(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusUnauthorized
}

// StatusCode extracts the HTTP status from err, 0 when there is none
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
