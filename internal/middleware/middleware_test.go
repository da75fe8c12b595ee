package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSyncRateLimiter_Window(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewSyncRateLimiter()
	r.now = func() time.Time { return now }

	r.MarkExecuted("k")

	now = now.Add(20 * time.Second)
	res := r.CheckOnly("k", time.Minute)
	assert.False(t, res.Allowed)
	assert.Equal(t, 40*time.Second, res.RetryAfter)

	assert.True(t, r.CheckOnly("other", time.Minute).Allowed)

	now = now.Add(40 * time.Second)
	assert.True(t, r.CheckOnly("k", time.Minute).Allowed)
}

func TestSyncRateLimiter_CheckOnlyDoesNotRecord(t *testing.T) {
	r := NewSyncRateLimiter()
	assert.True(t, r.CheckOnly("k", time.Minute).Allowed)
	assert.True(t, r.CheckOnly("k", time.Minute).Allowed)

	r.MarkExecuted("k")
	assert.False(t, r.CheckOnly("k", time.Minute).Allowed)
}

func newCooldownRouter(limiter *SyncRateLimiter, status *int) *gin.Engine {
	r := gin.New()
	r.POST("/sync", SyncCooldown(limiter, SyncTypeSweep, time.Minute), func(c *gin.Context) {
		c.JSON(*status, gin.H{})
	})
	return r
}

func TestSyncCooldown(t *testing.T) {
	limiter := NewSyncRateLimiter()
	status := http.StatusConflict
	r := newCooldownRouter(limiter, &status)

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sync", nil))
		return w
	}

	// a refused trigger does not start the cooldown
	assert.Equal(t, http.StatusConflict, do().Code)

	status = http.StatusAccepted
	assert.Equal(t, http.StatusAccepted, do().Code)

	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "retry_after")
}

func TestAdminAuth(t *testing.T) {
	r := gin.New()
	r.Use(AdminAuth("s3cret"), RequestLogger(zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"ok", "Bearer s3cret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestFormatRetryMessage(t *testing.T) {
	assert.Equal(t, "sync cooling down, retry in 45s", formatRetryMessage(45*time.Second))
	assert.Equal(t, "sync cooling down, retry in 2m", formatRetryMessage(2*time.Minute))
	assert.Equal(t, "sync cooling down, retry in 1m30s", formatRetryMessage(90*time.Second))
}
