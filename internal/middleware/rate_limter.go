package middleware

import (
	"sync"
	"time"
)

// ==================== SyncRateLimiter ====================

// SyncRateLimiter per-key cooldown for manually triggered work
type SyncRateLimiter struct {
	locks sync.Map // key -> *lockEntry
	now   func() time.Time
}

// lockEntry last execution of one key
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewSyncRateLimiter creates an empty limiter
func NewSyncRateLimiter() *SyncRateLimiter {
	return &SyncRateLimiter{now: time.Now}
}

// CheckResult outcome of a cooldown check
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration // remaining cooldown
}

// CheckOnly reports whether the cooldown for key has elapsed without recording an execution
func (r *SyncRateLimiter) CheckOnly(key string, interval time.Duration) CheckResult {
	actual, ok := r.locks.Load(key)
	if !ok {
		return CheckResult{Allowed: true}
	}

	entry := actual.(*lockEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if elapsed := r.now().Sub(entry.lastTime); elapsed < interval {
		return CheckResult{Allowed: false, RetryAfter: interval - elapsed}
	}
	return CheckResult{Allowed: true}
}

// MarkExecuted starts the cooldown for key
func (r *SyncRateLimiter) MarkExecuted(key string) {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lastTime = r.now()
}

// ==================== Keys ====================

// SyncType kind of manually triggered work
type SyncType string

const (
	SyncTypeSweep SyncType = "sweep"
)

// GlobalSyncKey key shared by every caller
func GlobalSyncKey(syncType SyncType) string {
	return "global:" + string(syncType)
}
