package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
)

// blockingSyncer records synced accounts; each SyncAccount waits on release when set
type blockingSyncer struct {
	mu       sync.Mutex
	accounts []model.EbayAccount
	listErr  error
	failIDs  map[string]bool
	release  chan struct{}
	started  chan string
	synced   []string
}

func (s *blockingSyncer) ListForSync(context.Context) ([]model.EbayAccount, error) {
	return s.accounts, s.listErr
}

func (s *blockingSyncer) SyncAccount(_ context.Context, account *model.EbayAccount) error {
	if s.started != nil {
		s.started <- account.ID
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	s.synced = append(s.synced, account.ID)
	s.mu.Unlock()
	if s.failIDs[account.ID] {
		return errors.New("boom")
	}
	return nil
}

func (s *blockingSyncer) syncedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.synced...)
}

func accountsWithIDs(ids ...string) []model.EbayAccount {
	out := make([]model.EbayAccount, len(ids))
	for i, id := range ids {
		out[i].ID = id
	}
	return out
}

func testConfig() ScheduleConfig {
	cfg := DefaultScheduleConfig()
	cfg.AccountPause = 0
	cfg.AccountTimeout = time.Second
	return cfg
}

func TestSyncTask_AtMostOneSweep(t *testing.T) {
	syncer := &blockingSyncer{
		accounts: accountsWithIDs("a1"),
		release:  make(chan struct{}),
		started:  make(chan string, 1),
	}
	task := NewSyncTask(syncer, testConfig(), nil)
	defer task.Stop()

	require.True(t, task.Trigger())
	<-syncer.started
	assert.True(t, task.Running())
	assert.False(t, task.Trigger())

	close(syncer.release)
	require.Eventually(t, func() bool { return !task.Running() }, time.Second, 5*time.Millisecond)

	syncer.started = nil
	require.True(t, task.Trigger())
	require.Eventually(t, func() bool { return !task.Running() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a1", "a1"}, syncer.syncedIDs())
}

func TestSyncTask_StopDrainsInFlightSweep(t *testing.T) {
	syncer := &blockingSyncer{
		accounts: accountsWithIDs("a1"),
		release:  make(chan struct{}),
		started:  make(chan string, 1),
	}
	task := NewSyncTask(syncer, testConfig(), nil)

	require.True(t, task.Trigger())
	<-syncer.started

	stopped := make(chan struct{})
	go func() {
		task.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight sweep finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(syncer.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}

	assert.Equal(t, []string{"a1"}, syncer.syncedIDs())
	assert.False(t, task.Trigger())
	task.Stop()
}

func TestSyncTask_StopInterruptsPause(t *testing.T) {
	syncer := &blockingSyncer{
		accounts: accountsWithIDs("a1", "a2", "a3"),
		started:  make(chan string, 3),
	}
	cfg := testConfig()
	cfg.AccountPause = time.Hour
	task := NewSyncTask(syncer, cfg, nil)

	require.True(t, task.Trigger())
	<-syncer.started

	done := make(chan struct{})
	go func() {
		task.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on the account pause")
	}
	assert.Equal(t, []string{"a1"}, syncer.syncedIDs())
}

func TestSyncTask_AccountFailureDoesNotAbortSweep(t *testing.T) {
	syncer := &blockingSyncer{
		accounts: accountsWithIDs("a1", "a2"),
		failIDs:  map[string]bool{"a1": true},
	}
	task := NewSyncTask(syncer, testConfig(), nil)
	defer task.Stop()

	require.True(t, task.Trigger())
	require.Eventually(t, func() bool { return !task.Running() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a1", "a2"}, syncer.syncedIDs())
}

func TestSyncTask_ListFailureEndsSweep(t *testing.T) {
	syncer := &blockingSyncer{listErr: errors.New("db down")}
	task := NewSyncTask(syncer, testConfig(), nil)
	defer task.Stop()

	require.True(t, task.Trigger())
	require.Eventually(t, func() bool { return !task.Running() }, time.Second, 5*time.Millisecond)
	assert.Empty(t, syncer.syncedIDs())
}

func TestSyncTask_Spec(t *testing.T) {
	cfg := testConfig()
	cfg.Hour, cfg.Minute = 9, 30
	assert.Equal(t, "0 30 9 * * *", NewSyncTask(nil, cfg, nil).Spec())

	cfg.Mode = ModeInterval
	cfg.Interval = 90 * time.Second
	assert.Equal(t, "@every 1m30s", NewSyncTask(nil, cfg, nil).Spec())
}

func TestSyncTask_DueOnStart(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Location = loc
	cfg.Hour, cfg.Minute = 9, 0
	task := NewSyncTask(nil, cfg, nil)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before run time", time.Date(2026, 3, 2, 8, 59, 0, 0, loc), false},
		{"exactly run time", time.Date(2026, 3, 2, 9, 0, 0, 0, loc), true},
		{"after run time", time.Date(2026, 3, 2, 18, 0, 0, 0, loc), true},
		// 13:30 UTC is 08:30 in New York during standard time
		{"utc clock ahead of zone", time.Date(2026, 1, 5, 13, 30, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := task.dueOnStart(tt.now); got != tt.want {
				t.Errorf("dueOnStart(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}

	cfg.Mode = ModeInterval
	assert.True(t, NewSyncTask(nil, cfg, nil).dueOnStart(time.Date(2026, 3, 2, 1, 0, 0, 0, loc)))
}

func TestSyncTask_StartSweepsWhenDue(t *testing.T) {
	syncer := &blockingSyncer{accounts: accountsWithIDs("a1")}
	cfg := testConfig()
	cfg.Mode = ModeInterval
	cfg.Interval = time.Hour
	task := NewSyncTask(syncer, cfg, nil)

	require.NoError(t, task.Start())
	require.NoError(t, task.Start())
	require.Eventually(t, func() bool { return len(syncer.syncedIDs()) == 1 }, time.Second, 5*time.Millisecond)
	task.Stop()
	assert.Equal(t, []string{"a1"}, syncer.syncedIDs())
}

func TestSyncTask_StartNotDue(t *testing.T) {
	syncer := &blockingSyncer{accounts: accountsWithIDs("a1")}
	cfg := testConfig()
	cfg.Location = time.UTC
	cfg.Hour, cfg.Minute = 23, 59
	task := NewSyncTask(syncer, cfg, nil)
	task.now = func() time.Time { return time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC) }

	require.NoError(t, task.Start())
	assert.False(t, task.Running())
	task.Stop()
	assert.Empty(t, syncer.syncedIDs())
}
