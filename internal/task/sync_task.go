package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/logger"
)

const (
	ModeDaily    = "daily"
	ModeInterval = "interval"
)

// AccountSyncer what a sweep runs
type AccountSyncer interface {
	ListForSync(ctx context.Context) ([]model.EbayAccount, error)
	SyncAccount(ctx context.Context, account *model.EbayAccount) error
}

// ScheduleConfig when sweeps fire and how accounts are paced
type ScheduleConfig struct {
	Mode     string
	Location *time.Location
	Hour     int
	Minute   int
	Interval time.Duration

	AccountPause   time.Duration
	AccountTimeout time.Duration
}

// DefaultScheduleConfig daily at 09:00 America/New_York
func DefaultScheduleConfig() ScheduleConfig {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return ScheduleConfig{
		Mode:           ModeDaily,
		Location:       loc,
		Hour:           9,
		Interval:       time.Minute,
		AccountPause:   250 * time.Millisecond,
		AccountTimeout: 10 * time.Minute,
	}
}

// ==================== SyncTask ====================

// SyncTask runs account sweeps on a schedule, at most one at a time
type SyncTask struct {
	syncer AccountSyncer
	cfg    ScheduleConfig
	cron   *cron.Cron
	log    *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopped bool
	wg      sync.WaitGroup
	stopCh  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSyncTask creates the scheduler
func NewSyncTask(syncer AccountSyncer, cfg ScheduleConfig, log *zap.Logger) *SyncTask {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SyncTask{
		syncer: syncer,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location)),
		log:    logger.OrGlobal(log).Named("sync_task"),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Spec the cron expression for the configured mode
func (t *SyncTask) Spec() string {
	if t.cfg.Mode == ModeInterval {
		return "@every " + t.cfg.Interval.String()
	}
	return fmt.Sprintf("0 %d %d * * *", t.cfg.Minute, t.cfg.Hour)
}

// Start registers the schedule and, when today's run time already passed, sweeps right away
func (t *SyncTask) Start() error {
	var err error
	t.startOnce.Do(func() {
		spec := t.Spec()
		if _, err = t.cron.AddFunc(spec, func() {
			if !t.Trigger() {
				t.log.Info("scheduled sweep skipped, previous sweep still running")
			}
		}); err != nil {
			err = fmt.Errorf("register sync schedule %q: %w", spec, err)
			return
		}
		t.cron.Start()
		t.log.Info("sync task started", zap.String("spec", spec), zap.String("timezone", t.cfg.Location.String()))

		if t.dueOnStart(t.now()) {
			t.Trigger()
		}
	})
	return err
}

// dueOnStart interval mode always sweeps at start, daily mode once today's run time is reached
func (t *SyncTask) dueOnStart(now time.Time) bool {
	if t.cfg.Mode == ModeInterval {
		return true
	}
	local := now.In(t.cfg.Location)
	runAt := time.Date(local.Year(), local.Month(), local.Day(), t.cfg.Hour, t.cfg.Minute, 0, 0, t.cfg.Location)
	return !local.Before(runAt)
}

// Trigger starts a sweep unless one is in flight or the task is stopping
func (t *SyncTask) Trigger() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.stopped {
		return false
	}
	t.running = true
	t.wg.Add(1)
	go t.sweep()
	return true
}

// Running whether a sweep is in flight
func (t *SyncTask) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Stop halts the schedule and waits for the in-flight sweep to finish
func (t *SyncTask) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.stopped = true
		close(t.stopCh)
		t.mu.Unlock()

		<-t.cron.Stop().Done()
		t.wg.Wait()
		t.log.Info("sync task stopped")
	})
}

func (t *SyncTask) stopping() bool {
	select {
	case <-t.stopCh:
		return true
	default:
		return false
	}
}

// ==================== Sweep ====================

func (t *SyncTask) sweep() {
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		t.wg.Done()
	}()

	started := time.Now()
	accounts, err := t.syncer.ListForSync(context.Background())
	if err != nil {
		t.log.Warn("list accounts failed", zap.Error(err))
		return
	}
	t.log.Info("sweep started", zap.Int("accounts", len(accounts)))

	synced := 0
	for i := range accounts {
		if t.stopping() {
			t.log.Info("sweep interrupted by shutdown", zap.Int("synced", synced))
			return
		}
		if i > 0 && !t.pause() {
			t.log.Info("sweep interrupted by shutdown", zap.Int("synced", synced))
			return
		}
		t.syncAccount(&accounts[i])
		synced++
	}

	t.log.Info("sweep finished",
		zap.Int("accounts", synced),
		zap.Duration("elapsed", time.Since(started)))
}

// pause waits between accounts, false when the task is stopping
func (t *SyncTask) pause() bool {
	if t.cfg.AccountPause <= 0 {
		return !t.stopping()
	}
	timer := time.NewTimer(t.cfg.AccountPause)
	defer timer.Stop()
	select {
	case <-t.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func (t *SyncTask) syncAccount(account *model.EbayAccount) {
	ctx := context.Background()
	if t.cfg.AccountTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.AccountTimeout)
		defer cancel()
	}

	if err := t.syncer.SyncAccount(ctx, account); err != nil {
		t.log.Warn("account sync failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}
