package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// UserLister lists the users that have marketplace credentials
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ShippingSweeper runs the all-users shipping pass
type ShippingSweeper interface {
	SyncShippingInfo(ctx context.Context) (*integration.ShippingSyncResult, error)
}

// JobSubmitter accepts user sync jobs
type JobSubmitter interface {
	Submit(userID uuid.UUID, kind SyncJobKind, trigger SyncJobTrigger) (*SyncJob, error)
}

// SyncTriggerConfig holds configuration for the sync trigger
type SyncTriggerConfig struct {
	// Interval between order sync rounds; zero disables them
	Interval time.Duration

	// ShippingInterval between shipping sweeps; zero disables them
	ShippingInterval time.Duration

	// SweepTimeout bounds one shipping sweep; zero means no bound
	SweepTimeout time.Duration

	// RunOnStart runs both passes immediately on Start
	RunOnStart bool
}

// SyncTrigger periodically submits an order sync job for every user with
// credentials and runs the shipping sweep on its own interval.
type SyncTrigger struct {
	config    SyncTriggerConfig
	users     UserLister
	submitter JobSubmitter
	sweeper   ShippingSweeper
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	sweeping atomic.Bool
}

// NewSyncTrigger creates a new sync trigger. sweeper may be nil to disable
// the shipping sweep.
func NewSyncTrigger(
	config SyncTriggerConfig,
	users UserLister,
	submitter JobSubmitter,
	sweeper ShippingSweeper,
	logger *zap.Logger,
) *SyncTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncTrigger{
		config:    config,
		users:     users,
		submitter: submitter,
		sweeper:   sweeper,
		logger:    logger.Named("sync-trigger"),
	}
}

// Start starts the trigger loops
func (t *SyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	if t.config.Interval > 0 {
		t.wg.Add(1)
		go t.runLoop(ctx, t.config.Interval, func(ctx context.Context) { t.EnqueueAll(ctx) })
	}
	if t.config.ShippingInterval > 0 && t.sweeper != nil {
		t.wg.Add(1)
		go t.runLoop(ctx, t.config.ShippingInterval, func(ctx context.Context) { t.SweepShipping(ctx) })
	}

	t.logger.Info("Sync trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("shipping_interval", t.config.ShippingInterval),
	)
	return nil
}

// Stop stops the trigger loops
func (t *SyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *SyncTrigger) runLoop(ctx context.Context, interval time.Duration, run func(context.Context)) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if t.config.RunOnStart {
		run(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}

// EnqueueAll submits an order sync job for every user with credentials and
// returns how many jobs were queued. Users that already have a job are
// skipped; a full queue ends the round early.
func (t *SyncTrigger) EnqueueAll(ctx context.Context) int {
	userIDs, err := t.users.ListUserIDs(ctx)
	if err != nil {
		t.logger.Error("Failed to list users for sync", zap.Error(err))
		return 0
	}

	queued, coalesced := 0, 0
	for _, userID := range userIDs {
		_, err := t.submitter.Submit(userID, SyncJobKindOrders, SyncJobTriggerScheduled)
		switch {
		case err == nil:
			queued++
		case errors.Is(err, ErrJobAlreadyQueued):
			coalesced++
		case errors.Is(err, ErrJobQueueFull), errors.Is(err, ErrSchedulerNotRunning):
			t.logger.Warn("Stopping sync round early",
				zap.Int("queued", queued),
				zap.Int("remaining", len(userIDs)-queued-coalesced),
				zap.Error(err))
			return queued
		default:
			t.logger.Error("Failed to submit sync job", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}

	t.logger.Debug("Sync round queued",
		zap.Int("users", len(userIDs)),
		zap.Int("queued", queued),
		zap.Int("coalesced", coalesced))
	return queued
}

// SweepShipping runs one shipping sweep. It returns false without running
// when a previous sweep is still in progress.
func (t *SyncTrigger) SweepShipping(ctx context.Context) bool {
	if t.sweeper == nil || !t.sweeping.CompareAndSwap(false, true) {
		return false
	}
	defer t.sweeping.Store(false)

	t.sweep(ctx)
	return true
}

func (t *SyncTrigger) sweep(ctx context.Context) {
	if t.config.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.SweepTimeout)
		defer cancel()
	}

	result, err := t.sweeper.SyncShippingInfo(ctx)
	if err != nil {
		t.logger.Error("Shipping sweep failed", zap.Error(err))
		return
	}
	t.logger.Info("Shipping sweep finished",
		zap.Int("users", result.Users),
		zap.Int("upserted", result.Upserted),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
}

// SweepShippingAsync starts a shipping sweep in the background and returns
// immediately. The sweep outlives ctx cancellation but keeps its values.
func (t *SyncTrigger) SweepShippingAsync(ctx context.Context) error {
	if t.sweeper == nil {
		return ErrSweepDisabled
	}
	if !t.sweeping.CompareAndSwap(false, true) {
		return ErrSweepInProgress
	}

	ctx = context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.sweeping.Store(false)
		t.sweep(ctx)
	}()
	return nil
}
