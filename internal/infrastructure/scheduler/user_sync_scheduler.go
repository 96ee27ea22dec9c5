package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// OrderSyncer runs the order pass for one user
type OrderSyncer interface {
	SyncUser(ctx context.Context, userID uuid.UUID) (*integration.SyncResult, error)
}

// ShippingSyncer runs the shipping pass for one user
type ShippingSyncer interface {
	SyncUserShipping(ctx context.Context, userID uuid.UUID) (*integration.ShippingSyncResult, error)
}

// UserSyncSchedulerConfig holds configuration for the user sync scheduler
type UserSyncSchedulerConfig struct {
	// WorkerCount is the number of jobs run concurrently
	WorkerCount int

	// QueueSize bounds the pending job queue
	QueueSize int

	// JobTimeout bounds a single run
	JobTimeout time.Duration

	// MaxRetries is how many times a failed run is retried
	MaxRetries int

	// RetryBaseDelay is the first retry delay; it doubles on every retry
	RetryBaseDelay time.Duration

	// HistorySize is how many finished jobs are kept
	HistorySize int
}

// DefaultUserSyncSchedulerConfig returns default configuration
func DefaultUserSyncSchedulerConfig() UserSyncSchedulerConfig {
	return UserSyncSchedulerConfig{
		WorkerCount:    4,
		QueueSize:      100,
		JobTimeout:     5 * time.Minute,
		MaxRetries:     3,
		RetryBaseDelay: 30 * time.Second,
		HistorySize:    100,
	}
}

// Validate validates the configuration
func (c UserSyncSchedulerConfig) Validate() error {
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker count must be positive", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	if c.MaxRetries > 0 && c.RetryBaseDelay <= 0 {
		return fmt.Errorf("%w: retry base delay must be positive", ErrInvalidConfig)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("%w: history size must be positive", ErrInvalidConfig)
	}
	return nil
}

type activeKey struct {
	userID uuid.UUID
	kind   SyncJobKind
}

// UserSyncScheduler runs per-user sync jobs on a bounded worker pool.
// A user has at most one pending or running job per kind.
type UserSyncScheduler struct {
	config   UserSyncSchedulerConfig
	orders   OrderSyncer
	shipping ShippingSyncer
	logger   *zap.Logger

	jobs     chan *SyncJob
	stopping chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// mu guards every field below and all mutations of tracked jobs
	mu        sync.Mutex
	isRunning bool
	active    map[activeKey]*SyncJob
	timers    map[uuid.UUID]*time.Timer
	history   []*SyncJob
}

// NewUserSyncScheduler creates a new scheduler. shipping may be nil, in
// which case shipping jobs are rejected.
func NewUserSyncScheduler(
	config UserSyncSchedulerConfig,
	orders OrderSyncer,
	shipping ShippingSyncer,
	logger *zap.Logger,
) (*UserSyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if orders == nil {
		return nil, fmt.Errorf("%w: order syncer is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserSyncScheduler{
		config:   config,
		orders:   orders,
		shipping: shipping,
		logger:   logger.Named("sync-scheduler"),
		jobs:     make(chan *SyncJob, config.QueueSize),
		active:   make(map[activeKey]*SyncJob),
		timers:   make(map[uuid.UUID]*time.Timer),
		history:  make([]*SyncJob, 0, config.HistorySize),
	}, nil
}

// Start starts the worker pool
func (s *UserSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopping = make(chan struct{})
	stopping := s.stopping
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(ctx, stopping, i)
	}

	s.logger.Info("User sync scheduler started",
		zap.Int("workers", s.config.WorkerCount),
		zap.Int("queue_size", s.config.QueueSize),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop stops accepting jobs, waits for running jobs until ctx is done and
// cancels whatever is still queued.
func (s *UserSyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	close(s.stopping)
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	// Running jobs finish; queued ones are cancelled below.
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		s.logger.Warn("User sync scheduler stop timed out, cancelling running jobs")
	}
	if s.cancel != nil {
		s.cancel()
	}
	<-done

	s.mu.Lock()
	for len(s.jobs) > 0 {
		<-s.jobs
	}
	for key, job := range s.active {
		if !job.Status.IsTerminal() {
			job.Cancel()
		}
		delete(s.active, key)
		s.addToHistory(job)
	}
	s.mu.Unlock()

	s.logger.Info("User sync scheduler stopped")
	return err
}

// IsRunning reports whether the scheduler accepts jobs
func (s *UserSyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Submit queues a job for the user. When the user already has a pending or
// running job of the same kind, that job is returned with ErrJobAlreadyQueued.
func (s *UserSyncScheduler) Submit(userID uuid.UUID, kind SyncJobKind, trigger SyncJobTrigger) (*SyncJob, error) {
	if userID == uuid.Nil {
		return nil, integration.ErrInvalidUserID
	}
	if kind == SyncJobKindShipping && s.shipping == nil {
		return nil, fmt.Errorf("%w: shipping jobs are not configured", ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil, ErrSchedulerNotRunning
	}
	key := activeKey{userID: userID, kind: kind}
	if existing, ok := s.active[key]; ok {
		return existing.Clone(), ErrJobAlreadyQueued
	}

	job := NewSyncJob(userID, kind, trigger, s.config.MaxRetries)
	select {
	case s.jobs <- job:
	default:
		return nil, ErrJobQueueFull
	}
	s.active[key] = job

	s.logger.Debug("Sync job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("kind", string(kind)),
		zap.String("trigger", string(trigger)),
	)
	return job.Clone(), nil
}

// GetJob returns a snapshot of a pending, running or recent job
func (s *UserSyncScheduler) GetJob(jobID uuid.UUID) (*SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.active {
		if job.ID == jobID {
			return job.Clone(), nil
		}
	}
	for _, job := range s.history {
		if job.ID == jobID {
			return job.Clone(), nil
		}
	}
	return nil, ErrJobNotFound
}

// GetJobHistory returns up to limit finished jobs, newest first
func (s *UserSyncScheduler) GetJobHistory(limit int) []*SyncJob {
	return s.filterHistory(limit, func(*SyncJob) bool { return true })
}

// GetJobHistoryByUser returns up to limit finished jobs of one user, newest first
func (s *UserSyncScheduler) GetJobHistoryByUser(userID uuid.UUID, limit int) []*SyncJob {
	return s.filterHistory(limit, func(j *SyncJob) bool { return j.UserID == userID })
}

// QueueLength returns the number of jobs waiting for a worker
func (s *UserSyncScheduler) QueueLength() int {
	return len(s.jobs)
}

func (s *UserSyncScheduler) filterHistory(limit int, match func(*SyncJob) bool) []*SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]*SyncJob, 0, limit)
	for _, job := range s.history {
		if len(out) >= limit {
			break
		}
		if match(job) {
			out = append(out, job.Clone())
		}
	}
	return out
}

func (s *UserSyncScheduler) worker(ctx context.Context, stopping <-chan struct{}, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-stopping:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopping:
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *UserSyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	s.mu.Lock()
	job.Start()
	userID, kind := job.UserID, job.Kind
	s.mu.Unlock()

	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("kind", string(kind)),
	)
	log.Debug("Processing sync job")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	var (
		result         *integration.SyncResult
		shippingResult *integration.ShippingSyncResult
		err            error
	)
	switch kind {
	case SyncJobKindShipping:
		shippingResult, err = s.shipping.SyncUserShipping(jobCtx, userID)
	default:
		result, err = s.orders.SyncUser(jobCtx, userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case errors.Is(err, integration.ErrSyncInProgress):
		job.Skip(err.Error())
		log.Info("Sync job skipped, user already syncing")
	case err != nil:
		job.Fail(err.Error())
		if job.ShouldRetry() && s.isRunning {
			delay := job.ScheduleRetry(s.config.RetryBaseDelay)
			s.scheduleRetry(job, delay)
			log.Warn("Sync job failed, retry scheduled",
				zap.Int("retry_count", job.RetryCount),
				zap.Duration("delay", delay),
				zap.Error(err))
			return
		}
		log.Error("Sync job failed", zap.Int("retry_count", job.RetryCount), zap.Error(err))
	case kind == SyncJobKindShipping:
		job.CompleteShipping(shippingResult)
		log.Info("Shipping sync job completed",
			zap.Int("upserted", shippingResult.Upserted),
			zap.Int("skipped", shippingResult.Skipped),
			zap.Int("failed", shippingResult.Failed))
	default:
		job.Complete(result)
		log.Info("Order sync job completed",
			zap.String("status", string(job.Status)),
			zap.Int("new_orders", result.NewOrders),
			zap.Int("updated_orders", result.UpdatedOrders))
	}

	delete(s.active, activeKey{userID: userID, kind: kind})
	s.addToHistory(job)
}

// scheduleRetry requeues job after delay. Caller holds s.mu.
func (s *UserSyncScheduler) scheduleRetry(job *SyncJob, delay time.Duration) {
	s.timers[job.ID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.timers, job.ID)
		if !s.isRunning {
			return
		}
		select {
		case s.jobs <- job:
		default:
			job.Fail(ErrJobQueueFull.Error())
			delete(s.active, activeKey{userID: job.UserID, kind: job.Kind})
			s.addToHistory(job)
			s.logger.Warn("Dropping sync retry, queue full", zap.String("job_id", job.ID.String()))
		}
	})
}

// addToHistory prepends job and trims the history. Caller holds s.mu.
func (s *UserSyncScheduler) addToHistory(job *SyncJob) {
	s.history = append([]*SyncJob{job}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}
