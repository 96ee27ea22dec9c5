package scheduler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
)

// SyncJobStatus represents the status of a user sync job
type SyncJobStatus string

const (
	SyncJobStatusPending   SyncJobStatus = "PENDING"
	SyncJobStatusRunning   SyncJobStatus = "RUNNING"
	SyncJobStatusSuccess   SyncJobStatus = "SUCCESS"
	SyncJobStatusPartial   SyncJobStatus = "PARTIAL"
	SyncJobStatusFailed    SyncJobStatus = "FAILED"
	SyncJobStatusSkipped   SyncJobStatus = "SKIPPED"
	SyncJobStatusCancelled SyncJobStatus = "CANCELLED"
)

// IsTerminal reports whether the job has finished
func (s SyncJobStatus) IsTerminal() bool {
	switch s {
	case SyncJobStatusSuccess, SyncJobStatusPartial, SyncJobStatusFailed, SyncJobStatusSkipped, SyncJobStatusCancelled:
		return true
	}
	return false
}

// SyncJobKind selects which pass a job runs
type SyncJobKind string

const (
	SyncJobKindOrders   SyncJobKind = "ORDERS"
	SyncJobKindShipping SyncJobKind = "SHIPPING"
)

// SyncJobTrigger records who asked for the job
type SyncJobTrigger string

const (
	SyncJobTriggerScheduled SyncJobTrigger = "SCHEDULED"
	SyncJobTriggerManual    SyncJobTrigger = "MANUAL"
)

const maxRetryDelay = 30 * time.Minute

// SyncJob is one queued sync run for a single user
type SyncJob struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"userId"`
	Kind        SyncJobKind    `json:"kind"`
	Trigger     SyncJobTrigger `json:"trigger"`
	Status      SyncJobStatus  `json:"status"`
	Error       string         `json:"error,omitempty"`
	RetryCount  int            `json:"retryCount"`
	MaxRetries  int            `json:"maxRetries"`
	NextRetryAt *time.Time     `json:"nextRetryAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`

	Result         *integration.SyncResult         `json:"result,omitempty"`
	ShippingResult *integration.ShippingSyncResult `json:"shippingResult,omitempty"`
}

// NewSyncJob creates a pending job
func NewSyncJob(userID uuid.UUID, kind SyncJobKind, trigger SyncJobTrigger, maxRetries int) *SyncJob {
	return &SyncJob{
		ID:         uuid.New(),
		UserID:     userID,
		Kind:       kind,
		Trigger:    trigger,
		Status:     SyncJobStatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  time.Now(),
	}
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
	j.NextRetryAt = nil
	j.Error = ""
}

// Complete records an order sync result. Marketplace failures inside the
// result make the job PARTIAL, not FAILED.
func (j *SyncJob) Complete(result *integration.SyncResult) {
	now := time.Now()
	j.CompletedAt = &now
	j.Result = result
	j.Status = SyncJobStatusSuccess
	if result != nil && result.HasErrors() {
		j.Status = SyncJobStatusPartial
	}
}

// CompleteShipping records a shipping sync result
func (j *SyncJob) CompleteShipping(result *integration.ShippingSyncResult) {
	now := time.Now()
	j.CompletedAt = &now
	j.ShippingResult = result
	j.Status = SyncJobStatusSuccess
	if result != nil && result.Failed > 0 {
		j.Status = SyncJobStatusPartial
	}
}

// Fail marks the job as failed
func (j *SyncJob) Fail(errMsg string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = errMsg
}

// Skip marks a job that did not run because another run held the user
func (j *SyncJob) Skip(reason string) {
	now := time.Now()
	j.Status = SyncJobStatusSkipped
	j.CompletedAt = &now
	j.Error = reason
}

// Cancel marks a job dropped on shutdown
func (j *SyncJob) Cancel() {
	now := time.Now()
	j.Status = SyncJobStatusCancelled
	j.CompletedAt = &now
}

// ShouldRetry checks if the job should be retried
func (j *SyncJob) ShouldRetry() bool {
	return j.Status == SyncJobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to pending with exponential backoff
// from base, capped at 30 minutes. It returns the delay.
func (j *SyncJob) ScheduleRetry(base time.Duration) time.Duration {
	j.RetryCount++
	delay := base << (j.RetryCount - 1)
	if delay <= 0 || delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	next := time.Now().Add(delay)
	j.NextRetryAt = &next
	j.Status = SyncJobStatusPending
	j.CompletedAt = nil
	return delay
}

// Clone returns a copy safe to hand out while the job keeps running
func (j *SyncJob) Clone() *SyncJob {
	cp := *j
	return &cp
}
