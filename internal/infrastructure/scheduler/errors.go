package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrJobAlreadyQueued is returned when the user already has a pending or running job
	ErrJobAlreadyQueued = errors.New("sync job already queued for this user")

	// ErrSweepInProgress is returned when a shipping sweep is already running
	ErrSweepInProgress = errors.New("shipping sweep already running")

	// ErrSweepDisabled is returned when the trigger has no shipping sweeper
	ErrSweepDisabled = errors.New("shipping sweep is not configured")
)
