package integration

import (
	"time"

	"github.com/google/uuid"
)

// SyncResult is the aggregate outcome of one user's order sync.
// Errors holds one message per marketplace that could not be synced.
type SyncResult struct {
	UserID        uuid.UUID                  `json:"userId"`
	NewOrders     int                        `json:"newOrders"`
	UpdatedOrders int                        `json:"updatedOrders"`
	SkippedOrders int                        `json:"skippedOrders"`
	Errors        map[MarketplaceCode]string `json:"errors"`
	StartedAt     time.Time                  `json:"startedAt"`
	FinishedAt    time.Time                  `json:"finishedAt"`
}

// NewSyncResult returns an empty result for the user
func NewSyncResult(userID uuid.UUID) *SyncResult {
	return &SyncResult{
		UserID:    userID,
		Errors:    make(map[MarketplaceCode]string),
		StartedAt: time.Now(),
	}
}

// RecordError records a marketplace-level failure
func (r *SyncResult) RecordError(code MarketplaceCode, err error) {
	r.Errors[code] = err.Error()
}

// HasErrors reports whether any marketplace failed
func (r *SyncResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Duration returns how long the sync took
func (r *SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ShippingSyncResult summarizes one shipping-info sweep.
type ShippingSyncResult struct {
	Users    int `json:"users"`
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
