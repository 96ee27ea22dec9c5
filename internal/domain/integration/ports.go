package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSyncInProgress is returned when another run already holds the user's sync lock.
var ErrSyncInProgress = errors.New("integration: sync already in progress for user")

// SyncLock coalesces overlapping sync runs for the same key.
// Reconciliation stays correct without it; it only avoids duplicate work.
type SyncLock interface {
	// TryLock returns ok=false without blocking when the key is held.
	// The returned unlock func is non-nil only when ok is true.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// PayloadArchive keeps raw upstream payloads for operator diagnosis.
type PayloadArchive interface {
	Archive(ctx context.Context, userID uuid.UUID, marketplace MarketplaceCode, fetchedAt time.Time, orders []RawOrder) (string, error)
}

// OrderReconciledEvent is emitted after each successful reconcile.
type OrderReconciledEvent struct {
	OrderID        uuid.UUID       `json:"orderId"`
	UserID         uuid.UUID       `json:"userId"`
	Marketplace    MarketplaceCode `json:"marketplace"`
	MarketplaceKey string          `json:"marketplaceKey"`
	Created        bool            `json:"created"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

// EventPublisher delivers order events to downstream consumers.
type EventPublisher interface {
	PublishOrderReconciled(ctx context.Context, events ...OrderReconciledEvent) error
}
