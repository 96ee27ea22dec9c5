// Package testutil provides fixtures and helpers shared by the package
// tests and the integration suite.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiphub/backend/internal/domain/integration"
)

// NewTestUUID generates a deterministic UUID for testing.
// Uses the provided seed string to create a reproducible UUID.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// TestUserID returns a standard user ID for tests.
func TestUserID() uuid.UUID {
	return NewTestUUID("test-user")
}

// ContextWithTimeout creates a context that is cancelled when the test ends.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewOrder builds a valid normalized order with one line per SKU, each
// quantity 1 at 10.00.
func NewOrder(marketplace integration.MarketplaceCode, key string, skus ...string) *integration.NormalizedOrder {
	order := &integration.NormalizedOrder{
		Marketplace:     marketplace,
		MarketplaceKey:  key,
		MarketplaceName: marketplace.DisplayName(),
		CustomerName:    "Test Customer",
		Status:          "AWAITING_FULFILLMENT",
		Currency:        "USD",
		ShippingAddress: integration.Address{Name: "Test Customer", Country: "US"},
	}
	price := decimal.NewFromInt(10)
	for i, sku := range skus {
		order.Items = append(order.Items, integration.NormalizedItem{
			MarketplaceLineID: fmt.Sprintf("%s-%d", key, i),
			SKU:               sku,
			ProductName:       "Product " + sku,
			Quantity:          1,
			UnitPrice:         price,
			TotalPrice:        price,
		})
		order.TotalPrice = order.TotalPrice.Add(price)
	}
	return order
}

// RecordingPublisher is an in-memory integration.EventPublisher.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []integration.OrderReconciledEvent
	err    error
}

// NewRecordingPublisher creates an empty publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// PublishOrderReconciled records the events, then returns the configured error.
func (p *RecordingPublisher) PublishOrderReconciled(_ context.Context, events ...integration.OrderReconciledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

// SetError sets the error returned from PublishOrderReconciled.
func (p *RecordingPublisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Events returns a copy of every recorded event.
func (p *RecordingPublisher) Events() []integration.OrderReconciledEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]integration.OrderReconciledEvent(nil), p.events...)
}

// Created counts the recorded events for newly created orders.
func (p *RecordingPublisher) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Created {
			n++
		}
	}
	return n
}

var _ integration.EventPublisher = (*RecordingPublisher)(nil)
