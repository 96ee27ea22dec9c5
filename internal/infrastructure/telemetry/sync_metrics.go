package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/shiphub/backend/internal/domain/integration"
)

// SyncMetrics records order sync observations.
//
// Metrics:
//   - shiphub_sync_runs_total
//   - shiphub_sync_orders_total{marketplace, outcome}
//   - shiphub_sync_marketplace_errors_total{marketplace}
//   - shiphub_sync_fetch_duration_seconds{marketplace, result}
//   - shiphub_sync_fetched_orders_total{marketplace}
type SyncMetrics struct {
	runs              *Counter
	orders            *Counter
	marketplaceErrors *Counter
	fetchDuration     *Histogram
	fetchedOrders     *Counter
}

// NewSyncMetrics creates the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	runs, err := NewCounter(meter, "shiphub_sync_runs_total", "Completed per-user order sync runs", "{run}")
	if err != nil {
		return nil, err
	}
	orders, err := NewCounter(meter, "shiphub_sync_orders_total", "Orders processed by outcome", "{order}")
	if err != nil {
		return nil, err
	}
	marketplaceErrors, err := NewCounter(meter, "shiphub_sync_marketplace_errors_total",
		"Marketplaces that failed within a sync run", "{error}")
	if err != nil {
		return nil, err
	}
	fetchDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "shiphub_sync_fetch_duration_seconds",
		Description: "Marketplace fetch latency in seconds",
		Unit:        "s",
		Boundaries:  FetchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	fetchedOrders, err := NewCounter(meter, "shiphub_sync_fetched_orders_total",
		"Raw orders returned by marketplace fetches", "{order}")
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runs:              runs,
		orders:            orders,
		marketplaceErrors: marketplaceErrors,
		fetchDuration:     fetchDuration,
		fetchedOrders:     fetchedOrders,
	}, nil
}

// RecordFetch records one marketplace fetch.
func (m *SyncMetrics) RecordFetch(ctx context.Context, marketplace integration.MarketplaceCode, elapsed time.Duration, orders int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fetchDuration.RecordDuration(ctx, elapsed, AttrMarketplace.String(marketplace.String()), AttrResult.String(result))
	if orders > 0 {
		m.fetchedOrders.Add(ctx, int64(orders), AttrMarketplace.String(marketplace.String()))
	}
}

// RecordOrder records one order outcome.
func (m *SyncMetrics) RecordOrder(ctx context.Context, marketplace integration.MarketplaceCode, outcome string) {
	m.orders.Inc(ctx, AttrMarketplace.String(marketplace.String()), AttrOutcome.String(outcome))
}

// RecordRun records a finished run and its marketplace errors.
func (m *SyncMetrics) RecordRun(ctx context.Context, result *integration.SyncResult) {
	m.runs.Inc(ctx)
	if result == nil {
		return
	}
	for code := range result.Errors {
		m.marketplaceErrors.Inc(ctx, AttrMarketplace.String(code.String()))
	}
}
