package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DBPoolMetrics periodically records sql.DB connection pool statistics.
type DBPoolMetrics struct {
	connections    *Gauge
	connectionsMax *Gauge
	waitCount      *Gauge

	sqlDB    *sql.DB
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDBPoolMetrics creates pool instruments for sqlDB. interval defaults to 15s.
func NewDBPoolMetrics(meter metric.Meter, sqlDB *sql.DB, interval time.Duration, logger *zap.Logger) (*DBPoolMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	connections, err := NewGauge(meter, "db_pool_connections", "Number of connections in the pool by state", "{connection}")
	if err != nil {
		return nil, err
	}
	connectionsMax, err := NewGauge(meter, "db_pool_connections_max", "Maximum number of connections in the pool", "{connection}")
	if err != nil {
		return nil, err
	}
	waitCount, err := NewGauge(meter, "db_pool_wait_count", "Total connections waited for", "{wait}")
	if err != nil {
		return nil, err
	}

	return &DBPoolMetrics{
		connections:    connections,
		connectionsMax: connectionsMax,
		waitCount:      waitCount,
		sqlDB:          sqlDB,
		interval:       interval,
		logger:         logger,
		stopCh:         make(chan struct{}),
	}, nil
}

// Start collects pool stats until ctx is done or Stop is called.
func (m *DBPoolMetrics) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.collect(ctx)
		for {
			select {
			case <-ticker.C:
				m.collect(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	m.logger.Info("Started database pool stats collection", zap.Duration("interval", m.interval))
}

func (m *DBPoolMetrics) collect(ctx context.Context) {
	stats := m.sqlDB.Stats()
	m.connectionsMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.connections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.connections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.connections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
	m.waitCount.Record(ctx, stats.WaitCount)
}

// Stop stops the collection goroutine. Safe to call multiple times.
func (m *DBPoolMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}
