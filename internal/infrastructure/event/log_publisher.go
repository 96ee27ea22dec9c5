package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/shiphub/backend/internal/domain/integration"
)

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger.Named("events")}
}

// PublishOrderReconciled logs each event at debug level
func (p *LogPublisher) PublishOrderReconciled(_ context.Context, events ...integration.OrderReconciledEvent) error {
	for _, e := range events {
		p.logger.Debug("Order reconciled",
			zap.String("order_id", e.OrderID.String()),
			zap.String("user_id", e.UserID.String()),
			zap.String("marketplace", e.Marketplace.String()),
			zap.String("marketplace_key", e.MarketplaceKey),
			zap.Bool("created", e.Created),
		)
	}
	return nil
}

var _ integration.EventPublisher = (*LogPublisher)(nil)
