package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/shiphub/backend/internal/application/integration"

// SyncMetrics receives sync observations. Implementations must be safe for
// concurrent use.
type SyncMetrics interface {
	RecordFetch(ctx context.Context, marketplace integration.MarketplaceCode, elapsed time.Duration, orders int, err error)
	RecordOrder(ctx context.Context, marketplace integration.MarketplaceCode, outcome string)
	RecordRun(ctx context.Context, result *integration.SyncResult)
}

// Order outcomes reported to SyncMetrics
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

type nopSyncMetrics struct{}

func (nopSyncMetrics) RecordFetch(context.Context, integration.MarketplaceCode, time.Duration, int, error) {
}
func (nopSyncMetrics) RecordOrder(context.Context, integration.MarketplaceCode, string) {}
func (nopSyncMetrics) RecordRun(context.Context, *integration.SyncResult)              {}

// OrderSyncService pulls every configured marketplace of a user and
// reconciles the fetched orders into the canonical store.
type OrderSyncService struct {
	credentials  integration.CredentialRepository
	marketplaces integration.MarketplaceResolver
	orders       integration.OrderRepository

	lock    integration.SyncLock
	archive integration.PayloadArchive
	events  integration.EventPublisher
	metrics SyncMetrics
	tracer  trace.Tracer
	logger  *zap.Logger

	fetchTimeout time.Duration
	lockTTL      time.Duration
	now          func() time.Time
}

// OrderSyncOption configures an OrderSyncService
type OrderSyncOption func(*OrderSyncService)

// WithSyncLock coalesces concurrent runs for the same user
func WithSyncLock(lock integration.SyncLock, ttl time.Duration) OrderSyncOption {
	return func(s *OrderSyncService) {
		s.lock = lock
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithPayloadArchive archives every fetched payload
func WithPayloadArchive(archive integration.PayloadArchive) OrderSyncOption {
	return func(s *OrderSyncService) {
		s.archive = archive
	}
}

// WithEventPublisher publishes an event for every reconciled order
func WithEventPublisher(events integration.EventPublisher) OrderSyncOption {
	return func(s *OrderSyncService) {
		s.events = events
	}
}

// WithSyncMetrics sets the metrics sink
func WithSyncMetrics(metrics SyncMetrics) OrderSyncOption {
	return func(s *OrderSyncService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithFetchTimeout bounds each marketplace fetch. A timed-out fetch is
// recorded like any other fetch error.
func WithFetchTimeout(d time.Duration) OrderSyncOption {
	return func(s *OrderSyncService) {
		s.fetchTimeout = d
	}
}

// NewOrderSyncService creates an OrderSyncService
func NewOrderSyncService(
	credentials integration.CredentialRepository,
	marketplaces integration.MarketplaceResolver,
	orders integration.OrderRepository,
	logger *zap.Logger,
	opts ...OrderSyncOption,
) *OrderSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &OrderSyncService{
		credentials:  credentials,
		marketplaces: marketplaces,
		orders:       orders,
		metrics:      nopSyncMetrics{},
		tracer:       otel.Tracer(tracerName),
		logger:       logger.Named("order-sync"),
		lockTTL:      10 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncUser fetches, normalizes and reconciles the orders of every marketplace
// the user has credentials for. Per-order and per-marketplace failures are
// reported in the result; an error is returned only when the run could not
// start at all.
func (s *OrderSyncService) SyncUser(ctx context.Context, userID uuid.UUID) (*integration.SyncResult, error) {
	if userID == uuid.Nil {
		return nil, integration.ErrInvalidUserID
	}

	if s.lock != nil {
		unlock, ok, err := s.lock.TryLock(ctx, syncLockKey(userID), s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("Sync lock unavailable, continuing without it",
				zap.String("user_id", userID.String()), zap.Error(err))
		case !ok:
			return nil, integration.ErrSyncInProgress
		default:
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn("Failed to release sync lock", zap.String("user_id", userID.String()), zap.Error(err))
				}
			}()
		}
	}

	ctx, span := s.tracer.Start(ctx, "OrderSync.SyncUser",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	creds, err := s.credentials.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list credentials")
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	result := integration.NewSyncResult(userID)
	result.StartedAt = s.now()
	log := s.logger.With(zap.String("user_id", userID.String()))

	for _, cred := range creds {
		cred.UserID = userID
		s.syncMarketplace(ctx, log, cred, result)
	}

	result.FinishedAt = s.now()
	s.metrics.RecordRun(ctx, result)
	span.SetAttributes(
		attribute.Int("sync.new_orders", result.NewOrders),
		attribute.Int("sync.updated_orders", result.UpdatedOrders),
		attribute.Int("sync.failed_marketplaces", len(result.Errors)),
	)

	log.Info("Order sync finished",
		zap.Int("marketplaces", len(creds)),
		zap.Int("new_orders", result.NewOrders),
		zap.Int("updated_orders", result.UpdatedOrders),
		zap.Int("skipped_orders", result.SkippedOrders),
		zap.Int("failed_marketplaces", len(result.Errors)),
		zap.Duration("duration", result.Duration()),
	)
	return result, nil
}

func (s *OrderSyncService) syncMarketplace(ctx context.Context, log *zap.Logger, cred integration.Credentials, result *integration.SyncResult) {
	code := cred.Marketplace
	log = log.With(zap.String("marketplace", code.String()))

	ctx, span := s.tracer.Start(ctx, "OrderSync.Marketplace",
		trace.WithAttributes(attribute.String("marketplace", code.String())))
	defer span.End()

	fail := func(msg string, err error) {
		result.RecordError(code, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		log.Error(msg, zap.Error(err))
	}

	marketplace, err := s.marketplaces.Resolve(code)
	if err != nil {
		fail("Marketplace not supported", err)
		return
	}

	raws, err := s.fetch(ctx, marketplace, cred)
	if err != nil {
		fail("Marketplace fetch failed", err)
		return
	}
	span.SetAttributes(attribute.Int("orders.fetched", len(raws)))
	s.archivePayload(ctx, log, cred, raws)

	events := make([]integration.OrderReconciledEvent, 0, len(raws))
	for i, raw := range raws {
		order, err := normalizeOrder(marketplace, raw)
		if err != nil {
			result.SkippedOrders++
			s.metrics.RecordOrder(ctx, code, OutcomeSkipped)
			log.Warn("Skipping order", zap.Int("index", i), zap.Error(err))
			continue
		}

		rec, err := s.orders.Reconcile(ctx, cred.UserID, order)
		if err != nil {
			result.SkippedOrders++
			s.metrics.RecordOrder(ctx, code, OutcomeFailed)
			log.Error("Failed to reconcile order",
				zap.Int("index", i),
				zap.String("marketplace_key", order.MarketplaceKey),
				zap.Error(err))
			continue
		}

		if rec.Created {
			result.NewOrders++
			s.metrics.RecordOrder(ctx, code, OutcomeCreated)
		} else {
			result.UpdatedOrders++
			s.metrics.RecordOrder(ctx, code, OutcomeUpdated)
		}
		events = append(events, integration.OrderReconciledEvent{
			OrderID:        rec.OrderID,
			UserID:         cred.UserID,
			Marketplace:    code,
			MarketplaceKey: order.MarketplaceKey,
			Created:        rec.Created,
			OccurredAt:     s.now(),
		})
	}

	if s.events != nil && len(events) > 0 {
		if err := s.events.PublishOrderReconciled(ctx, events...); err != nil {
			log.Warn("Failed to publish order events", zap.Int("events", len(events)), zap.Error(err))
		}
	}
}

func (s *OrderSyncService) fetch(ctx context.Context, f integration.OrderFetcher, cred integration.Credentials) ([]integration.RawOrder, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	start := s.now()
	raws, err := f.FetchOrders(ctx, cred)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: fetch timed out after %s", integration.ErrMarketplaceUnavailable, s.fetchTimeout)
	}
	s.metrics.RecordFetch(ctx, cred.Marketplace, s.now().Sub(start), len(raws), err)
	if err != nil {
		return nil, err
	}
	return raws, nil
}

func (s *OrderSyncService) archivePayload(ctx context.Context, log *zap.Logger, cred integration.Credentials, raws []integration.RawOrder) {
	if s.archive == nil || len(raws) == 0 {
		return
	}
	key, err := s.archive.Archive(ctx, cred.UserID, cred.Marketplace, s.now(), raws)
	if err != nil {
		log.Warn("Failed to archive payload", zap.Error(err))
		return
	}
	log.Debug("Archived payload", zap.String("key", key), zap.Int("orders", len(raws)))
}

// normalizeOrder turns a panicking normalizer into a per-order error.
func normalizeOrder(n integration.OrderNormalizer, raw integration.RawOrder) (order *integration.NormalizedOrder, err error) {
	defer func() {
		if r := recover(); r != nil {
			order = nil
			err = fmt.Errorf("%w: normalizer panic: %v", integration.ErrOrderMalformed, r)
		}
	}()
	order, err = n.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

func syncLockKey(userID uuid.UUID) string {
	return "sync:orders:" + userID.String()
}
