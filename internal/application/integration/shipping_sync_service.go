package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ShippingSyncService refreshes OrderShipping records of already reconciled
// orders. It never creates orders; upstream orders without a stored match
// are skipped.
type ShippingSyncService struct {
	credentials  integration.CredentialRepository
	marketplaces integration.MarketplaceResolver
	orders       integration.OrderRepository
	shipping     integration.OrderShippingRepository
	profiles     integration.ShipperProfileRepository

	workers      int
	fetchTimeout time.Duration
	tracer       trace.Tracer
	logger       *zap.Logger
}

// NewShippingSyncService creates a ShippingSyncService. workers bounds how
// many users are swept concurrently.
func NewShippingSyncService(
	credentials integration.CredentialRepository,
	marketplaces integration.MarketplaceResolver,
	orders integration.OrderRepository,
	shipping integration.OrderShippingRepository,
	profiles integration.ShipperProfileRepository,
	workers int,
	fetchTimeout time.Duration,
	logger *zap.Logger,
) *ShippingSyncService {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShippingSyncService{
		credentials:  credentials,
		marketplaces: marketplaces,
		orders:       orders,
		shipping:     shipping,
		profiles:     profiles,
		workers:      workers,
		fetchTimeout: fetchTimeout,
		tracer:       otel.Tracer(tracerName),
		logger:       logger.Named("shipping-sync"),
	}
}

// SyncShippingInfo sweeps every user with marketplace credentials.
func (s *ShippingSyncService) SyncShippingInfo(ctx context.Context) (*integration.ShippingSyncResult, error) {
	ctx, span := s.tracer.Start(ctx, "ShippingSync.SyncShippingInfo")
	defer span.End()

	userIDs, err := s.credentials.ListUserIDs(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list users: %w", err)
	}

	var (
		mu     sync.Mutex
		result = &integration.ShippingSyncResult{Users: len(userIDs)}
	)

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, userID := range userIDs {
		g.Go(func() error {
			r := s.syncUser(ctx, userID)
			mu.Lock()
			result.Upserted += r.Upserted
			result.Skipped += r.Skipped
			result.Failed += r.Failed
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("shipping.users", result.Users),
		attribute.Int("shipping.upserted", result.Upserted),
		attribute.Int("shipping.skipped", result.Skipped),
	)
	s.logger.Info("Shipping sync finished",
		zap.Int("users", result.Users),
		zap.Int("upserted", result.Upserted),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// SyncUserShipping runs the shipping pass for a single user.
func (s *ShippingSyncService) SyncUserShipping(ctx context.Context, userID uuid.UUID) (*integration.ShippingSyncResult, error) {
	if userID == uuid.Nil {
		return nil, integration.ErrInvalidUserID
	}
	r := s.syncUser(ctx, userID)
	r.Users = 1
	return &r, nil
}

func (s *ShippingSyncService) syncUser(ctx context.Context, userID uuid.UUID) integration.ShippingSyncResult {
	var result integration.ShippingSyncResult
	log := s.logger.With(zap.String("user_id", userID.String()))

	profile, err := s.profiles.FindByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, integration.ErrShipperProfileNotFound) {
			log.Warn("Failed to load shipper profile", zap.Error(err))
		}
		profile = nil
	}

	creds, err := s.credentials.ListByUser(ctx, userID)
	if err != nil {
		log.Error("Failed to list credentials", zap.Error(err))
		result.Failed++
		return result
	}

	for _, cred := range creds {
		cred.UserID = userID
		mlog := log.With(zap.String("marketplace", cred.Marketplace.String()))

		marketplace, err := s.marketplaces.Resolve(cred.Marketplace)
		if err != nil {
			mlog.Warn("Marketplace not supported", zap.Error(err))
			result.Failed++
			continue
		}

		raws, err := s.fetch(ctx, marketplace, cred)
		if err != nil {
			mlog.Error("Marketplace fetch failed", zap.Error(err))
			result.Failed++
			continue
		}

		for i, raw := range raws {
			switch outcome := s.syncOne(ctx, marketplace, userID, raw, profile); outcome {
			case OutcomeUpdated:
				result.Upserted++
			case OutcomeSkipped:
				result.Skipped++
			default:
				mlog.Warn("Shipping record not stored", zap.Int("index", i))
				result.Failed++
			}
		}
	}
	return result
}

func (s *ShippingSyncService) fetch(ctx context.Context, m integration.Marketplace, cred integration.Credentials) ([]integration.RawOrder, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	if sf, ok := m.(integration.ShipmentFetcher); ok {
		return sf.FetchShipmentUpdates(ctx, cred)
	}
	return m.FetchOrders(ctx, cred)
}

// syncOne returns OutcomeUpdated, OutcomeSkipped or OutcomeFailed.
func (s *ShippingSyncService) syncOne(
	ctx context.Context,
	m integration.Marketplace,
	userID uuid.UUID,
	raw integration.RawOrder,
	profile *integration.ShipperProfile,
) string {
	contact, err := extractShipping(m, raw)
	if err != nil || contact.MarketplaceKey == "" {
		return OutcomeSkipped
	}

	order, err := s.orders.FindByKey(ctx, userID, m.Code(), contact.MarketplaceKey)
	if errors.Is(err, integration.ErrOrderNotFound) {
		return OutcomeSkipped
	}
	if err != nil {
		s.logger.Error("Failed to look up order",
			zap.String("user_id", userID.String()),
			zap.String("marketplace_key", contact.MarketplaceKey),
			zap.Error(err))
		return OutcomeFailed
	}

	record := integration.NewOrderShipping(order.ID, userID, contact, profile)
	if err := s.shipping.Upsert(ctx, record); err != nil {
		s.logger.Error("Failed to upsert shipping record",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		return OutcomeFailed
	}
	return OutcomeUpdated
}

func extractShipping(m integration.ShippingExtractor, raw integration.RawOrder) (contact *integration.ShippingContact, err error) {
	defer func() {
		if r := recover(); r != nil {
			contact = nil
			err = fmt.Errorf("%w: shipping extractor panic: %v", integration.ErrOrderMalformed, r)
		}
	}()
	contact, err = m.ExtractShipping(raw)
	if err == nil && contact == nil {
		err = integration.ErrOrderKeyMissing
	}
	return contact, err
}
