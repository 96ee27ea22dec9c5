package integration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/persistence"
)

// setupTestDB opens an in-memory SQLite database with the sync tables.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.AutoMigrate(db))
	return db
}

// MockCredentialRepository is a mock implementation of CredentialRepository
type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]integration.Credentials, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Credentials), args.Error(1)
}

func (m *MockCredentialRepository) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockShipperProfileRepository is a mock implementation of ShipperProfileRepository
type MockShipperProfileRepository struct {
	mock.Mock
}

func (m *MockShipperProfileRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*integration.ShipperProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ShipperProfile), args.Error(1)
}

// fakeMarketplace serves canned raw orders. Raw orders look like
// {"id": "K1", "skus": ["A", "B"], "name": "Ada Lovelace", "phone": "+1 555"}.
type fakeMarketplace struct {
	code      integration.MarketplaceCode
	orders    []integration.RawOrder
	shipments []integration.RawOrder
	err       error
	delay     time.Duration
	fetches   atomic.Int32
}

func (f *fakeMarketplace) Code() integration.MarketplaceCode { return f.code }

func (f *fakeMarketplace) FetchOrders(ctx context.Context, _ integration.Credentials) ([]integration.RawOrder, error) {
	f.fetches.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.orders, f.err
}

func (f *fakeMarketplace) Normalize(raw integration.RawOrder) (*integration.NormalizedOrder, error) {
	if raw["panic"] != nil {
		panic("unexpected payload shape")
	}
	key, _ := raw["id"].(string)
	if key == "" {
		return nil, integration.ErrOrderKeyMissing
	}
	skus, _ := raw["skus"].([]string)
	items := make([]integration.NormalizedItem, len(skus))
	for i, sku := range skus {
		items[i] = integration.NormalizedItem{
			SKU:         sku,
			ProductName: "Product " + sku,
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(10),
			TotalPrice:  decimal.NewFromInt(10),
		}
	}
	return &integration.NormalizedOrder{
		Marketplace:     f.code,
		MarketplaceKey:  key,
		MarketplaceName: f.code.DisplayName(),
		CustomerName:    integration.UnknownCustomer,
		Status:          "CREATED",
		Currency:        "USD",
		TotalPrice:      decimal.NewFromInt(int64(10 * len(skus))),
		Items:           items,
	}, nil
}

func (f *fakeMarketplace) ExtractShipping(raw integration.RawOrder) (*integration.ShippingContact, error) {
	key, _ := raw["id"].(string)
	if key == "" {
		return nil, integration.ErrOrderKeyMissing
	}
	name, _ := raw["name"].(string)
	phone, _ := raw["phone"].(string)
	return &integration.ShippingContact{
		MarketplaceKey: key,
		FullName:       name,
		Street1:        "1 Main St",
		City:           "Springfield",
		Country:        "US",
		Phone:          phone,
	}, nil
}

var _ integration.Marketplace = (*fakeMarketplace)(nil)

// fakeShipmentMarketplace additionally exposes a shipment-update listing
type fakeShipmentMarketplace struct {
	*fakeMarketplace
	shipmentFetches atomic.Int32
}

func (f *fakeShipmentMarketplace) FetchShipmentUpdates(_ context.Context, _ integration.Credentials) ([]integration.RawOrder, error) {
	f.shipmentFetches.Add(1)
	return f.shipments, f.err
}

// fakeResolver resolves marketplaces from a map
type fakeResolver map[integration.MarketplaceCode]integration.Marketplace

func (r fakeResolver) Resolve(code integration.MarketplaceCode) (integration.Marketplace, error) {
	m, ok := r[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrUnsupportedMarketplace, code)
	}
	return m, nil
}

func rawOrder(id string, skus ...string) integration.RawOrder {
	return integration.RawOrder{"id": id, "skus": skus}
}

func creds(userID uuid.UUID, codes ...integration.MarketplaceCode) []integration.Credentials {
	out := make([]integration.Credentials, len(codes))
	for i, c := range codes {
		out[i] = integration.Credentials{UserID: userID, Marketplace: c, APIKey: "k", APISecret: "s", AccountID: "1"}
	}
	return out
}

// memLock is an in-memory SyncLock for tests
type memLock struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func (l *memLock) TryLock(_ context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, true, nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []integration.OrderReconciledEvent
	err    error
}

func (p *recordingPublisher) PublishOrderReconciled(_ context.Context, events ...integration.OrderReconciledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

// recordingArchive captures archived payload sizes
type recordingArchive struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (a *recordingArchive) Archive(_ context.Context, userID uuid.UUID, code integration.MarketplaceCode, _ time.Time, orders []integration.RawOrder) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, len(orders))
	return fmt.Sprintf("raw/%s/%s/x.json", userID, code), a.err
}
