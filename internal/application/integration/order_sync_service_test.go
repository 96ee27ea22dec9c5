package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/ecommerce"
	"github.com/shiphub/backend/internal/infrastructure/persistence"
	"github.com/shiphub/backend/internal/infrastructure/persistence/models"
)

func newSyncFixture(t *testing.T, resolver integration.MarketplaceResolver, opts ...OrderSyncOption) (*OrderSyncService, *MockCredentialRepository, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	credRepo := new(MockCredentialRepository)
	svc := NewOrderSyncService(credRepo, resolver, persistence.NewGormOrderRepository(db), zap.NewNop(), opts...)
	return svc, credRepo, db
}

func countOrders(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.OrderModel{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestOrderSyncService_SyncUser_ExampleScenario(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "veeqo-key", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":555,"status":{"name":"Awaiting Fulfillment"},
			"line_items":[{"sku":"A1","quantity":2,"price_before_discount_including_tax":10}]}]`))
	}))
	defer server.Close()

	cfg := ecommerce.NewVeeqoConfig()
	cfg.APIBaseURL = server.URL
	cfg.RequestsPerSecond = 0
	veeqo, err := ecommerce.NewVeeqoAdapter(cfg, zap.NewNop())
	require.NoError(t, err)

	svc, credRepo, db := newSyncFixture(t, ecommerce.NewRegistry(veeqo))
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).Return([]integration.Credentials{
		{UserID: userID, Marketplace: integration.MarketplaceVeeqo, APIKey: "veeqo-key"},
	}, nil)

	result, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewOrders)
	assert.Equal(t, 0, result.UpdatedOrders)
	assert.Empty(t, result.Errors)

	order, err := persistence.NewGormOrderRepository(db).FindByKey(context.Background(), userID, integration.MarketplaceVeeqo, "555")
	require.NoError(t, err)
	assert.Equal(t, "AWAITING_FULFILLMENT", order.Status)
	assert.Equal(t, integration.UnknownCustomer, order.CustomerName)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "A1", order.Items[0].SKU)
	assert.True(t, decimal.NewFromInt(20).Equal(order.Items[0].TotalPrice))
}

func TestOrderSyncService_SyncUser_Idempotent(t *testing.T) {
	veeqo := &fakeMarketplace{code: integration.MarketplaceVeeqo, orders: []integration.RawOrder{
		rawOrder("1", "A", "B"),
		rawOrder("2", "C"),
	}}
	svc, credRepo, db := newSyncFixture(t, fakeResolver{veeqo.code: veeqo})
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).Return(creds(userID, veeqo.code), nil)

	first, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, first.NewOrders)
	assert.Equal(t, 0, first.UpdatedOrders)

	second, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewOrders)
	assert.Equal(t, 2, second.UpdatedOrders)

	assert.Equal(t, int64(2), countOrders(t, db, userID))
	var items int64
	require.NoError(t, db.Model(&models.OrderItemModel{}).Count(&items).Error)
	assert.Equal(t, int64(3), items)
}

func TestOrderSyncService_SyncUser_ReplacesItems(t *testing.T) {
	veeqo := &fakeMarketplace{code: integration.MarketplaceVeeqo, orders: []integration.RawOrder{
		rawOrder("1", "A", "B", "C"),
	}}
	svc, credRepo, db := newSyncFixture(t, fakeResolver{veeqo.code: veeqo})
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).Return(creds(userID, veeqo.code), nil)

	_, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)

	veeqo.orders = []integration.RawOrder{rawOrder("1", "Z")}
	_, err = svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)

	order, err := persistence.NewGormOrderRepository(db).FindByKey(context.Background(), userID, veeqo.code, "1")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Z", order.Items[0].SKU)
}

func TestOrderSyncService_SyncUser_PartialFailureIsolation(t *testing.T) {
	veeqo := &fakeMarketplace{code: integration.MarketplaceVeeqo, orders: []integration.RawOrder{rawOrder("V1", "A")}}
	trendyol := &fakeMarketplace{code: integration.MarketplaceTrendyol, err: &integration.UpstreamError{
		Marketplace: integration.MarketplaceTrendyol, StatusCode: 401, Body: `{"message":"unauthorized"}`,
	}}
	shippo := &fakeMarketplace{code: integration.MarketplaceShippo, orders: []integration.RawOrder{rawOrder("S1", "B")}}

	svc, credRepo, db := newSyncFixture(t, fakeResolver{
		veeqo.code: veeqo, trendyol.code: trendyol, shippo.code: shippo,
	})
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).
		Return(creds(userID, trendyol.code, veeqo.code, shippo.code), nil)

	result, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.NewOrders)
	require.Contains(t, result.Errors, integration.MarketplaceTrendyol)
	assert.Contains(t, result.Errors[integration.MarketplaceTrendyol], "HTTP 401")
	assert.Contains(t, result.Errors[integration.MarketplaceTrendyol], "unauthorized")
	assert.NotContains(t, result.Errors, integration.MarketplaceVeeqo)
	assert.Equal(t, int64(2), countOrders(t, db, userID))
}

func TestOrderSyncService_SyncUser_SkipsBadOrders(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	veeqo := &fakeMarketplace{code: integration.MarketplaceVeeqo, orders: []integration.RawOrder{
		rawOrder("1", "A"),
		{"skus": []string{"B"}},
		{"id": "3", "panic": true},
		rawOrder("4", "D"),
	}}
	db := setupTestDB(t)
	credRepo := new(MockCredentialRepository)
	svc := NewOrderSyncService(credRepo, fakeResolver{veeqo.code: veeqo}, persistence.NewGormOrderRepository(db), zap.New(core))
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).Return(creds(userID, veeqo.code), nil)

	result, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.NewOrders)
	assert.Equal(t, 2, result.SkippedOrders)
	assert.Empty(t, result.Errors)

	skips := recorded.FilterMessage("Skipping order").All()
	require.Len(t, skips, 2)
	assert.Equal(t, int64(1), skips[0].ContextMap()["index"])
	assert.Equal(t, "VEEQO", skips[0].ContextMap()["marketplace"])
	assert.Equal(t, int64(2), skips[1].ContextMap()["index"])
}

func TestOrderSyncService_SyncUser_UnsupportedMarketplace(t *testing.T) {
	veeqo := &fakeMarketplace{code: integration.MarketplaceVeeqo, orders: []integration.RawOrder{rawOrder("1", "A")}}
	svc, credRepo, _ := newSyncFixture(t, fakeResolver{veeqo.code: veeqo})
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).
		Return(creds(userID, integration.MarketplaceShippo, veeqo.code), nil)

	result, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewOrders)
	assert.Contains(t, result.Errors, integration.MarketplaceShippo)
}

func TestOrderSyncService_SyncUser_FetchTimeout(t *testing.T) {
	slow := &fakeMarketplace{code: integration.MarketplaceShippo, delay: time.Second}
	veeqo := &fakeMarketplace{code: integration.MarketplaceVeeqo, orders: []integration.RawOrder{rawOrder("1", "A")}}
	svc, credRepo, _ := newSyncFixture(t, fakeResolver{slow.code: slow, veeqo.code: veeqo},
		WithFetchTimeout(20*time.Millisecond))
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).Return(creds(userID, slow.code, veeqo.code), nil)

	result, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewOrders)
	require.Contains(t, result.Errors, integration.MarketplaceShippo)
	assert.Contains(t, result.Errors[integration.MarketplaceShippo], "timed out")
}

func TestOrderSyncService_SyncUser_EmptyFetchIsNotAnError(t *testing.T) {
	veeqo := &fakeMarketplace{code: integration.MarketplaceVeeqo}
	svc, credRepo, _ := newSyncFixture(t, fakeResolver{veeqo.code: veeqo})
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).Return(creds(userID, veeqo.code), nil)

	result, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, result.NewOrders)
	assert.False(t, result.HasErrors())
}

func TestOrderSyncService_SyncUser_Errors(t *testing.T) {
	t.Run("nil user", func(t *testing.T) {
		svc, _, _ := newSyncFixture(t, fakeResolver{})
		_, err := svc.SyncUser(context.Background(), uuid.Nil)
		assert.ErrorIs(t, err, integration.ErrInvalidUserID)
	})

	t.Run("credential listing failure is returned", func(t *testing.T) {
		svc, credRepo, _ := newSyncFixture(t, fakeResolver{})
		userID := uuid.New()
		boom := errors.New("db down")
		credRepo.On("ListByUser", mock.Anything, userID).Return(nil, boom)

		_, err := svc.SyncUser(context.Background(), userID)
		assert.ErrorIs(t, err, boom)
	})
}

func TestOrderSyncService_SyncUser_Lock(t *testing.T) {
	veeqo := &fakeMarketplace{code: integration.MarketplaceVeeqo, orders: []integration.RawOrder{rawOrder("1", "A")}}
	lock := &memLock{}
	svc, credRepo, _ := newSyncFixture(t, fakeResolver{veeqo.code: veeqo}, WithSyncLock(lock, time.Minute))
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).Return(creds(userID, veeqo.code), nil)

	t.Run("held lock rejects the run", func(t *testing.T) {
		unlock, ok, err := lock.TryLock(context.Background(), syncLockKey(userID), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = svc.SyncUser(context.Background(), userID)
		assert.ErrorIs(t, err, integration.ErrSyncInProgress)
		assert.Zero(t, veeqo.fetches.Load())

		require.NoError(t, unlock(context.Background()))
	})

	t.Run("lock is released after the run", func(t *testing.T) {
		_, err := svc.SyncUser(context.Background(), userID)
		require.NoError(t, err)
		_, err = svc.SyncUser(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), veeqo.fetches.Load())
	})

	t.Run("lock backend failure does not block the sync", func(t *testing.T) {
		lock.err = errors.New("redis unavailable")
		defer func() { lock.err = nil }()

		_, err := svc.SyncUser(context.Background(), userID)
		require.NoError(t, err)
	})
}

func TestOrderSyncService_SyncUser_ArchiveAndEvents(t *testing.T) {
	veeqo := &fakeMarketplace{code: integration.MarketplaceVeeqo, orders: []integration.RawOrder{
		rawOrder("1", "A"), rawOrder("2", "B"),
	}}
	archive := &recordingArchive{}
	events := &recordingPublisher{err: errors.New("broker down")}
	svc, credRepo, _ := newSyncFixture(t, fakeResolver{veeqo.code: veeqo},
		WithPayloadArchive(archive), WithEventPublisher(events))
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).Return(creds(userID, veeqo.code), nil)

	result, err := svc.SyncUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.NewOrders)

	assert.Equal(t, []int{2}, archive.calls)
	require.Len(t, events.events, 2)
	assert.True(t, events.events[0].Created)
	assert.Equal(t, "1", events.events[0].MarketplaceKey)
	assert.Equal(t, userID, events.events[1].UserID)
}

func TestOrderSyncService_SyncUser_ConcurrentRunsKeepOneRowPerOrder(t *testing.T) {
	veeqo := &fakeMarketplace{code: integration.MarketplaceVeeqo, orders: []integration.RawOrder{
		rawOrder("1", "A", "B"), rawOrder("2", "C"),
	}}
	svc, credRepo, db := newSyncFixture(t, fakeResolver{veeqo.code: veeqo})
	userID := uuid.New()
	credRepo.On("ListByUser", mock.Anything, userID).Return(creds(userID, veeqo.code), nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.SyncUser(context.Background(), userID)
			if assert.NoError(t, err) {
				mu.Lock()
				created += r.NewOrders
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, created)
	assert.Equal(t, int64(2), countOrders(t, db, userID))
}
