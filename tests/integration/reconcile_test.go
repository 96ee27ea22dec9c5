package integration

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/persistence"
	"github.com/shiphub/backend/internal/infrastructure/persistence/models"
	"github.com/shiphub/backend/tests/testutil"
)

func TestReconcile_ConcurrentSameKey(t *testing.T) {
	tdb := NewSharedTestDB(t)
	repo := persistence.NewGormOrderRepository(tdb.DB)
	ctx := testutil.ContextWithTimeout(t, time.Minute)
	userID := uuid.New()

	const writers = 12
	var (
		mu      sync.Mutex
		created int
		ids     = map[uuid.UUID]struct{}{}
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			order := testutil.NewOrder(integration.MarketplaceVeeqo, "RACE-1",
				fmt.Sprintf("SKU-%d-a", i), fmt.Sprintf("SKU-%d-b", i))
			res, err := repo.Reconcile(gctx, userID, order)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Created {
				created++
			}
			ids[res.OrderID] = struct{}{}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, created, "exactly one writer creates the order")
	assert.Len(t, ids, 1, "every writer resolves to the same order")

	var count int64
	require.NoError(t, tdb.DB.Model(&models.OrderModel{}).
		Where("user_id = ? AND marketplace = ? AND marketplace_key = ?", userID, integration.MarketplaceVeeqo, "RACE-1").
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	order, err := repo.FindByKey(ctx, userID, integration.MarketplaceVeeqo, "RACE-1")
	require.NoError(t, err)
	require.Len(t, order.Items, 2, "items come from a single writer, never merged")

	var writer int
	_, err = fmt.Sscanf(order.Items[0].SKU, "SKU-%d-a", &writer)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("SKU-%d-b", writer), order.Items[1].SKU)
}

func TestReconcile_ReplacesItems(t *testing.T) {
	tdb := NewSharedTestDB(t)
	repo := persistence.NewGormOrderRepository(tdb.DB)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	userID := uuid.New()

	first, err := repo.Reconcile(ctx, userID, testutil.NewOrder(integration.MarketplaceShippo, "S-1", "A", "B", "C"))
	require.NoError(t, err)
	assert.True(t, first.Created)

	update := testutil.NewOrder(integration.MarketplaceShippo, "S-1", "D")
	update.Status = "SHIPPED"
	second, err := repo.Reconcile(ctx, userID, update)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.OrderID, second.OrderID)

	order, err := repo.FindByID(ctx, userID, first.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "SHIPPED", order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "D", order.Items[0].SKU)

	var items int64
	require.NoError(t, tdb.DB.Model(&models.OrderItemModel{}).Where("order_id = ?", first.OrderID).Count(&items).Error)
	assert.Equal(t, int64(1), items)
}

func TestReconcile_IdentityIsPerUserAndMarketplace(t *testing.T) {
	tdb := NewSharedTestDB(t)
	repo := persistence.NewGormOrderRepository(tdb.DB)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	alice, bob := uuid.New(), uuid.New()

	a, err := repo.Reconcile(ctx, alice, testutil.NewOrder(integration.MarketplaceVeeqo, "100", "X"))
	require.NoError(t, err)
	b, err := repo.Reconcile(ctx, bob, testutil.NewOrder(integration.MarketplaceVeeqo, "100", "X"))
	require.NoError(t, err)
	c, err := repo.Reconcile(ctx, alice, testutil.NewOrder(integration.MarketplaceTrendyol, "100", "X"))
	require.NoError(t, err)

	assert.True(t, a.Created)
	assert.True(t, b.Created)
	assert.True(t, c.Created)
	assert.NotEqual(t, a.OrderID, b.OrderID)
	assert.NotEqual(t, a.OrderID, c.OrderID)

	_, err = repo.FindByID(ctx, bob, a.OrderID)
	assert.ErrorIs(t, err, integration.ErrOrderNotFound)
}

func TestReconcile_AcceptsLongValuesAndNegativeTotals(t *testing.T) {
	tdb := NewSharedTestDB(t)
	repo := persistence.NewGormOrderRepository(tdb.DB)
	shippings := persistence.NewGormOrderShippingRepository(tdb.DB)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	userID := uuid.New()

	long := strings.Repeat("x", 300)
	order := testutil.NewOrder(integration.MarketplaceTrendyol, "REFUND-"+long, "SKU-"+long)
	order.CustomerName = long
	order.Status = strings.ToUpper(long)
	order.Currency = "CURRENCY-" + long
	order.ShippingAddress.Zip = long
	order.Items[0].ProductName = long
	order.Items[0].UnitPrice = decimal.NewFromInt(-25)
	order.Items[0].TotalPrice = decimal.NewFromInt(-25)
	order.TotalPrice = decimal.NewFromInt(-25)

	res, err := repo.Reconcile(ctx, userID, order)
	require.NoError(t, err)
	assert.True(t, res.Created)

	order.CustomerName = long + "-updated"
	res, err = repo.Reconcile(ctx, userID, order)
	require.NoError(t, err)
	assert.False(t, res.Created)

	stored, err := repo.FindByID(ctx, userID, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, long+"-updated", stored.CustomerName)
	assert.True(t, stored.TotalPrice.Equal(decimal.NewFromInt(-25)))
	require.Len(t, stored.Items, 1)
	assert.Equal(t, long, stored.Items[0].ProductName)
	assert.Equal(t, "SKU-"+long, stored.Items[0].SKU)

	require.NoError(t, shippings.Upsert(ctx, &integration.OrderShipping{
		OrderID:   res.OrderID,
		UserID:    userID,
		FirstName: long,
		Street1:   long,
		Phone:     strings.Repeat("9", 60),
	}))
	shipping, err := shippings.FindByOrderID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("9", 60), shipping.Phone)
}
