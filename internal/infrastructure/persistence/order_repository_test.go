package persistence

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/persistence/models"
)

func TestGormOrderRepository_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a new order with items", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		userID := newUserID()

		result, err := repo.Reconcile(ctx, userID, testOrder("555", "g1", 2))
		require.NoError(t, err)
		assert.True(t, result.Created)
		assert.NotEqual(t, uuid.Nil, result.OrderID)

		stored, err := repo.FindByKey(ctx, userID, integration.MarketplaceVeeqo, "555")
		require.NoError(t, err)
		assert.Equal(t, result.OrderID, stored.ID)
		assert.Equal(t, "Ada Lovelace", stored.CustomerName)
		assert.Equal(t, "London", stored.ShippingAddress.City)
		require.Len(t, stored.Items, 2)
		assert.Equal(t, "g1-sku-0", stored.Items[0].SKU)
		assert.Equal(t, "g1-sku-1", stored.Items[1].SKU)
	})

	t.Run("is idempotent for unchanged input", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormOrderRepository(db)
		userID := newUserID()

		first, err := repo.Reconcile(ctx, userID, testOrder("A-1", "g1", 3))
		require.NoError(t, err)
		second, err := repo.Reconcile(ctx, userID, testOrder("A-1", "g1", 3))
		require.NoError(t, err)

		assert.True(t, first.Created)
		assert.False(t, second.Created)
		assert.Equal(t, first.OrderID, second.OrderID)

		var orders, items int64
		require.NoError(t, db.Model(&models.OrderModel{}).Count(&orders).Error)
		require.NoError(t, db.Model(&models.OrderItemModel{}).Count(&items).Error)
		assert.Equal(t, int64(1), orders)
		assert.Equal(t, int64(3), items)
	})

	t.Run("replaces items when the upstream list shrinks", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormOrderRepository(db)
		userID := newUserID()

		_, err := repo.Reconcile(ctx, userID, testOrder("A-2", "old", 3))
		require.NoError(t, err)

		next := testOrder("A-2", "new", 1)
		next.Status = "SHIPPED"
		next.CustomerName = "Grace Hopper"
		next.ShippingAddress = integration.Address{Name: "Grace Hopper"}
		result, err := repo.Reconcile(ctx, userID, next)
		require.NoError(t, err)
		assert.False(t, result.Created)

		stored, err := repo.FindByID(ctx, userID, result.OrderID)
		require.NoError(t, err)
		assert.Equal(t, "SHIPPED", stored.Status)
		assert.Equal(t, "Grace Hopper", stored.CustomerName)
		assert.Equal(t, "", stored.ShippingAddress.City)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, "new-sku-0", stored.Items[0].SKU)

		var items int64
		require.NoError(t, db.Model(&models.OrderItemModel{}).Count(&items).Error)
		assert.Equal(t, int64(1), items)
	})

	t.Run("an empty item list clears items", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))
		userID := newUserID()

		_, err := repo.Reconcile(ctx, userID, testOrder("A-3", "g1", 2))
		require.NoError(t, err)
		result, err := repo.Reconcile(ctx, userID, testOrder("A-3", "g2", 0))
		require.NoError(t, err)

		stored, err := repo.FindByID(ctx, userID, result.OrderID)
		require.NoError(t, err)
		assert.Empty(t, stored.Items)
	})

	t.Run("identity is scoped by user and marketplace", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormOrderRepository(db)
		alice, bob := newUserID(), newUserID()

		shippo := testOrder("K-1", "s", 1)
		shippo.Marketplace = integration.MarketplaceShippo

		for _, call := range []struct {
			user  uuid.UUID
			order *integration.NormalizedOrder
		}{
			{alice, testOrder("K-1", "a", 1)},
			{bob, testOrder("K-1", "b", 1)},
			{alice, shippo},
		} {
			result, err := repo.Reconcile(ctx, call.user, call.order)
			require.NoError(t, err)
			assert.True(t, result.Created)
		}

		var orders int64
		require.NoError(t, db.Model(&models.OrderModel{}).Count(&orders).Error)
		assert.Equal(t, int64(3), orders)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		repo := NewGormOrderRepository(setupTestDB(t))

		_, err := repo.Reconcile(ctx, uuid.Nil, testOrder("X", "g", 1))
		assert.ErrorIs(t, err, integration.ErrInvalidUserID)

		_, err = repo.Reconcile(ctx, newUserID(), testOrder("", "g", 1))
		assert.ErrorIs(t, err, integration.ErrInvalidOrderInput)
	})
}

func TestGormOrderRepository_Reconcile_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	userID := newUserID()

	const workers = 12
	var wg sync.WaitGroup
	created := make(chan bool, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(gen int) {
			defer wg.Done()
			result, err := repo.Reconcile(ctx, userID, testOrder("RACE", fmt.Sprintf("gen%d", gen), gen%3+1))
			if err != nil {
				errs <- err
				return
			}
			created <- result.Created
		}(i)
	}
	wg.Wait()
	close(created)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	createdCount := 0
	for c := range created {
		if c {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)

	var orders int64
	require.NoError(t, db.Model(&models.OrderModel{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)

	stored, err := repo.FindByKey(ctx, userID, integration.MarketplaceVeeqo, "RACE")
	require.NoError(t, err)
	require.NotEmpty(t, stored.Items)

	// every item belongs to the same generation and the generation is complete
	gen := strings.SplitN(stored.Items[0].SKU, "-", 2)[0]
	var n int
	_, err = fmt.Sscanf(gen, "gen%d", &n)
	require.NoError(t, err)
	assert.Len(t, stored.Items, n%3+1)
	for _, item := range stored.Items {
		assert.True(t, strings.HasPrefix(item.SKU, gen+"-"), "item %s mixes generations", item.SKU)
	}
}

func TestGormOrderRepository_FindByKey_NotFound(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	_, err := repo.FindByKey(context.Background(), newUserID(), integration.MarketplaceVeeqo, "missing")
	assert.ErrorIs(t, err, integration.ErrOrderNotFound)

	_, err = repo.FindByID(context.Background(), newUserID(), uuid.New())
	assert.ErrorIs(t, err, integration.ErrOrderNotFound)
}

func TestGormOrderRepository_FindByID_ScopedToUser(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()
	owner := newUserID()

	result, err := repo.Reconcile(ctx, owner, testOrder("O-1", "g", 1))
	require.NoError(t, err)

	_, err = repo.FindByID(ctx, newUserID(), result.OrderID)
	assert.ErrorIs(t, err, integration.ErrOrderNotFound)
}

func TestGormOrderRepository_List(t *testing.T) {
	repo := NewGormOrderRepository(setupTestDB(t))
	ctx := context.Background()
	userID := newUserID()

	for i := 0; i < 5; i++ {
		order := testOrder(fmt.Sprintf("L-%d", i), "g", 1)
		if i%2 == 0 {
			order.Marketplace = integration.MarketplaceTrendyol
			order.Status = "CREATED"
		}
		_, err := repo.Reconcile(ctx, userID, order)
		require.NoError(t, err)
	}
	_, err := repo.Reconcile(ctx, newUserID(), testOrder("other-user", "g", 1))
	require.NoError(t, err)

	t.Run("all orders of the user", func(t *testing.T) {
		orders, total, err := repo.List(ctx, integration.OrderFilter{UserID: userID})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, orders, 5)
		for _, o := range orders {
			assert.Len(t, o.Items, 1)
		}
	})

	t.Run("filters by marketplace and status", func(t *testing.T) {
		orders, total, err := repo.List(ctx, integration.OrderFilter{
			UserID:      userID,
			Marketplace: integration.MarketplaceTrendyol,
			Status:      "CREATED",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, orders, 3)
	})

	t.Run("paginates", func(t *testing.T) {
		orders, total, err := repo.List(ctx, integration.OrderFilter{UserID: userID, Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, orders, 2)
	})

	t.Run("sorts by whitelisted column", func(t *testing.T) {
		orders, _, err := repo.List(ctx, integration.OrderFilter{
			UserID:   userID,
			OrderBy:  "marketplace_key",
			OrderDir: "asc",
		})
		require.NoError(t, err)
		require.Len(t, orders, 5)
		for i := range orders {
			assert.Equal(t, fmt.Sprintf("L-%d", i), orders[i].MarketplaceKey)
		}
	})

	t.Run("ignores unknown sort column", func(t *testing.T) {
		orders, total, err := repo.List(ctx, integration.OrderFilter{
			UserID:  userID,
			OrderBy: "id; DROP TABLE orders",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, orders, 5)
	})

	t.Run("requires a user", func(t *testing.T) {
		_, _, err := repo.List(ctx, integration.OrderFilter{})
		assert.ErrorIs(t, err, integration.ErrInvalidUserID)
	})
}

func TestNormalizePage(t *testing.T) {
	page, size := normalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultOrderPageSize, size)

	_, size = normalizePage(3, 10_000)
	assert.Equal(t, maxOrderPageSize, size)
}
