package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/persistence/models"
)

func TestGormOrderShippingRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	orders := NewGormOrderRepository(db)
	repo := NewGormOrderShippingRepository(db)
	ctx := context.Background()
	userID := newUserID()

	reconciled, err := orders.Reconcile(ctx, userID, testOrder("S-1", "g", 1))
	require.NoError(t, err)

	first := integration.NewOrderShipping(reconciled.OrderID, userID, &integration.ShippingContact{
		FullName: "Ada Lovelace", City: "London", Phone: "+44 20 7946 0000",
	}, nil)
	require.NoError(t, repo.Upsert(ctx, first))

	second := integration.NewOrderShipping(reconciled.OrderID, userID, &integration.ShippingContact{
		FullName: "Ada King", City: "Oxford",
	}, &integration.ShipperProfile{Phone: "555-0100"})
	require.NoError(t, repo.Upsert(ctx, second))

	var count int64
	require.NoError(t, db.Model(&models.OrderShippingModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindByOrderID(ctx, reconciled.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored.FirstName)
	assert.Equal(t, "King", stored.LastName)
	assert.Equal(t, "Oxford", stored.City)
	assert.Equal(t, "5550100", stored.Phone)
	assert.Equal(t, first.ID, stored.ID)
}

func TestGormOrderShippingRepository_FindByOrderID_NotFound(t *testing.T) {
	repo := NewGormOrderShippingRepository(setupTestDB(t))
	_, err := repo.FindByOrderID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, integration.ErrShippingNotFound)
}

func TestGormOrderShippingRepository_Upsert_RequiresOrder(t *testing.T) {
	repo := NewGormOrderShippingRepository(setupTestDB(t))
	err := repo.Upsert(context.Background(), &integration.OrderShipping{})
	assert.ErrorIs(t, err, integration.ErrOrderNotFound)
}
