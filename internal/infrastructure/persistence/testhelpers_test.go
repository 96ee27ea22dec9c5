package persistence

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shiphub/backend/internal/domain/integration"
)

// setupTestDB opens an in-memory SQLite database with the sync tables.
// A single connection keeps every session on the same in-memory database.
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

	require.NoError(t, AutoMigrate(db))
	return db
}

// testOrder builds a normalized order with n items whose SKUs carry prefix
func testOrder(key, prefix string, n int) *integration.NormalizedOrder {
	items := make([]integration.NormalizedItem, n)
	for i := range items {
		items[i] = integration.NormalizedItem{
			MarketplaceLineID: fmt.Sprintf("%s-line-%d", prefix, i),
			SKU:               fmt.Sprintf("%s-sku-%d", prefix, i),
			ProductName:       "Widget",
			Quantity:          i + 1,
			UnitPrice:         decimal.NewFromInt(5),
			TotalPrice:        decimal.NewFromInt(int64(5 * (i + 1))),
		}
	}
	return &integration.NormalizedOrder{
		Marketplace:     integration.MarketplaceVeeqo,
		MarketplaceKey:  key,
		MarketplaceName: "Veeqo",
		CustomerName:    "Ada Lovelace",
		Status:          "AWAITING_FULFILLMENT",
		Currency:        "USD",
		TotalPrice:      decimal.NewFromInt(100),
		ShippingAddress: integration.Address{Name: "Ada Lovelace", City: "London"},
		Items:           items,
	}
}

func newUserID() uuid.UUID {
	return uuid.New()
}
