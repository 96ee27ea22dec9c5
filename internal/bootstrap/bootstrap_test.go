package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shiphub/backend/internal/infrastructure/config"
	"github.com/shiphub/backend/internal/infrastructure/ecommerce"
	"github.com/stretchr/testify/assert"
)

func TestRegistryConfig(t *testing.T) {
	t.Run("keeps adapter defaults for zero values", func(t *testing.T) {
		got := RegistryConfig(config.MarketplaceConfig{})

		assert.Equal(t, ecommerce.NewVeeqoConfig(), got.Veeqo)
		assert.Equal(t, ecommerce.NewTrendyolConfig(), got.Trendyol)
		assert.Equal(t, ecommerce.NewShippoConfig(), got.Shippo)
	})

	t.Run("applies overrides", func(t *testing.T) {
		got := RegistryConfig(config.MarketplaceConfig{
			RequestTimeout:    45 * time.Second,
			RequestsPerSecond: 5,
			VeeqoBaseURL:      "http://veeqo.test",
			VeeqoPageSize:     50,
			TrendyolBaseURL:   "http://trendyol.test",
			TrendyolWindow:    7,
			ShippoBaseURL:     "http://shippo.test",
			ShippoPageSize:    25,
		})

		assert.Equal(t, "http://veeqo.test", got.Veeqo.APIBaseURL)
		assert.Equal(t, 50, got.Veeqo.PageSize)
		assert.Equal(t, 45, got.Veeqo.TimeoutSeconds)
		assert.Equal(t, float64(5), got.Veeqo.RequestsPerSecond)
		assert.Equal(t, "http://trendyol.test", got.Trendyol.APIBaseURL)
		assert.Equal(t, 7, got.Trendyol.WindowDays)
		assert.Equal(t, ecommerce.NewTrendyolConfig().PageSize, got.Trendyol.PageSize)
		assert.Equal(t, "http://shippo.test", got.Shippo.APIBaseURL)
		assert.Equal(t, 25, got.Shippo.PageSize)
	})
}

func TestApp_CloseReverseOrder(t *testing.T) {
	var order []string
	boom := errors.New("boom")

	app := &App{}
	app.addCloser(func(context.Context) error { order = append(order, "db"); return nil })
	app.addCloser(func(context.Context) error { order = append(order, "kafka"); return boom })
	app.addCloser(func(context.Context) error { order = append(order, "lock"); return nil })

	err := app.Close(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"lock", "kafka", "db"}, order)
	assert.NoError(t, app.Close(context.Background()))
}
