// Package bootstrap wires configuration into the repositories, adapters and
// services shared by the server and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appintegration "github.com/shiphub/backend/internal/application/integration"
	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/auth"
	"github.com/shiphub/backend/internal/infrastructure/cache"
	"github.com/shiphub/backend/internal/infrastructure/config"
	"github.com/shiphub/backend/internal/infrastructure/ecommerce"
	"github.com/shiphub/backend/internal/infrastructure/event"
	"github.com/shiphub/backend/internal/infrastructure/logger"
	"github.com/shiphub/backend/internal/infrastructure/persistence"
	"github.com/shiphub/backend/internal/infrastructure/storage"
	"github.com/shiphub/backend/internal/infrastructure/telemetry"
)

// App holds the wired application components
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB     *persistence.Database
	Tracer *telemetry.TracerProvider
	Meter  *telemetry.MeterProvider
	JWT    *auth.JWTService

	Credentials *persistence.GormCredentialRepository
	Registry    *ecommerce.Registry

	OrderSync    *appintegration.OrderSyncService
	ShippingSync *appintegration.ShippingSyncService
	Labels       *appintegration.LabelService
	Orders       *appintegration.OrderQueryService

	closers []func(context.Context) error
}

// New builds the application. The caller must call Close.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: log}
	if err := app.init(ctx); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, log := a.Config, a.Logger

	if err := a.initTelemetry(ctx); err != nil {
		return err
	}
	if err := a.initDatabase(ctx); err != nil {
		return err
	}

	registry, err := ecommerce.NewDefaultRegistry(RegistryConfig(cfg.Marketplace), log)
	if err != nil {
		return fmt.Errorf("build marketplace registry: %w", err)
	}
	a.Registry = registry

	lock, err := cache.NewSyncLockFactory(cfg.Redis, cache.WithLogger(log)).CreateLock()
	if err != nil {
		return fmt.Errorf("create sync lock: %w", err)
	}
	if c, ok := lock.(interface{ Close() error }); ok {
		a.addCloser(func(context.Context) error { return c.Close() })
	}

	opts := []appintegration.OrderSyncOption{
		appintegration.WithSyncLock(lock, cfg.Sync.LockTTL),
		appintegration.WithFetchTimeout(cfg.Sync.FetchTimeout),
	}

	syncMetrics, err := telemetry.NewSyncMetrics(a.Meter.Meter("shiphub/sync"))
	if err != nil {
		return fmt.Errorf("create sync metrics: %w", err)
	}
	opts = append(opts, appintegration.WithSyncMetrics(syncMetrics))

	archive, err := a.newArchive(ctx)
	if err != nil {
		return err
	}
	if archive != nil {
		opts = append(opts, appintegration.WithPayloadArchive(archive))
	}

	events, err := a.newPublisher()
	if err != nil {
		return err
	}
	opts = append(opts, appintegration.WithEventPublisher(events))

	gormDB := a.DB.DB
	a.Credentials = persistence.NewGormCredentialRepository(gormDB)
	orders := persistence.NewGormOrderRepository(gormDB)
	shipping := persistence.NewGormOrderShippingRepository(gormDB)
	profiles := persistence.NewGormShipperProfileRepository(gormDB)

	a.JWT = auth.NewJWTService(cfg.JWT)
	a.OrderSync = appintegration.NewOrderSyncService(a.Credentials, a.Registry, orders, log, opts...)
	a.ShippingSync = appintegration.NewShippingSyncService(
		a.Credentials, a.Registry, orders, shipping, profiles,
		cfg.Sync.ShippingWorkers, cfg.Sync.FetchTimeout, log,
	)
	a.Labels = appintegration.NewLabelService(orders, shipping, profiles, a.JWT, cfg.Label.EndpointURL, cfg.Label.Timeout, log)
	a.Orders = appintegration.NewOrderQueryService(orders, shipping)
	return nil
}

func (a *App) initTelemetry(ctx context.Context) error {
	cfg := a.Config.Telemetry

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.TracingEnabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.Tracer = tracer
	a.addCloser(tracer.Shutdown)

	meter, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.MetricsEnabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ExportInterval:    cfg.ExportInterval,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	a.Meter = meter
	a.addCloser(meter.Shutdown)
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	gormLog := logger.NewGormLogger(a.Logger, logger.MapGormLogLevel(a.Config.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&a.Config.Database, gormLog)
	if err != nil {
		return err
	}
	a.DB = db
	a.addCloser(func(context.Context) error { return db.Close() })

	tracing := telemetry.DefaultDBTracingConfig()
	tracing.Enabled = a.Config.Telemetry.TracingEnabled && a.Config.Telemetry.DBTraceEnabled
	tracing.LogFullSQL = !a.Config.App.IsProduction()
	if err := telemetry.NewDBTracingPlugin(tracing, a.Logger).RegisterOtelGorm(db.DB); err != nil {
		return fmt.Errorf("register db tracing: %w", err)
	}

	if a.Meter.IsEnabled() {
		sqlDB, err := db.DB.DB()
		if err != nil {
			return fmt.Errorf("get sql.DB: %w", err)
		}
		pool, err := telemetry.NewDBPoolMetrics(a.Meter.Meter("shiphub/db"), sqlDB, 0, a.Logger)
		if err != nil {
			return fmt.Errorf("create pool metrics: %w", err)
		}
		pool.Start(ctx)
		a.addCloser(func(context.Context) error { pool.Stop(); return nil })
	}

	a.Logger.Info("Database connected successfully")
	return nil
}

func (a *App) newArchive(ctx context.Context) (integration.PayloadArchive, error) {
	cfg := a.Config.Storage
	if !cfg.Enabled {
		return nil, nil
	}

	archive, err := storage.NewS3PayloadArchive(ctx, &cfg, storage.WithLogger(a.Logger))
	if err != nil {
		return nil, fmt.Errorf("create payload archive: %w", err)
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure archive bucket: %w", err)
	}
	a.Logger.Info("Raw payload archive enabled", zap.String("bucket", archive.Bucket()))
	return archive, nil
}

func (a *App) newPublisher() (integration.EventPublisher, error) {
	if !a.Config.Events.Enabled {
		return event.NewLogPublisher(a.Logger), nil
	}

	publisher, err := event.NewKafkaPublisher(a.Config.Events, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	a.addCloser(func(context.Context) error { return publisher.Close() })
	return publisher, nil
}

func (a *App) addCloser(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse creation order
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RegistryConfig maps marketplace settings onto the adapter configs.
// Zero values keep the adapter defaults.
func RegistryConfig(cfg config.MarketplaceConfig) ecommerce.RegistryConfig {
	timeout := int(cfg.RequestTimeout / time.Second)

	veeqo := ecommerce.NewVeeqoConfig()
	setString(&veeqo.APIBaseURL, cfg.VeeqoBaseURL)
	setInt(&veeqo.PageSize, cfg.VeeqoPageSize)
	setString(&veeqo.Status, cfg.VeeqoStatus)
	setInt(&veeqo.TimeoutSeconds, timeout)
	setFloat(&veeqo.RequestsPerSecond, cfg.RequestsPerSecond)

	trendyol := ecommerce.NewTrendyolConfig()
	setString(&trendyol.APIBaseURL, cfg.TrendyolBaseURL)
	setInt(&trendyol.PageSize, cfg.TrendyolPage)
	setInt(&trendyol.WindowDays, cfg.TrendyolWindow)
	setInt(&trendyol.TimeoutSeconds, timeout)
	setFloat(&trendyol.RequestsPerSecond, cfg.RequestsPerSecond)

	shippo := ecommerce.NewShippoConfig()
	setString(&shippo.APIBaseURL, cfg.ShippoBaseURL)
	setInt(&shippo.PageSize, cfg.ShippoPageSize)
	setInt(&shippo.TimeoutSeconds, timeout)
	setFloat(&shippo.RequestsPerSecond, cfg.RequestsPerSecond)

	return ecommerce.RegistryConfig{Veeqo: veeqo, Trendyol: trendyol, Shippo: shippo}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}
