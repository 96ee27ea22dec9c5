package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/shiphub/backend/internal/bootstrap"
	"github.com/shiphub/backend/internal/infrastructure/config"
	"github.com/shiphub/backend/internal/infrastructure/logger"
	"github.com/shiphub/backend/internal/infrastructure/scheduler"
	"github.com/shiphub/backend/internal/interfaces/http/handler"
	"github.com/shiphub/backend/internal/interfaces/http/middleware"
	"github.com/shiphub/backend/internal/interfaces/http/router"
)

//	@title			ShipHub API
//	@version		1.0
//	@description	Order aggregation across Veeqo, Trendyol and Shippo

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ShipHub backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.HTTP.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Error("Error releasing resources", zap.Error(err))
		}
	}()

	// Background sync: per-user worker pool plus the interval trigger
	var (
		syncScheduler *scheduler.UserSyncScheduler
		syncTrigger   *scheduler.SyncTrigger
	)
	if cfg.Sync.Enabled {
		syncScheduler, err = scheduler.NewUserSyncScheduler(schedulerConfig(cfg.Sync), app.OrderSync, app.ShippingSync, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}

		syncTrigger = scheduler.NewSyncTrigger(scheduler.SyncTriggerConfig{
			Interval:         cfg.Sync.Interval,
			ShippingInterval: cfg.Sync.ShippingInterval,
			SweepTimeout:     cfg.Sync.JobTimeout,
		}, app.Credentials, syncScheduler, app.ShippingSync, log)
		if err := syncTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start sync trigger", zap.Error(err))
		}
	} else {
		log.Info("Background sync disabled")
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	syncHandler := handler.NewSyncHandler(app.OrderSync, nil, nil)
	if syncScheduler != nil {
		syncHandler = handler.NewSyncHandler(app.OrderSync, syncScheduler, syncTrigger)
	}

	engine, err := router.NewEngine(router.APIConfig{
		Logger:         log,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		AllowOrigins:   cfg.HTTP.CORSAllowOrigins,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		HSTS:           cfg.App.IsProduction(),
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     app.Tracer.IsEnabled(),
		},
		Meter:       httpMeter(app),
		Tokens:      app.JWT,
		SyncLimiter: middleware.NewRateLimiter(cfg.HTTP.SyncRateLimitBurst, cfg.HTTP.SyncRateLimitWindow),
	}, router.Handlers{
		Health: handler.NewHealthHandler(app.DB),
		Orders: handler.NewOrderHandler(app.Orders, app.Labels),
		Sync:   syncHandler,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.HTTP.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if syncTrigger != nil {
		if err := syncTrigger.Stop(shutdownCtx); err != nil {
			log.Error("Sync trigger did not stop cleanly", zap.Error(err))
		}
	}
	if syncScheduler != nil {
		if err := syncScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Sync scheduler did not stop cleanly", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

func schedulerConfig(cfg config.SyncConfig) scheduler.UserSyncSchedulerConfig {
	sc := scheduler.DefaultUserSyncSchedulerConfig()
	if cfg.WorkerCount > 0 {
		sc.WorkerCount = cfg.WorkerCount
	}
	if cfg.QueueSize > 0 {
		sc.QueueSize = cfg.QueueSize
	}
	if cfg.JobTimeout > 0 {
		sc.JobTimeout = cfg.JobTimeout
	}
	sc.MaxRetries = cfg.MaxRetries
	return sc
}

func httpMeter(app *bootstrap.App) metric.Meter {
	if !app.Meter.IsEnabled() {
		return nil
	}
	return app.Meter.Meter("shiphub/http")
}
