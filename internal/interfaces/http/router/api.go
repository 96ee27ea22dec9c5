package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/shiphub/backend/internal/infrastructure/auth"
	"github.com/shiphub/backend/internal/infrastructure/logger"
	"github.com/shiphub/backend/internal/interfaces/http/handler"
	"github.com/shiphub/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// APIConfig configures the HTTP middleware stack
type APIConfig struct {
	Logger         *zap.Logger
	TrustedProxies []string
	AllowOrigins   []string
	MaxBodySize    int64
	HSTS           bool

	Tracing middleware.TracingConfig
	// Meter records HTTP metrics; nil disables them
	Meter metric.Meter

	Tokens      middleware.AccessTokenValidator
	SyncLimiter *middleware.RateLimiter
}

// Handlers groups the API handlers
type Handlers struct {
	Health *handler.HealthHandler
	Orders *handler.OrderHandler
	Sync   *handler.SyncHandler
}

// NewEngine builds the gin engine with the full middleware stack and all
// API routes registered.
func NewEngine(cfg APIConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	}

	// Request id first; recovery, tracing and error bodies read it.
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(cfg.Meter))

	engine.Use(middleware.SecurityHeaders(cfg.HSTS))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.AllowOrigins
	cors.ExposeHeaders = []string{logger.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	engine.Use(middleware.CORSWithConfig(cors))

	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	if h.Health != nil {
		engine.GET("/health", h.Health.Check)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	jwtConfig := middleware.DefaultJWTConfig(cfg.Tokens)
	jwtConfig.Logger = log
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig), middleware.TracingAttributeInjector())

	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.SyncLimiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{middleware.RateLimitByUser(cfg.SyncLimiter), h}
	}

	operatorOnly := func(hs ...gin.HandlerFunc) []gin.HandlerFunc {
		return append([]gin.HandlerFunc{middleware.RequireRole(auth.RoleOperator)}, hs...)
	}

	if h.Orders != nil {
		orders := NewDomainGroup("orders", "/orders")
		orders.GET("", h.Orders.List)
		orders.GET("/:id", h.Orders.Get)
		orders.POST("/:id/label", h.Orders.RequestLabel)
		r.Register(orders)
	}

	if h.Sync != nil {
		sync := NewDomainGroup("sync", "/sync")
		sync.POST("/orders", limited(h.Sync.SyncOrders)...)
		sync.POST("/shipping", operatorOnly(limited(h.Sync.SyncShipping)...)...)
		sync.GET("/jobs", h.Sync.ListJobs)
		sync.GET("/jobs/:id", h.Sync.GetJob)
		r.Register(sync)
	}

	r.Setup()
	return engine, nil
}
