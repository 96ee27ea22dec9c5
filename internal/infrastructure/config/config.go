package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	Sync        SyncConfig
	Marketplace MarketplaceConfig
	Storage     StorageConfig
	Events      EventsConfig
	Telemetry   TelemetryConfig
	Label       LabelConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// IsProduction reports whether the service runs with production safeguards.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
	MaxBodySize    int64

	CORSAllowOrigins []string

	// Per-user limit on the manual sync endpoints
	SyncRateLimitBurst  int
	SyncRateLimitWindow time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings.
// When disabled the sync lock falls back to an in-process implementation.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds the settings used to validate access tokens issued by the
// identity service.
type JWTConfig struct {
	Secret string
	Issuer string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// SyncConfig holds the order sync scheduler settings
type SyncConfig struct {
	Enabled          bool
	WorkerCount      int
	QueueSize        int
	Interval         time.Duration // full sync of every user; 0 disables
	ShippingInterval time.Duration // shipping-info sweep; 0 disables
	FetchTimeout     time.Duration // per marketplace fetch inside one SyncUser
	JobTimeout       time.Duration
	MaxRetries       int
	LockTTL          time.Duration
	ShippingWorkers  int
}

// MarketplaceConfig holds upstream API settings per marketplace
type MarketplaceConfig struct {
	RequestTimeout    time.Duration
	RequestsPerSecond float64

	VeeqoBaseURL    string
	VeeqoPageSize   int
	VeeqoStatus     string
	TrendyolBaseURL string
	TrendyolPage    int
	TrendyolWindow  int // days
	ShippoBaseURL   string
	ShippoPageSize  int
}

// StorageConfig holds the S3 payload archive settings
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// EventsConfig holds kafka publisher settings
type EventsConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	MetricsEnabled    bool
	TracingEnabled    bool
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	ServiceName       string  // Service name for traces and metrics
	SamplingRatio     float64 // 0.0-1.0
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	ExportInterval    time.Duration
	DBTraceEnabled    bool
}

// LabelConfig holds the shipping label hand-off settings
type LabelConfig struct {
	EndpointURL string
	Timeout     time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHIPHUB_ prefix (e.g., SHIPHUB_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/shiphub")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHIPHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		HTTP: HTTPConfig{
			Port:           v.GetString("http.port"),
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),

			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),

			SyncRateLimitBurst:  v.GetInt("http.sync_rate_limit_burst"),
			SyncRateLimitWindow: v.GetDuration("http.sync_rate_limit_window"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Sync: SyncConfig{
			Enabled:          v.GetBool("sync.enabled"),
			WorkerCount:      v.GetInt("sync.worker_count"),
			QueueSize:        v.GetInt("sync.queue_size"),
			Interval:         v.GetDuration("sync.interval"),
			ShippingInterval: v.GetDuration("sync.shipping_interval"),
			FetchTimeout:     v.GetDuration("sync.fetch_timeout"),
			JobTimeout:       v.GetDuration("sync.job_timeout"),
			MaxRetries:       v.GetInt("sync.max_retries"),
			LockTTL:          v.GetDuration("sync.lock_ttl"),
			ShippingWorkers:  v.GetInt("sync.shipping_workers"),
		},
		Marketplace: MarketplaceConfig{
			RequestTimeout:    v.GetDuration("marketplace.request_timeout"),
			RequestsPerSecond: v.GetFloat64("marketplace.requests_per_second"),
			VeeqoBaseURL:      v.GetString("marketplace.veeqo_base_url"),
			VeeqoPageSize:     v.GetInt("marketplace.veeqo_page_size"),
			VeeqoStatus:       v.GetString("marketplace.veeqo_status"),
			TrendyolBaseURL:   v.GetString("marketplace.trendyol_base_url"),
			TrendyolPage:      v.GetInt("marketplace.trendyol_page_size"),
			TrendyolWindow:    v.GetInt("marketplace.trendyol_window_days"),
			ShippoBaseURL:     v.GetString("marketplace.shippo_base_url"),
			ShippoPageSize:    v.GetInt("marketplace.shippo_page_size"),
		},
		Storage: StorageConfig{
			Enabled:         v.GetBool("storage.enabled"),
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
		},
		Events: EventsConfig{
			Enabled: v.GetBool("events.enabled"),
			Brokers: v.GetStringSlice("events.brokers"),
			Topic:   v.GetString("events.topic"),
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			TracingEnabled:    v.GetBool("telemetry.tracing_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
		Label: LabelConfig{
			EndpointURL: v.GetString("label.endpoint_url"),
			Timeout:     v.GetDuration("label.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shiphub"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// a manual sync request waits for every marketplace of the user
		cfg.HTTP.WriteTimeout = 3 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.SyncRateLimitBurst == 0 {
		cfg.HTTP.SyncRateLimitBurst = 5
	}
	if cfg.HTTP.SyncRateLimitWindow == 0 {
		cfg.HTTP.SyncRateLimitWindow = time.Minute
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "shiphub"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "shiphub"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Sync.WorkerCount == 0 {
		cfg.Sync.WorkerCount = 4
	}
	if cfg.Sync.QueueSize == 0 {
		cfg.Sync.QueueSize = 100
	}
	if cfg.Sync.FetchTimeout == 0 {
		cfg.Sync.FetchTimeout = 60 * time.Second
	}
	if cfg.Sync.JobTimeout == 0 {
		cfg.Sync.JobTimeout = 5 * time.Minute
	}
	if cfg.Sync.MaxRetries == 0 {
		cfg.Sync.MaxRetries = 2
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 10 * time.Minute
	}
	if cfg.Sync.ShippingWorkers == 0 {
		cfg.Sync.ShippingWorkers = 4
	}
	if cfg.Marketplace.RequestTimeout == 0 {
		cfg.Marketplace.RequestTimeout = 30 * time.Second
	}
	if cfg.Marketplace.VeeqoBaseURL == "" {
		cfg.Marketplace.VeeqoBaseURL = "https://api.veeqo.com"
	}
	if cfg.Marketplace.TrendyolBaseURL == "" {
		cfg.Marketplace.TrendyolBaseURL = "https://apigw.trendyol.com"
	}
	if cfg.Marketplace.ShippoBaseURL == "" {
		cfg.Marketplace.ShippoBaseURL = "https://api.goshippo.com"
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "order.reconciled"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "shiphub"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 30 * time.Second
	}
	if cfg.Label.Timeout == 0 {
		cfg.Label.Timeout = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.WorkerCount <= 0 {
		return fmt.Errorf("sync.worker_count must be positive")
	}
	if c.Sync.QueueSize <= 0 {
		return fmt.Errorf("sync.queue_size must be positive")
	}
	if c.Sync.ShippingWorkers <= 0 {
		return fmt.Errorf("sync.shipping_workers must be positive")
	}
	if c.Marketplace.RequestsPerSecond < 0 {
		return fmt.Errorf("marketplace.requests_per_second cannot be negative")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers is required when events are enabled")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.IsProduction() {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
