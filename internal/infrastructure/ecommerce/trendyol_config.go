package ecommerce

import (
	"errors"
	"time"
)

// TrendyolConfig holds configuration for the Trendyol seller integration API
type TrendyolConfig struct {
	// APIBaseURL is the base URL for the Trendyol API gateway
	APIBaseURL string
	// PageSize is the size value of the order listing
	PageSize int
	// WindowDays is how far back the startDate of the listing reaches
	WindowDays int
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RequestsPerSecond caps outgoing requests; 0 disables limiting
	RequestsPerSecond float64
}

const (
	// TrendyolProductionAPIURL is the production API endpoint
	TrendyolProductionAPIURL = "https://apigw.trendyol.com"
	// TrendyolDefaultPageSize is the default size value
	TrendyolDefaultPageSize = 200
	// TrendyolDefaultWindowDays is the default listing window
	TrendyolDefaultWindowDays = 14
)

// TrendyolListMode selects which order listing is requested
type TrendyolListMode int

const (
	// TrendyolModeCreated lists orders in Created status by creation date
	TrendyolModeCreated TrendyolListMode = iota
	// TrendyolModeShipmentUpdate lists orders of any status by last modification
	TrendyolModeShipmentUpdate
)

// Errors for Trendyol configuration
var (
	ErrTrendyolConfigMissingBaseURL = errors.New("trendyol: api base url is required")
)

// NewTrendyolConfig creates a new Trendyol configuration with defaults
func NewTrendyolConfig() *TrendyolConfig {
	return &TrendyolConfig{
		APIBaseURL:        TrendyolProductionAPIURL,
		PageSize:          TrendyolDefaultPageSize,
		WindowDays:        TrendyolDefaultWindowDays,
		TimeoutSeconds:    30,
		RequestsPerSecond: 5,
	}
}

// Validate validates the Trendyol configuration and fills zero values
func (c *TrendyolConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrTrendyolConfigMissingBaseURL
	}
	if c.PageSize <= 0 {
		c.PageSize = TrendyolDefaultPageSize
	}
	if c.WindowDays <= 0 {
		c.WindowDays = TrendyolDefaultWindowDays
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// Window returns the listing window ending at now
func (c *TrendyolConfig) Window(now time.Time) (start, end time.Time) {
	return now.AddDate(0, 0, -c.WindowDays), now
}
