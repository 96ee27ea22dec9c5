package ecommerce

import "errors"

// ShippoConfig holds configuration for the Shippo orders API
type ShippoConfig struct {
	// APIBaseURL is the base URL for the Shippo API
	APIBaseURL string
	// PageSize is the limit value of the order listing
	PageSize int
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RequestsPerSecond caps outgoing requests; 0 disables limiting
	RequestsPerSecond float64
}

const (
	// ShippoProductionAPIURL is the production API endpoint
	ShippoProductionAPIURL = "https://api.goshippo.com"
	// ShippoDefaultPageSize is the default limit value
	ShippoDefaultPageSize = 100
)

// Errors for Shippo configuration
var (
	ErrShippoConfigMissingBaseURL = errors.New("shippo: api base url is required")
)

// NewShippoConfig creates a new Shippo configuration with defaults
func NewShippoConfig() *ShippoConfig {
	return &ShippoConfig{
		APIBaseURL:        ShippoProductionAPIURL,
		PageSize:          ShippoDefaultPageSize,
		TimeoutSeconds:    30,
		RequestsPerSecond: 5,
	}
}

// Validate validates the Shippo configuration and fills zero values
func (c *ShippoConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrShippoConfigMissingBaseURL
	}
	if c.PageSize <= 0 {
		c.PageSize = ShippoDefaultPageSize
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
