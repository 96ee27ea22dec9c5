package ecommerce

import "errors"

// VeeqoConfig holds configuration for the Veeqo API integration
type VeeqoConfig struct {
	// APIBaseURL is the base URL for the Veeqo API
	APIBaseURL string
	// PageSize is the per_page value of the order listing
	PageSize int
	// Status is the server-side status bucket to list
	Status string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RequestsPerSecond caps outgoing requests; 0 disables limiting
	RequestsPerSecond float64
}

const (
	// VeeqoProductionAPIURL is the production API endpoint
	VeeqoProductionAPIURL = "https://api.veeqo.com"
	// VeeqoDefaultPageSize is the default per_page value
	VeeqoDefaultPageSize = 200
	// VeeqoAwaitingFulfillment is the status bucket of orders ready to ship
	VeeqoAwaitingFulfillment = "awaiting_fulfillment"
)

// Errors for Veeqo configuration
var (
	ErrVeeqoConfigMissingBaseURL = errors.New("veeqo: api base url is required")
)

// NewVeeqoConfig creates a new Veeqo configuration with defaults
func NewVeeqoConfig() *VeeqoConfig {
	return &VeeqoConfig{
		APIBaseURL:        VeeqoProductionAPIURL,
		PageSize:          VeeqoDefaultPageSize,
		Status:            VeeqoAwaitingFulfillment,
		TimeoutSeconds:    30,
		RequestsPerSecond: 2,
	}
}

// Validate validates the Veeqo configuration and fills zero values
func (c *VeeqoConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrVeeqoConfigMissingBaseURL
	}
	if c.PageSize <= 0 {
		c.PageSize = VeeqoDefaultPageSize
	}
	if c.Status == "" {
		c.Status = VeeqoAwaitingFulfillment
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
