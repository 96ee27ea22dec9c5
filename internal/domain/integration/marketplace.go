package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Marketplace Errors
// ---------------------------------------------------------------------------

var (
	// Fetch errors
	ErrMissingCredentials         = errors.New("integration: missing marketplace credentials")
	ErrMarketplaceUnavailable     = errors.New("integration: marketplace temporarily unavailable")
	ErrMarketplaceRequestFailed   = errors.New("integration: marketplace request failed")
	ErrMarketplaceInvalidResponse = errors.New("integration: invalid marketplace response")
	ErrMarketplaceRateLimited     = errors.New("integration: marketplace rate limited")
	ErrUnsupportedMarketplace     = errors.New("integration: unsupported marketplace")

	// Normalization errors
	ErrOrderKeyMissing = errors.New("integration: upstream order has no identifier")
	ErrOrderMalformed  = errors.New("integration: malformed upstream order")
)

// ---------------------------------------------------------------------------
// MarketplaceCode identifies an upstream order source
// ---------------------------------------------------------------------------

// MarketplaceCode identifies an upstream order source
type MarketplaceCode string

const (
	// MarketplaceVeeqo is the Veeqo multichannel inventory API
	MarketplaceVeeqo MarketplaceCode = "VEEQO"
	// MarketplaceTrendyol is the Trendyol seller integration API
	MarketplaceTrendyol MarketplaceCode = "TRENDYOL"
	// MarketplaceShippo is the Shippo orders API
	MarketplaceShippo MarketplaceCode = "SHIPPO"
)

// AllMarketplaces returns every supported marketplace in sync order.
func AllMarketplaces() []MarketplaceCode {
	return []MarketplaceCode{MarketplaceVeeqo, MarketplaceTrendyol, MarketplaceShippo}
}

// ParseMarketplaceCode parses a case-insensitive marketplace code.
func ParseMarketplaceCode(s string) (MarketplaceCode, error) {
	code := MarketplaceCode(strings.ToUpper(strings.TrimSpace(s)))
	if !code.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMarketplace, s)
	}
	return code, nil
}

// IsValid returns true if the marketplace code is supported
func (c MarketplaceCode) IsValid() bool {
	switch c {
	case MarketplaceVeeqo, MarketplaceTrendyol, MarketplaceShippo:
		return true
	default:
		return false
	}
}

// String returns the string representation of MarketplaceCode
func (c MarketplaceCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the marketplace
func (c MarketplaceCode) DisplayName() string {
	switch c {
	case MarketplaceVeeqo:
		return "Veeqo"
	case MarketplaceTrendyol:
		return "Trendyol"
	case MarketplaceShippo:
		return "Shippo"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials is an opaque key bundle for one marketplace of one user.
// Which fields are required depends on the marketplace.
type Credentials struct {
	UserID      uuid.UUID
	Marketplace MarketplaceCode
	APIKey      string
	APISecret   string
	AccountID   string // Trendyol supplier ID
}

// HasAPIKey reports whether a non-blank API key is present
func (c Credentials) HasAPIKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// HasAPISecret reports whether a non-blank API secret is present
func (c Credentials) HasAPISecret() bool {
	return strings.TrimSpace(c.APISecret) != ""
}

// HasAccountID reports whether a non-blank account identifier is present
func (c Credentials) HasAccountID() bool {
	return strings.TrimSpace(c.AccountID) != ""
}

// CredentialRepository reads marketplace credentials maintained by the settings service.
type CredentialRepository interface {
	// ListByUser returns every credential set configured for the user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Credentials, error)

	// ListUserIDs returns every user that has at least one credential set
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ---------------------------------------------------------------------------
// Adapter ports
// ---------------------------------------------------------------------------

// RawOrder is one upstream order payload decoded into a generic JSON tree.
type RawOrder map[string]any

// OrderFetcher retrieves raw orders from one marketplace.
// An empty result is valid and distinct from an error.
type OrderFetcher interface {
	Code() MarketplaceCode
	FetchOrders(ctx context.Context, creds Credentials) ([]RawOrder, error)
}

// OrderNormalizer maps one raw upstream order into the canonical shape.
// It returns ErrOrderKeyMissing when the order carries no usable identifier.
type OrderNormalizer interface {
	Normalize(raw RawOrder) (*NormalizedOrder, error)
}

// ShippingExtractor derives the delivery contact from one raw upstream order.
type ShippingExtractor interface {
	ExtractShipping(raw RawOrder) (*ShippingContact, error)
}

// Marketplace bundles the adapters for one upstream.
type Marketplace interface {
	OrderFetcher
	OrderNormalizer
	ShippingExtractor
}

// MarketplaceResolver resolves the adapter for a marketplace code.
type MarketplaceResolver interface {
	Resolve(code MarketplaceCode) (Marketplace, error)
}

// ShipmentFetcher is implemented by marketplaces that expose a separate
// listing for orders with shipment updates. The shipping pass prefers it.
type ShipmentFetcher interface {
	FetchShipmentUpdates(ctx context.Context, creds Credentials) ([]RawOrder, error)
}

// ---------------------------------------------------------------------------
// UpstreamError
// ---------------------------------------------------------------------------

// UpstreamError reports a non-success HTTP response from a marketplace.
// The body is kept verbatim for operator diagnosis.
type UpstreamError struct {
	Marketplace MarketplaceCode
	StatusCode  int
	Body        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: HTTP %d: %s", e.Marketplace.DisplayName(), e.StatusCode, e.Body)
}

// Unwrap maps the status onto the sentinel errors
func (e *UpstreamError) Unwrap() error {
	if e.StatusCode == 429 {
		return ErrMarketplaceRateLimited
	}
	return ErrMarketplaceRequestFailed
}
