package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Order Errors
// ---------------------------------------------------------------------------

var (
	ErrOrderNotFound     = errors.New("integration: order not found")
	ErrInvalidUserID     = errors.New("integration: invalid user ID")
	ErrInvalidOrderInput = errors.New("integration: invalid normalized order")
)

// UnknownCustomer is the customer name used when no upstream name resolves
const UnknownCustomer = "Unknown Customer"

// UnknownProduct is the product name used when no upstream title resolves
const UnknownProduct = "Unknown Product"

// UnknownSKU is the SKU used when an upstream line has none
const UnknownSKU = "UNKNOWN"

// ---------------------------------------------------------------------------
// Normalized shape
// ---------------------------------------------------------------------------

// Address is a structured delivery address. Every field defaults to "".
type Address struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

// NormalizedOrder is the canonical form of one upstream order.
type NormalizedOrder struct {
	Marketplace          MarketplaceCode
	MarketplaceKey       string // upstream id or number, always a string
	MarketplaceName      string // display name, e.g. the sales channel
	MarketplaceCreatedAt *time.Time
	CustomerName         string
	Status               string // UPPER_SNAKE
	ShipByDate           *time.Time
	Currency             string
	TotalPrice           decimal.Decimal
	ShippingAddress      Address
	Items                []NormalizedItem
}

// NormalizedItem is the canonical form of one upstream line item.
type NormalizedItem struct {
	MarketplaceLineID string
	SKU               string
	ProductName       string
	Variant           *string
	Quantity          int
	UnitPrice         decimal.Decimal
	TotalPrice        decimal.Decimal // Quantity x UnitPrice
	ImageURL          *string
	Notes             *string
}

// Validate checks the fields the reconciliation key depends on
func (o *NormalizedOrder) Validate() error {
	if o == nil || !o.Marketplace.IsValid() || o.MarketplaceKey == "" {
		return ErrInvalidOrderInput
	}
	return nil
}

// ---------------------------------------------------------------------------
// Order aggregate
// ---------------------------------------------------------------------------

// Order is the stored canonical order. (UserID, Marketplace, MarketplaceKey) is unique.
type Order struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	Marketplace          MarketplaceCode
	MarketplaceKey       string
	MarketplaceName      string
	MarketplaceCreatedAt *time.Time
	CustomerName         string
	Status               string
	ShipByDate           *time.Time
	Currency             string
	TotalPrice           decimal.Decimal
	ShippingAddress      Address
	Items                []OrderItem
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// OrderItem is owned by exactly one Order
type OrderItem struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	MarketplaceLineID string
	SKU               string
	ProductName       string
	Variant           *string
	Quantity          int
	UnitPrice         decimal.Decimal
	TotalPrice        decimal.Decimal
	ImageURL          *string
	Notes             *string
	CreatedAt         time.Time
}

// ReconcileResult reports the outcome of reconciling one order
type ReconcileResult struct {
	OrderID uuid.UUID
	Created bool
}

// OrderFilter narrows order listings for one user
type OrderFilter struct {
	UserID      uuid.UUID
	Marketplace MarketplaceCode
	Status      string
	Page        int
	PageSize    int
	OrderBy     string
	OrderDir    string
}

// OrderRepository persists canonical orders.
type OrderRepository interface {
	// Reconcile creates or fully replaces the order identified by
	// (userID, order.Marketplace, order.MarketplaceKey), replacing its items.
	// It is atomic per identity triple under concurrent callers.
	Reconcile(ctx context.Context, userID uuid.UUID, order *NormalizedOrder) (*ReconcileResult, error)

	// FindByKey returns ErrOrderNotFound when no order matches the triple
	FindByKey(ctx context.Context, userID uuid.UUID, marketplace MarketplaceCode, marketplaceKey string) (*Order, error)

	// FindByID returns the user's order with its items
	FindByID(ctx context.Context, userID, orderID uuid.UUID) (*Order, error)

	// List returns a page of the user's orders and the total count
	List(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
}
