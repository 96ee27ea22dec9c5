package integration

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var (
	ErrShippingNotFound       = errors.New("integration: order shipping not found")
	ErrShipperProfileNotFound = errors.New("integration: shipper profile not found")
)

// DefaultDutiesPaymentType is used when a shipper profile sets none
const DefaultDutiesPaymentType = "DDU"

// ShippingContact is the delivery contact as read from an upstream order.
type ShippingContact struct {
	MarketplaceKey string
	FirstName      string
	LastName       string
	FullName       string // used when first/last are not provided separately
	Company        string
	Email          string
	Street1        string
	Street2        string
	City           string
	State          string
	Zip            string
	Country        string
	Phone          string
}

// OrderShipping is the normalized delivery record of one Order (OrderID is unique).
type OrderShipping struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Company   string
	Email     string
	Street1   string
	Street2   string
	City      string
	State     string
	Zip       string
	Country   string
	Phone     string // digits only
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins the non-empty name parts
func (s *OrderShipping) FullName() string {
	return JoinNonEmpty(" ", s.FirstName, s.LastName)
}

// ShipperProfile holds per-user sender defaults.
type ShipperProfile struct {
	UserID            uuid.UUID
	Name              string
	Company           string
	Email             string
	Street1           string
	Street2           string
	City              string
	State             string
	Zip               string
	Country           string
	Phone             string
	DefaultCurrency   string
	DutiesPaymentType string
}

// DefaultPhone returns the profile phone reduced to digits, or "" for a nil profile
func (p *ShipperProfile) DefaultPhone() string {
	if p == nil {
		return ""
	}
	return DigitsOnly(p.Phone)
}

// NewOrderShipping derives the shipping record for an existing order.
// The name is split into first and last, the phone is reduced to digits and
// falls back to the shipper profile's phone when empty.
func NewOrderShipping(orderID, userID uuid.UUID, c *ShippingContact, profile *ShipperProfile) *OrderShipping {
	first, last := strings.TrimSpace(c.FirstName), strings.TrimSpace(c.LastName)
	if first == "" && last == "" {
		first, last = SplitName(c.FullName)
	}

	phone := DigitsOnly(c.Phone)
	if phone == "" {
		phone = profile.DefaultPhone()
	}

	return &OrderShipping{
		ID:        uuid.New(),
		OrderID:   orderID,
		UserID:    userID,
		FirstName: first,
		LastName:  last,
		Company:   strings.TrimSpace(c.Company),
		Email:     strings.TrimSpace(c.Email),
		Street1:   strings.TrimSpace(c.Street1),
		Street2:   strings.TrimSpace(c.Street2),
		City:      strings.TrimSpace(c.City),
		State:     strings.TrimSpace(c.State),
		Zip:       strings.TrimSpace(c.Zip),
		Country:   strings.TrimSpace(c.Country),
		Phone:     phone,
	}
}

// SplitName splits a full name at the first whitespace run.
// "Ada King Lovelace" -> ("Ada", "King Lovelace").
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// DigitsOnly strips every non-digit rune
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// JoinNonEmpty joins the trimmed, non-empty parts with sep
func JoinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// OrderShippingRepository persists shipping records.
type OrderShippingRepository interface {
	// Upsert inserts or replaces the record keyed by OrderID
	Upsert(ctx context.Context, shipping *OrderShipping) error

	// FindByOrderID returns ErrShippingNotFound when absent
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*OrderShipping, error)
}

// ShipperProfileRepository reads shipper profiles maintained by the settings service.
type ShipperProfileRepository interface {
	// FindByUser returns ErrShipperProfileNotFound when the user has none
	FindByUser(ctx context.Context, userID uuid.UUID) (*ShipperProfile, error)
}
