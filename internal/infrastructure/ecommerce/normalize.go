package ecommerce

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shiphub/backend/internal/domain/integration"
)

var lowerCaser = cases.Lower(language.Und)

// capitalize upper-cases the first letter and lower-cases the rest:
// "AMAZON" -> "Amazon", "ebay" -> "Ebay".
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = lowerCaser.String(s)
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// normalizeStatus upper-cases an upstream status and replaces whitespace
// runs with underscores. Blank input becomes "UNKNOWN".
func normalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "unknown"
	}
	return strings.Join(strings.Fields(strings.ToUpper(s)), "_")
}

// nameOrUnknown joins the name parts or returns the unknown-customer literal
func nameOrUnknown(parts ...string) string {
	if name := integration.JoinNonEmpty(" ", parts...); name != "" {
		return name
	}
	return integration.UnknownCustomer
}

// joinNotes pipe-joins the non-empty trimmed notes; nil when all are empty
func joinNotes(notes ...string) *string {
	return optionalString(integration.JoinNonEmpty(" | ", notes...))
}

// optionalString returns nil for a blank string
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// priceScale is the number of decimal places prices are stored with
const priceScale = 4

// newItem fills the derived fields of a normalized line
func newItem(lineID, sku, name string, variant *string, quantity int, unitPrice decimal.Decimal, imageURL, notes *string) integration.NormalizedItem {
	if sku == "" {
		sku = integration.UnknownSKU
	}
	if name == "" {
		name = integration.UnknownProduct
	}
	return integration.NormalizedItem{
		MarketplaceLineID: lineID,
		SKU:               sku,
		ProductName:       name,
		Variant:           variant,
		Quantity:          quantity,
		UnitPrice:         unitPrice,
		TotalPrice:        unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		ImageURL:          imageURL,
		Notes:             notes,
	}
}

// firstImage returns the URL of the first element of an image list.
// Elements may be plain strings or objects with a src or url field.
func firstImage(obj any, path string) string {
	images := GetSlice(obj, path)
	if len(images) == 0 {
		return ""
	}
	if s, ok := images[0].(string); ok {
		return strings.TrimSpace(s)
	}
	return FirstString(images[0], "src", "url")
}

// orderKey returns the first identifier among paths coerced to a string
func orderKey(raw integration.RawOrder, paths ...string) (string, error) {
	for _, p := range paths {
		if key := KeyString(Get(raw, p, nil)); key != "" {
			return key, nil
		}
	}
	return "", integration.ErrOrderKeyMissing
}
