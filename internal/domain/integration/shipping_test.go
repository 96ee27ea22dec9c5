package integration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{"", "", ""},
		{"   ", "", ""},
		{"Cher", "Cher", ""},
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"  Ada   King  Lovelace ", "Ada", "King Lovelace"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			first, last := SplitName(tt.in)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "905551234567", DigitsOnly("+90 (555) 123-45 67"))
	assert.Equal(t, "", DigitsOnly("n/a"))
	assert.Equal(t, "", DigitsOnly(""))
}

func TestJoinNonEmpty(t *testing.T) {
	assert.Equal(t, "a | b", JoinNonEmpty(" | ", " a ", "", "b"))
	assert.Equal(t, "", JoinNonEmpty(" ", "", "  "))
}

func TestNewOrderShipping(t *testing.T) {
	orderID, userID := uuid.New(), uuid.New()
	profile := &ShipperProfile{UserID: userID, Phone: "+1 (800) 555-0100"}

	t.Run("splits full name and cleans phone", func(t *testing.T) {
		s := NewOrderShipping(orderID, userID, &ShippingContact{
			FullName: "Grace Brewster Hopper",
			Street1:  " 1 Navy Way ",
			Phone:    "+1-202-555-0199",
		}, profile)

		assert.Equal(t, orderID, s.OrderID)
		assert.Equal(t, userID, s.UserID)
		assert.Equal(t, "Grace", s.FirstName)
		assert.Equal(t, "Brewster Hopper", s.LastName)
		assert.Equal(t, "1 Navy Way", s.Street1)
		assert.Equal(t, "12025550199", s.Phone)
		assert.Equal(t, "", s.City)
	})

	t.Run("explicit parts win over full name", func(t *testing.T) {
		s := NewOrderShipping(orderID, userID, &ShippingContact{
			FirstName: "Ada", LastName: "Lovelace", FullName: "ignored name",
		}, profile)
		assert.Equal(t, "Ada", s.FirstName)
		assert.Equal(t, "Lovelace", s.LastName)
		assert.Equal(t, "Ada Lovelace", s.FullName())
	})

	t.Run("falls back to shipper phone", func(t *testing.T) {
		s := NewOrderShipping(orderID, userID, &ShippingContact{Phone: "none"}, profile)
		assert.Equal(t, "18005550100", s.Phone)
	})

	t.Run("nil profile leaves phone empty", func(t *testing.T) {
		s := NewOrderShipping(orderID, userID, &ShippingContact{}, nil)
		assert.Equal(t, "", s.Phone)
	})
}

func TestSyncResult(t *testing.T) {
	r := NewSyncResult(uuid.New())
	assert.False(t, r.HasErrors())
	r.RecordError(MarketplaceTrendyol, ErrMissingCredentials)
	assert.True(t, r.HasErrors())
	assert.Equal(t, ErrMissingCredentials.Error(), r.Errors[MarketplaceTrendyol])
}
