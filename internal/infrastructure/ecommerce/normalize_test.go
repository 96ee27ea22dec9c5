package ecommerce

import (
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Amazon", capitalize("AMAZON"))
	assert.Equal(t, "Ebay", capitalize("eBay"))
	assert.Equal(t, "Étsy", capitalize("étsy"))
	assert.Equal(t, "", capitalize("   "))
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, "AWAITING_FULFILLMENT", normalizeStatus("Awaiting Fulfillment"))
	assert.Equal(t, "AWAITING_FULFILLMENT", normalizeStatus("awaiting_fulfillment"))
	assert.Equal(t, "UNKNOWN", normalizeStatus(""))
	assert.Equal(t, "PARTLY_SHIPPED", normalizeStatus("  partly   shipped "))
}

func TestJoinNotes(t *testing.T) {
	notes := joinNotes(" gift wrap ", "leave at door")
	require.NotNil(t, notes)
	assert.Equal(t, "gift wrap | leave at door", *notes)

	assert.Nil(t, joinNotes("", "  "))
}

func TestNewItem_Defaults(t *testing.T) {
	item := newItem("", "", "", nil, 3, decimal.RequireFromString("2.50"), nil, nil)
	assert.Equal(t, "UNKNOWN", item.SKU)
	assert.Equal(t, "Unknown Product", item.ProductName)
	assert.True(t, decimal.RequireFromString("7.5").Equal(item.TotalPrice))
}

func TestFirstImage(t *testing.T) {
	assert.Equal(t, "a.png", firstImage(map[string]any{"imgs": []any{"a.png"}}, "imgs"))
	assert.Equal(t, "b.png", firstImage(map[string]any{"imgs": []any{map[string]any{"url": "b.png"}}}, "imgs"))
	assert.Equal(t, "", firstImage(map[string]any{"imgs": []any{}}, "imgs"))
}
