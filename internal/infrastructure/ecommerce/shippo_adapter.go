package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shiphub/backend/internal/domain/integration"
)

// ShippoAdapter fetches and normalizes Shippo orders
type ShippoAdapter struct {
	config *ShippoConfig
	client *apiClient
}

// NewShippoAdapter creates a new Shippo adapter with the given configuration
func NewShippoAdapter(config *ShippoConfig, logger *zap.Logger) (*ShippoAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShippoAdapter{
		config: config,
		client: newAPIClient(integration.MarketplaceShippo, config.TimeoutSeconds, config.RequestsPerSecond, logger),
	}, nil
}

// Code returns the marketplace this adapter handles
func (a *ShippoAdapter) Code() integration.MarketplaceCode {
	return integration.MarketplaceShippo
}

// FetchOrders issues GET /v1/orders/?limit with header
// Authorization: ShippoToken {token}. The envelope is {results: [...]}.
func (a *ShippoAdapter) FetchOrders(ctx context.Context, creds integration.Credentials) ([]integration.RawOrder, error) {
	if !creds.HasAPIKey() {
		return nil, fmt.Errorf("%w: shippo api token is required", integration.ErrMissingCredentials)
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(a.config.PageSize))

	header := http.Header{}
	header.Set("Authorization", "ShippoToken "+strings.TrimSpace(creds.APIKey))

	var envelope struct {
		Results []any `json:"results"`
	}
	endpoint := strings.TrimRight(a.config.APIBaseURL, "/") + "/v1/orders/?" + params.Encode()
	if err := a.client.getJSON(ctx, endpoint, header, &envelope); err != nil {
		return nil, err
	}
	return toRawOrders(envelope.Results), nil
}

// Normalize maps one Shippo order into the canonical shape
func (a *ShippoAdapter) Normalize(raw integration.RawOrder) (*integration.NormalizedOrder, error) {
	key, err := orderKey(raw, "object_id", "order_number")
	if err != nil {
		return nil, err
	}

	marketplaceName := capitalize(GetString(raw, "shop_app", ""))
	if marketplaceName == "" {
		marketplaceName = integration.MarketplaceShippo.DisplayName()
	}

	toName := GetString(raw, "to_address.name", "")
	orderNotes := GetString(raw, "notes", "")

	lines := GetSlice(raw, "line_items")
	items := make([]integration.NormalizedItem, 0, len(lines))
	for _, line := range lines {
		quantity := GetInt(line, "quantity", 0)
		unitPrice := GetDecimal(line, "price", decimal.Zero)
		if lineTotal, ok := asDecimal(Get(line, "total_price", nil)); ok && quantity > 0 {
			unitPrice = lineTotal.Div(decimal.NewFromInt(int64(quantity))).Round(priceScale)
		}
		items = append(items, newItem(
			KeyString(Get(line, "object_id", nil)),
			FirstString(line, "sku"),
			FirstString(line, "title"),
			optionalString(GetString(line, "variant_title", "")),
			quantity,
			unitPrice,
			optionalString(FirstString(line, "image_url")),
			joinNotes(orderNotes),
		))
	}

	return &integration.NormalizedOrder{
		Marketplace:          integration.MarketplaceShippo,
		MarketplaceKey:       key,
		MarketplaceName:      marketplaceName,
		MarketplaceCreatedAt: GetTime(raw, "placed_at"),
		CustomerName:         nameOrUnknown(toName),
		Status:               normalizeStatus(GetString(raw, "order_status", "")),
		ShipByDate:           FirstTime(raw, "ship_by_date", "shipment_date"),
		Currency:             GetString(raw, "currency", "USD"),
		TotalPrice:           GetDecimal(raw, "total_price", decimal.Zero),
		ShippingAddress: integration.Address{
			Name:    nameOrUnknown(toName),
			Company: GetString(raw, "to_address.company", ""),
			Street1: GetString(raw, "to_address.street1", ""),
			Street2: GetString(raw, "to_address.street2", ""),
			City:    GetString(raw, "to_address.city", ""),
			State:   GetString(raw, "to_address.state", ""),
			Zip:     GetString(raw, "to_address.zip", ""),
			Country: GetString(raw, "to_address.country", ""),
			Phone:   GetString(raw, "to_address.phone", ""),
		},
		Items: items,
	}, nil
}

// ExtractShipping reads the to_address contact of a Shippo order
func (a *ShippoAdapter) ExtractShipping(raw integration.RawOrder) (*integration.ShippingContact, error) {
	key, err := orderKey(raw, "object_id", "order_number")
	if err != nil {
		return nil, err
	}

	return &integration.ShippingContact{
		MarketplaceKey: key,
		FullName:       GetString(raw, "to_address.name", ""),
		Company:        GetString(raw, "to_address.company", ""),
		Email:          GetString(raw, "to_address.email", ""),
		Street1:        GetString(raw, "to_address.street1", ""),
		Street2:        GetString(raw, "to_address.street2", ""),
		City:           GetString(raw, "to_address.city", ""),
		State:          GetString(raw, "to_address.state", ""),
		Zip:            GetString(raw, "to_address.zip", ""),
		Country:        GetString(raw, "to_address.country", ""),
		Phone:          GetString(raw, "to_address.phone", ""),
	}, nil
}

var _ integration.Marketplace = (*ShippoAdapter)(nil)
