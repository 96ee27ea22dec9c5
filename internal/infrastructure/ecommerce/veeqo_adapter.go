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

// VeeqoAdapter fetches and normalizes Veeqo orders
type VeeqoAdapter struct {
	config *VeeqoConfig
	client *apiClient
}

// NewVeeqoAdapter creates a new Veeqo adapter with the given configuration
func NewVeeqoAdapter(config *VeeqoConfig, logger *zap.Logger) (*VeeqoAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &VeeqoAdapter{
		config: config,
		client: newAPIClient(integration.MarketplaceVeeqo, config.TimeoutSeconds, config.RequestsPerSecond, logger),
	}, nil
}

// Code returns the marketplace this adapter handles
func (a *VeeqoAdapter) Code() integration.MarketplaceCode {
	return integration.MarketplaceVeeqo
}

// FetchOrders lists the orders awaiting fulfillment.
// GET /orders?page&per_page&sort_direction&status with header x-api-key.
func (a *VeeqoAdapter) FetchOrders(ctx context.Context, creds integration.Credentials) ([]integration.RawOrder, error) {
	if !creds.HasAPIKey() {
		return nil, fmt.Errorf("%w: veeqo api key is required", integration.ErrMissingCredentials)
	}

	params := url.Values{}
	params.Set("page", "1")
	params.Set("per_page", strconv.Itoa(a.config.PageSize))
	params.Set("sort_direction", "desc")
	params.Set("status", a.config.Status)

	header := http.Header{}
	header.Set("x-api-key", strings.TrimSpace(creds.APIKey))

	var orders []any
	endpoint := strings.TrimRight(a.config.APIBaseURL, "/") + "/orders?" + params.Encode()
	if err := a.client.getJSON(ctx, endpoint, header, &orders); err != nil {
		return nil, err
	}
	return toRawOrders(orders), nil
}

// Normalize maps one Veeqo order into the canonical shape
func (a *VeeqoAdapter) Normalize(raw integration.RawOrder) (*integration.NormalizedOrder, error) {
	key, err := orderKey(raw, "id", "number")
	if err != nil {
		return nil, err
	}

	marketplaceName := capitalize(GetString(raw, "channel.name", ""))
	if marketplaceName == "" {
		marketplaceName = integration.MarketplaceVeeqo.DisplayName()
	}

	deliverFirst := GetString(raw, "deliver_to.first_name", "")
	deliverLast := GetString(raw, "deliver_to.last_name", "")
	customerName := integration.JoinNonEmpty(" ", deliverFirst, deliverLast)
	if customerName == "" {
		customerName = nameOrUnknown(
			GetString(raw, "customer.first_name", ""),
			GetString(raw, "customer.last_name", ""),
		)
	}

	status := FirstString(raw, "status.name", "status")

	orderNotes := FirstString(raw, "customer_note.text", "notes")
	lines := GetSlice(raw, "line_items")
	items := make([]integration.NormalizedItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, a.normalizeLine(line, orderNotes))
	}

	return &integration.NormalizedOrder{
		Marketplace:          integration.MarketplaceVeeqo,
		MarketplaceKey:       key,
		MarketplaceName:      marketplaceName,
		MarketplaceCreatedAt: GetTime(raw, "created_at"),
		CustomerName:         customerName,
		Status:               normalizeStatus(status),
		ShipByDate:           FirstTime(raw, "ship_by_date", "estimated_ship_by", "required_by_date"),
		Currency:             GetString(raw, "currency_code", "USD"),
		TotalPrice:           GetDecimal(raw, "total_price", decimal.Zero),
		ShippingAddress: integration.Address{
			Name:    nameOrUnknown(deliverFirst, deliverLast),
			Company: GetString(raw, "deliver_to.company", ""),
			Street1: GetString(raw, "deliver_to.address1", ""),
			Street2: GetString(raw, "deliver_to.address2", ""),
			City:    GetString(raw, "deliver_to.city", ""),
			State:   GetString(raw, "deliver_to.state", ""),
			Zip:     GetString(raw, "deliver_to.zip_code", ""),
			Country: GetString(raw, "deliver_to.country", ""),
			Phone:   GetString(raw, "deliver_to.phone", ""),
		},
		Items: items,
	}, nil
}

func (a *VeeqoAdapter) normalizeLine(line any, orderNotes string) integration.NormalizedItem {
	image := FirstString(line, "image_url", "sellable.image_url")
	if image == "" {
		image = firstImage(line, "sellable.images")
	}

	return newItem(
		KeyString(Get(line, "id", nil)),
		FirstString(line, "sku", "sellable.sku_code"),
		FirstString(line, "title", "sellable.title", "sellable.product_title"),
		optionalString(GetString(line, "sellable.sellable_title", "")),
		GetInt(line, "quantity", 0),
		FirstDecimal(line, decimal.Zero, "price_before_discount_including_tax", "price_per_unit"),
		optionalString(image),
		joinNotes(GetString(line, "additional_options", ""), orderNotes),
	)
}

// ExtractShipping reads the deliver_to contact of a Veeqo order
func (a *VeeqoAdapter) ExtractShipping(raw integration.RawOrder) (*integration.ShippingContact, error) {
	key, err := orderKey(raw, "id", "number")
	if err != nil {
		return nil, err
	}

	return &integration.ShippingContact{
		MarketplaceKey: key,
		FirstName:      GetString(raw, "deliver_to.first_name", ""),
		LastName:       GetString(raw, "deliver_to.last_name", ""),
		Company:        GetString(raw, "deliver_to.company", ""),
		Email:          FirstString(raw, "deliver_to.email", "customer.email"),
		Street1:        GetString(raw, "deliver_to.address1", ""),
		Street2:        GetString(raw, "deliver_to.address2", ""),
		City:           GetString(raw, "deliver_to.city", ""),
		State:          GetString(raw, "deliver_to.state", ""),
		Zip:            GetString(raw, "deliver_to.zip_code", ""),
		Country:        GetString(raw, "deliver_to.country", ""),
		Phone:          FirstString(raw, "deliver_to.phone", "customer.phone"),
	}, nil
}

var _ integration.Marketplace = (*VeeqoAdapter)(nil)
