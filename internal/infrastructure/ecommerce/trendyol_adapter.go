package ecommerce

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shiphub/backend/internal/domain/integration"
)

// TrendyolAdapter fetches and normalizes Trendyol orders
type TrendyolAdapter struct {
	config *TrendyolConfig
	client *apiClient
	now    func() time.Time
}

// NewTrendyolAdapter creates a new Trendyol adapter with the given configuration
func NewTrendyolAdapter(config *TrendyolConfig, logger *zap.Logger) (*TrendyolAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TrendyolAdapter{
		config: config,
		client: newAPIClient(integration.MarketplaceTrendyol, config.TimeoutSeconds, config.RequestsPerSecond, logger),
		now:    time.Now,
	}, nil
}

// Code returns the marketplace this adapter handles
func (a *TrendyolAdapter) Code() integration.MarketplaceCode {
	return integration.MarketplaceTrendyol
}

// FetchOrders lists newly created orders, newest first
func (a *TrendyolAdapter) FetchOrders(ctx context.Context, creds integration.Credentials) ([]integration.RawOrder, error) {
	return a.ListOrders(ctx, creds, TrendyolModeCreated)
}

// FetchShipmentUpdates lists orders of any status by last modification, newest first
func (a *TrendyolAdapter) FetchShipmentUpdates(ctx context.Context, creds integration.Credentials) ([]integration.RawOrder, error) {
	return a.ListOrders(ctx, creds, TrendyolModeShipmentUpdate)
}

// ListOrders issues
// GET /integration/order/sellers/{supplierId}/orders?status&startDate&endDate&orderByField&orderByDirection&size
// with basic auth of key:secret. The response envelope is {content: [...]}.
func (a *TrendyolAdapter) ListOrders(ctx context.Context, creds integration.Credentials, mode TrendyolListMode) ([]integration.RawOrder, error) {
	if err := validateTrendyolCredentials(creds); err != nil {
		return nil, err
	}

	start, end := a.config.Window(a.now())
	params := url.Values{}
	switch mode {
	case TrendyolModeShipmentUpdate:
		params.Set("orderByField", "LastModifiedDate")
	default:
		params.Set("status", "Created")
		params.Set("orderByField", "CreatedDate")
	}
	params.Set("orderByDirection", "DESC")
	params.Set("startDate", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endDate", strconv.FormatInt(end.UnixMilli(), 10))
	params.Set("size", strconv.Itoa(a.config.PageSize))

	supplierID := strings.TrimSpace(creds.AccountID)
	token := strings.TrimSpace(creds.APIKey) + ":" + strings.TrimSpace(creds.APISecret)
	header := http.Header{}
	header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(token)))
	header.Set("User-Agent", supplierID+" - SelfIntegration")

	var envelope struct {
		Content []any `json:"content"`
	}
	endpoint := fmt.Sprintf("%s/integration/order/sellers/%s/orders?%s",
		strings.TrimRight(a.config.APIBaseURL, "/"), url.PathEscape(supplierID), params.Encode())
	if err := a.client.getJSON(ctx, endpoint, header, &envelope); err != nil {
		return nil, err
	}
	return toRawOrders(envelope.Content), nil
}

func validateTrendyolCredentials(creds integration.Credentials) error {
	var missing []string
	if !creds.HasAPIKey() {
		missing = append(missing, "api key")
	}
	if !creds.HasAPISecret() {
		missing = append(missing, "api secret")
	}
	if !creds.HasAccountID() {
		missing = append(missing, "supplier id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: trendyol %s required", integration.ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Normalize maps one Trendyol order into the canonical shape
func (a *TrendyolAdapter) Normalize(raw integration.RawOrder) (*integration.NormalizedOrder, error) {
	key, err := orderKey(raw, "orderNumber", "id")
	if err != nil {
		return nil, err
	}

	first := GetString(raw, "shipmentAddress.firstName", "")
	last := GetString(raw, "shipmentAddress.lastName", "")
	customerName := integration.JoinNonEmpty(" ", first, last)
	if customerName == "" {
		customerName = nameOrUnknown(
			GetString(raw, "customerFirstName", ""),
			GetString(raw, "customerLastName", ""),
		)
	}

	addressName := integration.JoinNonEmpty(" ", first, last)
	if addressName == "" {
		addressName = FirstString(raw, "shipmentAddress.fullName")
	}
	if addressName == "" {
		addressName = integration.UnknownCustomer
	}

	lines := GetSlice(raw, "lines")
	items := make([]integration.NormalizedItem, 0, len(lines))
	for _, line := range lines {
		variant := integration.JoinNonEmpty(" / ",
			GetString(line, "productColor", ""),
			GetString(line, "productSize", ""),
		)
		items = append(items, newItem(
			KeyString(Get(line, "id", nil)),
			FirstString(line, "merchantSku", "sku", "barcode"),
			FirstString(line, "productName"),
			optionalString(variant),
			GetInt(line, "quantity", 0),
			FirstDecimal(line, decimal.Zero, "price", "amount"),
			nil,
			nil,
		))
	}

	return &integration.NormalizedOrder{
		Marketplace:          integration.MarketplaceTrendyol,
		MarketplaceKey:       key,
		MarketplaceName:      integration.MarketplaceTrendyol.DisplayName(),
		MarketplaceCreatedAt: GetTime(raw, "orderDate"),
		CustomerName:         customerName,
		Status:               normalizeStatus(GetString(raw, "status", "")),
		ShipByDate:           FirstTime(raw, "agreedDeliveryDate", "estimatedDeliveryEndDate"),
		Currency:             GetString(raw, "currencyCode", "TRY"),
		TotalPrice:           FirstDecimal(raw, decimal.Zero, "totalPrice", "grossAmount"),
		ShippingAddress: integration.Address{
			Name:    addressName,
			Company: GetString(raw, "shipmentAddress.company", ""),
			Street1: GetString(raw, "shipmentAddress.address1", ""),
			Street2: GetString(raw, "shipmentAddress.address2", ""),
			City:    GetString(raw, "shipmentAddress.city", ""),
			State:   GetString(raw, "shipmentAddress.district", ""),
			Zip:     GetString(raw, "shipmentAddress.postalCode", ""),
			Country: GetString(raw, "shipmentAddress.countryCode", ""),
			Phone:   GetString(raw, "shipmentAddress.phone", ""),
		},
		Items: items,
	}, nil
}

// ExtractShipping reads the shipmentAddress contact of a Trendyol order
func (a *TrendyolAdapter) ExtractShipping(raw integration.RawOrder) (*integration.ShippingContact, error) {
	key, err := orderKey(raw, "orderNumber", "id")
	if err != nil {
		return nil, err
	}

	return &integration.ShippingContact{
		MarketplaceKey: key,
		FirstName:      GetString(raw, "shipmentAddress.firstName", ""),
		LastName:       GetString(raw, "shipmentAddress.lastName", ""),
		FullName:       GetString(raw, "shipmentAddress.fullName", ""),
		Company:        GetString(raw, "shipmentAddress.company", ""),
		Email:          GetString(raw, "customerEmail", ""),
		Street1:        GetString(raw, "shipmentAddress.address1", ""),
		Street2:        GetString(raw, "shipmentAddress.address2", ""),
		City:           GetString(raw, "shipmentAddress.city", ""),
		State:          GetString(raw, "shipmentAddress.district", ""),
		Zip:            GetString(raw, "shipmentAddress.postalCode", ""),
		Country:        GetString(raw, "shipmentAddress.countryCode", ""),
		Phone:          GetString(raw, "shipmentAddress.phone", ""),
	}, nil
}

var (
	_ integration.Marketplace     = (*TrendyolAdapter)(nil)
	_ integration.ShipmentFetcher = (*TrendyolAdapter)(nil)
)
