package integration

import (
	"time"

	"github.com/google/uuid"
	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Order DTOs
// ---------------------------------------------------------------------------

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                   uuid.UUID                   `json:"id"`
	Marketplace          integration.MarketplaceCode `json:"marketplace"`
	MarketplaceKey       string                      `json:"marketplaceKey"`
	MarketplaceName      string                      `json:"marketplaceName"`
	MarketplaceCreatedAt *time.Time                  `json:"marketplaceCreatedAt,omitempty"`
	CustomerName         string                      `json:"customerName"`
	Status               string                      `json:"status"`
	ShipByDate           *time.Time                  `json:"shipByDate,omitempty"`
	Currency             string                      `json:"currency"`
	TotalPrice           decimal.Decimal             `json:"totalPrice"`
	ShippingAddress      integration.Address         `json:"shippingAddress"`
	Items                []OrderItemResponse         `json:"items"`
	Shipping             *OrderShippingResponse      `json:"shipping,omitempty"`
	CreatedAt            time.Time                   `json:"createdAt"`
	UpdatedAt            time.Time                   `json:"updatedAt"`
}

// OrderItemResponse represents one line of an order
type OrderItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	MarketplaceLineID string          `json:"marketplaceLineId,omitempty"`
	SKU               string          `json:"sku"`
	ProductName       string          `json:"productName"`
	Variant           *string         `json:"variant,omitempty"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	ImageURL          *string         `json:"imageUrl,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
}

// OrderShippingResponse represents the shipping record of an order
type OrderShippingResponse struct {
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	Street1   string    `json:"street1"`
	Street2   string    `json:"street2"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Country   string    `json:"country"`
	Phone     string    `json:"phone"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *integration.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ID:                it.ID,
			MarketplaceLineID: it.MarketplaceLineID,
			SKU:               it.SKU,
			ProductName:       it.ProductName,
			Variant:           it.Variant,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			TotalPrice:        it.TotalPrice,
			ImageURL:          it.ImageURL,
			Notes:             it.Notes,
		}
	}
	return OrderResponse{
		ID:                   o.ID,
		Marketplace:          o.Marketplace,
		MarketplaceKey:       o.MarketplaceKey,
		MarketplaceName:      o.MarketplaceName,
		MarketplaceCreatedAt: o.MarketplaceCreatedAt,
		CustomerName:         o.CustomerName,
		Status:               o.Status,
		ShipByDate:           o.ShipByDate,
		Currency:             o.Currency,
		TotalPrice:           o.TotalPrice,
		ShippingAddress:      o.ShippingAddress,
		Items:                items,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// ToOrderShippingResponse converts a domain shipping record
func ToOrderShippingResponse(s *integration.OrderShipping) *OrderShippingResponse {
	if s == nil {
		return nil
	}
	return &OrderShippingResponse{
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Company:   s.Company,
		Email:     s.Email,
		Street1:   s.Street1,
		Street2:   s.Street2,
		City:      s.City,
		State:     s.State,
		Zip:       s.Zip,
		Country:   s.Country,
		Phone:     s.Phone,
		UpdatedAt: s.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Query DTOs
// ---------------------------------------------------------------------------

// ListOrdersQuery is bound from the order list query string
type ListOrdersQuery struct {
	Marketplace string `form:"marketplace" binding:"omitempty,oneof=VEEQO TRENDYOL SHIPPO"`
	Status      string `form:"status" binding:"omitempty,max=64"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=200"`
	SortBy      string `form:"sort_by" binding:"omitempty,max=32"`
	SortDir     string `form:"sort_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// OrderListResponse is one page of orders
type OrderListResponse struct {
	Orders   []OrderResponse `json:"orders"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}
