package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiphub/backend/internal/domain/integration"
)

// AddressModel is the embedded ship-to address of an order
type AddressModel struct {
	Name    string `gorm:"type:text;not null"`
	Company string `gorm:"type:text;not null"`
	Street1 string `gorm:"type:text;not null"`
	Street2 string `gorm:"type:text;not null"`
	City    string `gorm:"type:text;not null"`
	State   string `gorm:"type:text;not null"`
	Zip     string `gorm:"type:text;not null"`
	Country string `gorm:"type:text;not null"`
	Phone   string `gorm:"type:text;not null"`
}

// OrderModel is the persistence model for the Order aggregate.
// (user_id, marketplace, marketplace_key) is unique.
type OrderModel struct {
	BaseModel
	UserID               uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_orders_identity,priority:1"`
	Marketplace          integration.MarketplaceCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_orders_identity,priority:2"`
	MarketplaceKey       string                      `gorm:"type:text;not null;uniqueIndex:idx_orders_identity,priority:3"`
	MarketplaceName      string                      `gorm:"type:text;not null"`
	MarketplaceCreatedAt *time.Time
	CustomerName         string           `gorm:"type:text;not null"`
	Status               string           `gorm:"type:text;not null;index"`
	ShipByDate           *time.Time       `gorm:"index"`
	Currency             string           `gorm:"type:text;not null"`
	TotalPrice           decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	ShipTo               AddressModel     `gorm:"embedded;embeddedPrefix:ship_to_"`
	Items                []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// NewOrderModel builds a new row for a normalized order observed for userID
func NewOrderModel(userID uuid.UUID, o *integration.NormalizedOrder, now time.Time) *OrderModel {
	return &OrderModel{
		BaseModel:            NewBaseModel(now),
		UserID:               userID,
		Marketplace:          o.Marketplace,
		MarketplaceKey:       o.MarketplaceKey,
		MarketplaceName:      o.MarketplaceName,
		MarketplaceCreatedAt: o.MarketplaceCreatedAt,
		CustomerName:         o.CustomerName,
		Status:               o.Status,
		ShipByDate:           o.ShipByDate,
		Currency:             o.Currency,
		TotalPrice:           o.TotalPrice,
		ShipTo:               AddressModel(o.ShippingAddress),
	}
}

// ReplaceColumns lists every column a later observation overwrites.
// Identity columns and created_at are left untouched.
func (m *OrderModel) ReplaceColumns() map[string]any {
	return map[string]any{
		"marketplace_name":       m.MarketplaceName,
		"marketplace_created_at": m.MarketplaceCreatedAt,
		"customer_name":          m.CustomerName,
		"status":                 m.Status,
		"ship_by_date":           m.ShipByDate,
		"currency":               m.Currency,
		"total_price":            m.TotalPrice,
		"ship_to_name":           m.ShipTo.Name,
		"ship_to_company":        m.ShipTo.Company,
		"ship_to_street1":        m.ShipTo.Street1,
		"ship_to_street2":        m.ShipTo.Street2,
		"ship_to_city":           m.ShipTo.City,
		"ship_to_state":          m.ShipTo.State,
		"ship_to_zip":            m.ShipTo.Zip,
		"ship_to_country":        m.ShipTo.Country,
		"ship_to_phone":          m.ShipTo.Phone,
		"updated_at":             m.UpdatedAt,
	}
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *integration.Order {
	order := &integration.Order{
		ID:                   m.ID,
		UserID:               m.UserID,
		Marketplace:          m.Marketplace,
		MarketplaceKey:       m.MarketplaceKey,
		MarketplaceName:      m.MarketplaceName,
		MarketplaceCreatedAt: m.MarketplaceCreatedAt,
		CustomerName:         m.CustomerName,
		Status:               m.Status,
		ShipByDate:           m.ShipByDate,
		Currency:             m.Currency,
		TotalPrice:           m.TotalPrice,
		ShippingAddress:      integration.Address(m.ShipTo),
		Items:                make([]integration.OrderItem, len(m.Items)),
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	for i := range m.Items {
		order.Items[i] = m.Items[i].ToDomain()
	}
	return order
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position          int             `gorm:"not null"`
	MarketplaceLineID string          `gorm:"type:text;not null"`
	SKU               string          `gorm:"column:sku;type:text;not null"`
	ProductName       string          `gorm:"type:text;not null"`
	Variant           *string         `gorm:"type:text"`
	Quantity          int             `gorm:"not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ImageURL          *string         `gorm:"column:image_url;type:text"`
	Notes             *string         `gorm:"type:text"`
	CreatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// NewOrderItemModels builds the item rows of one order generation
func NewOrderItemModels(orderID uuid.UUID, items []integration.NormalizedItem, now time.Time) []OrderItemModel {
	rows := make([]OrderItemModel, len(items))
	for i, it := range items {
		rows[i] = OrderItemModel{
			ID:                uuid.New(),
			OrderID:           orderID,
			Position:          i,
			MarketplaceLineID: it.MarketplaceLineID,
			SKU:               it.SKU,
			ProductName:       it.ProductName,
			Variant:           it.Variant,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			TotalPrice:        it.TotalPrice,
			ImageURL:          it.ImageURL,
			Notes:             it.Notes,
			CreatedAt:         now,
		}
	}
	return rows
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *OrderItemModel) ToDomain() integration.OrderItem {
	return integration.OrderItem{
		ID:                m.ID,
		OrderID:           m.OrderID,
		MarketplaceLineID: m.MarketplaceLineID,
		SKU:               m.SKU,
		ProductName:       m.ProductName,
		Variant:           m.Variant,
		Quantity:          m.Quantity,
		UnitPrice:         m.UnitPrice,
		TotalPrice:        m.TotalPrice,
		ImageURL:          m.ImageURL,
		Notes:             m.Notes,
		CreatedAt:         m.CreatedAt,
	}
}

// OrderShippingModel is the persistence model for OrderShipping (order_id is unique)
type OrderShippingModel struct {
	BaseModel
	OrderID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	FirstName string    `gorm:"type:text;not null"`
	LastName  string    `gorm:"type:text;not null"`
	Company   string    `gorm:"type:text;not null"`
	Email     string    `gorm:"type:text;not null"`
	Street1   string    `gorm:"type:text;not null"`
	Street2   string    `gorm:"type:text;not null"`
	City      string    `gorm:"type:text;not null"`
	State     string    `gorm:"type:text;not null"`
	Zip       string    `gorm:"type:text;not null"`
	Country   string    `gorm:"type:text;not null"`
	Phone     string    `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (OrderShippingModel) TableName() string {
	return "order_shippings"
}

// OrderShippingModelFromDomain converts a domain OrderShipping to its model
func OrderShippingModelFromDomain(s *integration.OrderShipping) *OrderShippingModel {
	return &OrderShippingModel{
		BaseModel: BaseModel{ID: s.ID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt},
		OrderID:   s.OrderID,
		UserID:    s.UserID,
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
	}
}

// ToDomain converts the persistence model to a domain OrderShipping
func (m *OrderShippingModel) ToDomain() *integration.OrderShipping {
	return &integration.OrderShipping{
		ID:        m.ID,
		OrderID:   m.OrderID,
		UserID:    m.UserID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Company:   m.Company,
		Email:     m.Email,
		Street1:   m.Street1,
		Street2:   m.Street2,
		City:      m.City,
		State:     m.State,
		Zip:       m.Zip,
		Country:   m.Country,
		Phone:     m.Phone,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
