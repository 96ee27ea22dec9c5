package integration

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrLabelEndpointNotConfigured = errors.New("integration: label endpoint not configured")
	ErrLabelRequestInvalid        = errors.New("integration: label request invalid")
	ErrLabelServiceFailed         = errors.New("integration: label service failed")
)

// LabelAddress is one party of a label request
type LabelAddress struct {
	Name    string `json:"name" validate:"required"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Street1 string `json:"street1" validate:"required"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country" validate:"required"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,numeric"`
}

// LabelItem is one customs line of a label request
type LabelItem struct {
	SKU         string          `json:"sku" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitValue   decimal.Decimal `json:"unitValue" validate:"gte=0"`
}

// LabelRequest is the document handed to the external label script.
type LabelRequest struct {
	OrderID           string          `json:"orderId" validate:"required,uuid"`
	OrderKey          string          `json:"orderKey" validate:"required"`
	Marketplace       MarketplaceCode `json:"marketplace" validate:"required"`
	ShipTo            LabelAddress    `json:"shipTo"`
	ShipFrom          LabelAddress    `json:"shipFrom"`
	Items             []LabelItem     `json:"items" validate:"required,min=1,dive"`
	Currency          string          `json:"currency" validate:"required,len=3,uppercase"`
	DutiesPaymentType string          `json:"dutiesPaymentType" validate:"required,oneof=DDU DDP"`
	DeclaredValue     decimal.Decimal `json:"declaredValue" validate:"gte=0"`
}

// LabelResult is what the label script returns
type LabelResult struct {
	LabelURL       string `json:"labelUrl"`
	TrackingNumber string `json:"trackingNumber"`
}
