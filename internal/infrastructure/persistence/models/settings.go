package models

import (
	"github.com/google/uuid"

	"github.com/shiphub/backend/internal/domain/integration"
)

// MarketplaceCredentialModel stores one user's API keys for one marketplace
type MarketplaceCredentialModel struct {
	BaseModel
	UserID      uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_credentials_user_marketplace,priority:1"`
	Marketplace integration.MarketplaceCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_credentials_user_marketplace,priority:2"`
	APIKey      string                      `gorm:"column:api_key;type:text;not null"`
	APISecret   string                      `gorm:"column:api_secret;type:text;not null"`
	AccountID   string                      `gorm:"type:varchar(100);not null"`
	Enabled     bool                        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MarketplaceCredentialModel) TableName() string {
	return "marketplace_credentials"
}

// ToDomain converts the persistence model to domain Credentials
func (m *MarketplaceCredentialModel) ToDomain() integration.Credentials {
	return integration.Credentials{
		UserID:      m.UserID,
		Marketplace: m.Marketplace,
		APIKey:      m.APIKey,
		APISecret:   m.APISecret,
		AccountID:   m.AccountID,
	}
}

// ShipperProfileModel stores a user's default sender identity
type ShipperProfileModel struct {
	BaseModel
	UserID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Name              string    `gorm:"type:varchar(200);not null"`
	Company           string    `gorm:"type:varchar(200);not null"`
	Email             string    `gorm:"type:varchar(255);not null"`
	Street1           string    `gorm:"type:varchar(255);not null"`
	Street2           string    `gorm:"type:varchar(255);not null"`
	City              string    `gorm:"type:varchar(100);not null"`
	State             string    `gorm:"type:varchar(100);not null"`
	Zip               string    `gorm:"type:varchar(30);not null"`
	Country           string    `gorm:"type:varchar(60);not null"`
	Phone             string    `gorm:"type:varchar(50);not null"`
	DefaultCurrency   string    `gorm:"type:varchar(10);not null"`
	DutiesPaymentType string    `gorm:"type:varchar(10);not null"`
}

// TableName returns the table name for GORM
func (ShipperProfileModel) TableName() string {
	return "shipper_profiles"
}

// ToDomain converts the persistence model to a domain ShipperProfile
func (m *ShipperProfileModel) ToDomain() *integration.ShipperProfile {
	return &integration.ShipperProfile{
		UserID:            m.UserID,
		Name:              m.Name,
		Company:           m.Company,
		Email:             m.Email,
		Street1:           m.Street1,
		Street2:           m.Street2,
		City:              m.City,
		State:             m.State,
		Zip:               m.Zip,
		Country:           m.Country,
		Phone:             m.Phone,
		DefaultCurrency:   m.DefaultCurrency,
		DutiesPaymentType: m.DutiesPaymentType,
	}
}
