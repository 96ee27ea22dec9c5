package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/persistence/models"
)

// GormCredentialRepository reads marketplace credentials using GORM
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// ListByUser returns the user's enabled credential sets ordered by marketplace
func (r *GormCredentialRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]integration.Credentials, error) {
	var rows []models.MarketplaceCredentialModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND enabled = ?", userID, true).
		Order("marketplace ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	creds := make([]integration.Credentials, len(rows))
	for i := range rows {
		creds[i] = rows[i].ToDomain()
	}
	return creds, nil
}

// ListUserIDs returns every user with at least one enabled credential set
func (r *GormCredentialRepository) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.MarketplaceCredentialModel{}).
		Where("enabled = ?", true).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// GormShipperProfileRepository reads shipper profiles using GORM
type GormShipperProfileRepository struct {
	db *gorm.DB
}

// NewGormShipperProfileRepository creates a new GormShipperProfileRepository
func NewGormShipperProfileRepository(db *gorm.DB) *GormShipperProfileRepository {
	return &GormShipperProfileRepository{db: db}
}

// FindByUser returns the user's shipper profile
func (r *GormShipperProfileRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*integration.ShipperProfile, error) {
	var model models.ShipperProfileModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrShipperProfileNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var (
	_ integration.CredentialRepository     = (*GormCredentialRepository)(nil)
	_ integration.ShipperProfileRepository = (*GormShipperProfileRepository)(nil)
)
