package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/persistence/models"
)

var shippingReplaceColumns = []string{
	"user_id", "first_name", "last_name", "company", "email",
	"street1", "street2", "city", "state", "zip", "country", "phone", "updated_at",
}

// GormOrderShippingRepository implements OrderShippingRepository using GORM
type GormOrderShippingRepository struct {
	db *gorm.DB
}

// NewGormOrderShippingRepository creates a new GormOrderShippingRepository
func NewGormOrderShippingRepository(db *gorm.DB) *GormOrderShippingRepository {
	return &GormOrderShippingRepository{db: db}
}

// Upsert inserts the record or replaces the one with the same order_id
func (r *GormOrderShippingRepository) Upsert(ctx context.Context, shipping *integration.OrderShipping) error {
	if shipping.OrderID == uuid.Nil {
		return integration.ErrOrderNotFound
	}
	now := time.Now().UTC()
	if shipping.ID == uuid.Nil {
		shipping.ID = uuid.New()
	}
	if shipping.CreatedAt.IsZero() {
		shipping.CreatedAt = now
	}
	shipping.UpdatedAt = now

	model := models.OrderShippingModelFromDomain(shipping)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns(shippingReplaceColumns),
		}).
		Create(model).Error
}

// FindByOrderID finds the shipping record of an order
func (r *GormOrderShippingRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*integration.OrderShipping, error) {
	var model models.OrderShippingModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrShippingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ integration.OrderShippingRepository = (*GormOrderShippingRepository)(nil)
