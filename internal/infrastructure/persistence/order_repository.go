package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/persistence/models"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 200
)

var orderIdentityColumns = []clause.Column{{Name: "user_id"}, {Name: "marketplace"}, {Name: "marketplace_key"}}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db, now: time.Now}
}

// Reconcile creates the order or overwrites the existing one with the same
// (user, marketplace, key), then replaces its items with the new list.
//
// The insert uses ON CONFLICT DO NOTHING on the identity index, so two
// concurrent first observations cannot both insert. When the row already
// exists it is locked FOR UPDATE before the overwrite, so item delete and
// insert of one generation never interleave with another's.
func (r *GormOrderRepository) Reconcile(ctx context.Context, userID uuid.UUID, order *integration.NormalizedOrder) (*integration.ReconcileResult, error) {
	if userID == uuid.Nil {
		return nil, integration.ErrInvalidUserID
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	row := models.NewOrderModel(userID, order, now)
	result := &integration.ReconcileResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: orderIdentityColumns, DoNothing: true}).
			Create(row)
		if insert.Error != nil {
			return fmt.Errorf("insert order: %w", insert.Error)
		}
		result.Created = insert.RowsAffected == 1

		if !result.Created {
			var existing models.OrderModel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("user_id = ? AND marketplace = ? AND marketplace_key = ?", userID, order.Marketplace, order.MarketplaceKey).
				Take(&existing).Error; err != nil {
				return fmt.Errorf("lock order: %w", err)
			}
			row.ID = existing.ID

			if err := tx.Model(&models.OrderModel{}).
				Where("id = ?", existing.ID).
				Updates(row.ReplaceColumns()).Error; err != nil {
				return fmt.Errorf("update order: %w", err)
			}
			if err := tx.Where("order_id = ?", existing.ID).Delete(&models.OrderItemModel{}).Error; err != nil {
				return fmt.Errorf("delete order items: %w", err)
			}
		}

		items := models.NewOrderItemModels(row.ID, order.Items, now)
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}
		}

		result.OrderID = row.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FindByKey finds an order by its identity triple
func (r *GormOrderRepository) FindByKey(ctx context.Context, userID uuid.UUID, marketplace integration.MarketplaceCode, marketplaceKey string) (*integration.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderItemsByPosition).
		Where("user_id = ? AND marketplace = ? AND marketplace_key = ?", userID, marketplace, marketplaceKey).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds one of the user's orders by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, userID, orderID uuid.UUID) (*integration.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderItemsByPosition).
		Where("id = ? AND user_id = ?", orderID, userID).
		Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of the user's orders, newest first unless the filter
// names a whitelisted sort column
func (r *GormOrderRepository) List(ctx context.Context, filter integration.OrderFilter) ([]integration.Order, int64, error) {
	if filter.UserID == uuid.Nil {
		return nil, 0, integration.ErrInvalidUserID
	}

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", filter.UserID)
		if filter.Marketplace != "" {
			db = db.Where("marketplace = ?", filter.Marketplace)
		}
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	sortField := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Items", orderItemsByPosition).
		Order(sortField + " " + sortOrder).
		Order("id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]integration.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

func orderItemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultOrderPageSize
	}
	if pageSize > maxOrderPageSize {
		pageSize = maxOrderPageSize
	}
	return page, pageSize
}

var _ integration.OrderRepository = (*GormOrderRepository)(nil)
