package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds the orders repository to a GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order and its items in one statement batch.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row; items are immutable and loaded without a lock.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "orders"}}).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	var items []models.OrderItem
	if err := orderItems(r.db.WithContext(ctx)).
		Where("order_id = ?", id).
		Find(&items).Error; err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// UpdateStatus writes to only while the order is still in one of from. It reports whether a row changed.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) StoreOwner(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).
		Select("id", "owner_id").
		Where("id = ?", storeID).
		First(&store).Error; err != nil {
		return uuid.Nil, err
	}
	return store.OwnerID, nil
}

// List pages orders newest first. limit is the raw row count to fetch.
func (r *repository) List(ctx context.Context, scope ListScope, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if scope.CustomerID != nil {
		query = query.Where("customer_id = ?", *scope.CustomerID)
	}
	if scope.StoreOwnerID != nil {
		owned := r.db.Model(&models.Store{}).Select("id").Where("owner_id = ?", *scope.StoreOwnerID)
		query = query.Where("store_id IN (?)", owned)
	}
	if scope.StoreID != nil {
		query = query.Where("store_id = ?", *scope.StoreID)
	}
	if scope.Status != nil {
		query = query.Where("status = ?", *scope.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.
		Preload("Items", orderItems).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindPendingBefore returns the ids of PENDING orders created before cutoff, oldest first.
func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.created_at ASC").Order("order_items.id ASC")
}
