package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, extra map[string]any) (bool, error)
	StoreOwner(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error)
	List(ctx context.Context, scope ListScope, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// StockRestorer returns cancelled units to the product ledger inside the caller's transaction.
type StockRestorer interface {
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// ListScope narrows an order listing. CustomerID and StoreOwnerID are mutually exclusive role scopes.
type ListScope struct {
	CustomerID   *uuid.UUID
	StoreOwnerID *uuid.UUID
	StoreID      *uuid.UUID
	Status       *enums.OrderStatus
}
