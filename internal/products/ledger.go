package products

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// Ledger applies relative stock mutations inside a caller-owned transaction. Every write is
// conditional so stock never drops below zero even when callers skip the row lock.
type Ledger struct {
	now func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: func() time.Time { return time.Now().UTC() }}
}

// Decrement removes qty units. Zero affected rows means the product is gone or short on stock.
func (l *Ledger) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": l.now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"product_id": productID, "requested": qty})
	}
	return nil
}

// Restore returns qty units to a product, e.g. when an order is cancelled.
func (l *Ledger) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": l.now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil
}

// DeactivateByStore soft-deactivates every active product of a store and reports how many changed.
func (l *Ledger) DeactivateByStore(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) (int64, error) {
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": l.now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
