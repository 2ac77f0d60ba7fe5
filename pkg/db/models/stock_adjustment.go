package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// StockAdjustment is the audit row written for every manual stock change.
type StockAdjustment struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index:idx_stock_adjustments_product_id"`
	ActorID     uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	Action      enums.StockAction `gorm:"column:action;type:text;not null"`
	Quantity    int               `gorm:"column:quantity;not null"`
	StockBefore int               `gorm:"column:stock_before;not null"`
	StockAfter  int               `gorm:"column:stock_after;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (a *StockAdjustment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
