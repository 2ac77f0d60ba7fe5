package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Order is the per-store order produced by a checkout. Items and totals are immutable once written.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string            `gorm:"column:order_number;type:text;not null;uniqueIndex:ux_orders_order_number"`
	CustomerID  uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index:idx_orders_customer_id"`
	StoreID     uuid.UUID         `gorm:"column:store_id;type:uuid;not null;index:idx_orders_store_id"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;index:idx_orders_status_created_at,priority:1"`
	CanceledAt  *time.Time        `gorm:"column:canceled_at"`
	CompletedAt *time.Time        `gorm:"column:completed_at"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime;index:idx_orders_status_created_at,priority:2"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
