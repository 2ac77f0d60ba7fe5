package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// OrderItemLine mirrors one immutable order item.
type OrderItemLine struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderCreatedEvent is emitted once per store order written by a checkout.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	StoreID     uuid.UUID       `json:"store_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItemLine `json:"items"`
}

// OrderStateChangedEvent reports a forward lifecycle transition.
type OrderStateChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	StoreID    uuid.UUID         `json:"store_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	Action     enums.OrderAction `json:"action"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
}

// RestoredStock records the units a cancellation returned to one product.
type RestoredStock struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// OrderCanceledEvent is emitted when an order is cancelled and its stock restored.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	StoreID    uuid.UUID         `json:"store_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	From       enums.OrderStatus `json:"from"`
	CanceledAt time.Time         `json:"canceled_at"`
	Reason     string            `json:"reason,omitempty"`
	Restored   []RestoredStock   `json:"restored"`
}

// ProductStockAdjustedEvent mirrors a stock_adjustments audit row.
type ProductStockAdjustedEvent struct {
	ProductID   uuid.UUID         `json:"product_id"`
	StoreID     uuid.UUID         `json:"store_id"`
	Action      enums.StockAction `json:"action"`
	Quantity    int               `json:"quantity"`
	StockBefore int               `json:"stock_before"`
	StockAfter  int               `json:"stock_after"`
}

// StoreDeactivatedEvent reports a store going inactive with its product cascade.
type StoreDeactivatedEvent struct {
	StoreID             uuid.UUID `json:"store_id"`
	OwnerID             uuid.UUID `json:"owner_id"`
	ProductsDeactivated int64     `json:"products_deactivated"`
}
