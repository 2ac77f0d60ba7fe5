package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// OrderItemDTO is one immutable order line.
type OrderItemDTO struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderDTO is the API representation of a store order with its items.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	StoreID     uuid.UUID         `json:"store_id"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Status      enums.OrderStatus `json:"status"`
	CanceledAt  *time.Time        `json:"canceled_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Items       []OrderItemDTO    `json:"items"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ListFilter holds the caller supplied filters of GET /orders.
type ListFilter struct {
	Status  *enums.OrderStatus
	StoreID *uuid.UUID
}

// TransitionInput is one lifecycle command. RequireStatus, when set, narrows the accepted source
// status further than the action itself does.
type TransitionInput struct {
	OrderID       uuid.UUID
	Action        enums.OrderAction
	Reason        string
	RequireStatus enums.OrderStatus
}

func FromModel(m *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, OrderItemDTO{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return OrderDTO{
		ID:          m.ID,
		OrderNumber: m.OrderNumber,
		CustomerID:  m.CustomerID,
		StoreID:     m.StoreID,
		TotalAmount: m.TotalAmount,
		Status:      m.Status,
		CanceledAt:  m.CanceledAt,
		CompletedAt: m.CompletedAt,
		Items:       items,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
