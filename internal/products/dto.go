package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/internal/stores"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// ProductDTO is the API representation of a product.
type ProductDTO struct {
	ID        uuid.UUID       `json:"id"`
	StoreID   uuid.UUID       `json:"store_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateProductInput carries the fields a store owner supplies for a new listing.
type CreateProductInput struct {
	StoreID  uuid.UUID
	Name     string
	Price    decimal.Decimal
	Stock    int
	IsActive *bool
}

// AdjustStockInput is a manual stock change.
type AdjustStockInput struct {
	Action   enums.StockAction
	Quantity int
}

// StockAdjustmentDTO echoes the audit row written for an adjustment.
type StockAdjustmentDTO struct {
	Action      enums.StockAction `json:"action"`
	Quantity    int               `json:"quantity"`
	StockBefore int               `json:"stock_before"`
	StockAfter  int               `json:"stock_after"`
}

// AdjustStockResult is returned by AdjustStock.
type AdjustStockResult struct {
	Product    ProductDTO         `json:"product"`
	Adjustment StockAdjustmentDTO `json:"adjustment"`
}

// PublicListResult is one page of a store's public catalog.
type PublicListResult struct {
	Store      stores.StoreDTO `json:"store"`
	Products   []ProductDTO    `json:"products"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func FromModel(m *models.Product) ProductDTO {
	return ProductDTO{
		ID:        m.ID,
		StoreID:   m.StoreID,
		Name:      m.Name,
		Price:     m.Price,
		Stock:     m.Stock,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
