package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRow struct {
	ID            uuid.UUID
	StoreID       uuid.UUID
	Name          string
	Price         decimal.Decimal
	Stock         int
	IsActive      bool
	StoreIsActive bool
}

// loadProducts reads products joined with their store in one query. With lock set the product rows are
// taken FOR UPDATE in id order; store rows are only read.
func loadProducts(ctx context.Context, db *gorm.DB, ids []uuid.UUID, lock bool) (map[uuid.UUID]productRow, error) {
	out := make(map[uuid.UUID]productRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := db.WithContext(ctx).
		Table("products").
		Select("products.id, products.store_id, products.name, products.price, products.stock, products.is_active, stores.is_active AS store_is_active").
		Joins("JOIN stores ON stores.id = products.store_id").
		Where("products.id IN ?", ids).
		Order("products.id ASC")
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "products"}})
	}

	var rows []productRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
