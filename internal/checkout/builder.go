package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/internal/catalog"
)

// StoreGroup is the slice of a checkout that becomes one order.
type StoreGroup struct {
	StoreID uuid.UUID
	Items   []catalog.ValidatedItem
	Total   decimal.Decimal
}

// GroupByStore splits validated items into one group per store. Groups keep the order in which
// their store first appears and items keep their input order.
func GroupByStore(items []catalog.ValidatedItem) []StoreGroup {
	groups := make([]StoreGroup, 0)
	index := make(map[uuid.UUID]int)
	for _, item := range items {
		pos, ok := index[item.StoreID]
		if !ok {
			pos = len(groups)
			index[item.StoreID] = pos
			groups = append(groups, StoreGroup{StoreID: item.StoreID, Total: decimal.Zero})
		}
		groups[pos].Items = append(groups[pos].Items, item)
	}
	for i := range groups {
		total := decimal.Zero
		for _, item := range groups[i].Items {
			total = total.Add(LineTotal(item))
		}
		groups[i].Total = total.Round(2)
	}
	return groups
}

// LineTotal is quantity × live unit price, rounded to cents.
func LineTotal(item catalog.ValidatedItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
}
