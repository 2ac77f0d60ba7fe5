package catalog

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

const DefaultMaxItems = 100

// MaxLineQuantity bounds one line, and the merged total of a product, to the quantity column range.
const MaxLineQuantity = math.MaxInt32

// ItemRequest is one cart line as sent by the client.
type ItemRequest struct {
	ProductID uuid.UUID
	StoreID   uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
}

// ValidatedItem is a purchasable line priced from live data.
type ValidatedItem struct {
	ProductID   uuid.UUID
	StoreID     uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Stock       int
}

// Validator checks cart lines against the live catalog.
type Validator struct {
	maxItems  int
	tolerance decimal.Decimal
}

func NewValidator(cfg config.CheckoutConfig) *Validator {
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Validator{
		maxItems:  maxItems,
		tolerance: cfg.Tolerance(),
	}
}

// Normalize merges duplicate product lines, summing quantities, and enforces the item bounds.
func (v *Validator) Normalize(items []ItemRequest) ([]ItemRequest, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	merged := make([]ItemRequest, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for i, item := range items {
		details := map[string]any{"index": i, "product_id": item.ProductID}
		if item.ProductID == uuid.Nil || item.StoreID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id and store_id are required").WithDetails(details)
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").WithDetails(details)
		}
		if item.Quantity > MaxLineQuantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity is too large").
				WithDetails(map[string]any{"index": i, "product_id": item.ProductID, "max_quantity": MaxLineQuantity})
		}
		if item.UnitPrice != nil && !item.UnitPrice.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be positive").WithDetails(details)
		}

		pos, seen := index[item.ProductID]
		if !seen {
			index[item.ProductID] = len(merged)
			merged = append(merged, item)
			continue
		}
		existing := &merged[pos]
		if existing.StoreID != item.StoreID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product lines claim different stores").WithDetails(details)
		}
		if !samePrice(existing.UnitPrice, item.UnitPrice) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product lines carry different prices").WithDetails(details)
		}
		if existing.Quantity > MaxLineQuantity-item.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "combined quantity for product is too large").
				WithDetails(map[string]any{"index": i, "product_id": item.ProductID, "max_quantity": MaxLineQuantity})
		}
		existing.Quantity += item.Quantity
	}

	if len(merged) > v.maxItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many items").
			WithDetails(map[string]any{"max_items": v.maxItems, "items": len(merged)})
	}
	return merged, nil
}

// Validate checks items against a consistent read of the catalog without taking locks.
func (v *Validator) Validate(ctx context.Context, db *gorm.DB, items []ItemRequest) ([]ValidatedItem, error) {
	return v.validate(ctx, db, items, false)
}

// ValidateForUpdate is Validate with the product rows locked until tx ends.
func (v *Validator) ValidateForUpdate(ctx context.Context, tx *gorm.DB, items []ItemRequest) ([]ValidatedItem, error) {
	return v.validate(ctx, tx, items, true)
}

func (v *Validator) validate(ctx context.Context, db *gorm.DB, items []ItemRequest, lock bool) ([]ValidatedItem, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if len(items) > v.maxItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many items").
			WithDetails(map[string]any{"max_items": v.maxItems, "items": len(items)})
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	rows, err := loadProducts(ctx, db, ids, lock)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	var failures []Failure
	validated := make([]ValidatedItem, 0, len(items))
	for i, item := range items {
		row, ok := rows[item.ProductID]
		itemFailures := v.check(i, item, row, ok)
		if len(itemFailures) > 0 {
			failures = append(failures, itemFailures...)
			continue
		}
		validated = append(validated, ValidatedItem{
			ProductID:   row.ID,
			StoreID:     row.StoreID,
			ProductName: row.Name,
			Quantity:    item.Quantity,
			UnitPrice:   row.Price.Round(2),
			Stock:       row.Stock,
		})
	}

	if len(failures) > 0 {
		return nil, (&ValidationError{Failures: failures}).Typed()
	}
	return validated, nil
}

func (v *Validator) check(index int, item ItemRequest, row productRow, found bool) []Failure {
	base := Failure{Index: index, ProductID: item.ProductID, StoreID: item.StoreID}
	if !found {
		base.Reason = ReasonProductNotFound
		return []Failure{base}
	}
	if row.StoreID != item.StoreID {
		base.Reason = ReasonStoreMismatch
		return []Failure{base}
	}

	var out []Failure
	if !row.IsActive {
		f := base
		f.Reason = ReasonProductInactive
		out = append(out, f)
	}
	if !row.StoreIsActive {
		f := base
		f.Reason = ReasonStoreInactive
		out = append(out, f)
	}
	if row.Stock < item.Quantity {
		available := row.Stock
		f := base
		f.Reason = ReasonInsufficientStock
		f.Requested = item.Quantity
		f.Available = &available
		out = append(out, f)
	}
	if item.UnitPrice != nil && item.UnitPrice.Sub(row.Price).Abs().GreaterThan(v.tolerance) {
		client := *item.UnitPrice
		live := row.Price.Round(2)
		f := base
		f.Reason = ReasonPriceMismatch
		f.ClientPrice = &client
		f.LivePrice = &live
		out = append(out, f)
	}
	return out
}

func samePrice(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
