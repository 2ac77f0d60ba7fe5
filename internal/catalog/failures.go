package catalog

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// Reason classifies why a requested item cannot be purchased.
type Reason string

const (
	ReasonProductNotFound   Reason = "product_not_found"
	ReasonProductInactive   Reason = "product_inactive"
	ReasonStoreInactive     Reason = "store_inactive"
	ReasonStoreMismatch     Reason = "store_mismatch"
	ReasonInsufficientStock Reason = "insufficient_stock"
	ReasonPriceMismatch     Reason = "price_mismatch"
)

// Refreshable reports whether a client can recover by reloading live data and retrying.
func (r Reason) Refreshable() bool {
	return r == ReasonInsufficientStock || r == ReasonPriceMismatch
}

// Failure is one itemized problem reported back to the client.
type Failure struct {
	Index       int              `json:"index"`
	ProductID   uuid.UUID        `json:"product_id"`
	StoreID     uuid.UUID        `json:"store_id"`
	Reason      Reason           `json:"reason"`
	Requested   int              `json:"requested,omitempty"`
	Available   *int             `json:"available,omitempty"`
	ClientPrice *decimal.Decimal `json:"client_price,omitempty"`
	LivePrice   *decimal.Decimal `json:"live_price,omitempty"`
}

// ValidationError carries every failure found in one validation pass.
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Failures) == 0 {
		return "catalog validation failed"
	}
	return fmt.Sprintf("catalog validation failed: %d item(s), first %s for product %s",
		len(e.Failures), e.Failures[0].Reason, e.Failures[0].ProductID)
}

// Code maps the failure set onto the API error code.
func (e *ValidationError) Code() pkgerrors.Code {
	if e == nil || len(e.Failures) == 0 {
		return pkgerrors.CodeValidation
	}
	allStock, allRefreshable := true, true
	for _, f := range e.Failures {
		if f.Reason != ReasonInsufficientStock {
			allStock = false
		}
		if !f.Reason.Refreshable() {
			allRefreshable = false
		}
	}
	switch {
	case allStock:
		return pkgerrors.CodeInsufficientStock
	case allRefreshable:
		return pkgerrors.CodeConflict
	default:
		return pkgerrors.CodeValidation
	}
}

// Typed wraps the failures into the API error carrying the itemized details.
func (e *ValidationError) Typed() *pkgerrors.Error {
	code := e.Code()
	message := "one or more items cannot be ordered"
	switch code {
	case pkgerrors.CodeInsufficientStock:
		message = "insufficient stock for one or more items"
	case pkgerrors.CodeConflict:
		message = "cart is out of date, refresh and retry"
	}
	return pkgerrors.Wrap(code, e, message).WithDetails(map[string]any{"items": e.Failures})
}
