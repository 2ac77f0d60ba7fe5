package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/api/validators"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type createProductRequest struct {
	StoreID  uuid.UUID       `json:"store_id" validate:"required"`
	Name     string          `json:"name" validate:"required,max=200"`
	Price    decimal.Decimal `json:"price"`
	Stock    *int            `json:"stock" validate:"required"`
	IsActive *bool           `json:"is_active"`
}

type adjustStockRequest struct {
	Action   enums.StockAction `json:"action" validate:"required,oneof=set increment decrement"`
	Quantity *int              `json:"quantity" validate:"required"`
}

// ProductCreate adds a product to a store the caller owns.
func ProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), actor, products.CreateProductInput{
			StoreID:  body.StoreID,
			Name:     body.Name,
			Price:    body.Price,
			Stock:    *body.Stock,
			IsActive: body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductAdjustStock applies set/increment/decrement to a product of an owned store.
func ProductAdjustStock(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdjustStock(r.Context(), actor, productID, products.AdjustStockInput{
			Action:   body.Action,
			Quantity: *body.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PublicStoreProducts lists active products of an active store by slug. No authentication.
func PublicStoreProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListPublicByStoreSlug(r.Context(), urlParam(r, "slug"), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
