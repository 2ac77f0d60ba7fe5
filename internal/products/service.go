package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/authz"
	"github.com/angelmondragon/marketplace-backend/internal/stores"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// Service exposes product operations.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, input CreateProductInput) (*ProductDTO, error)
	AdjustStock(ctx context.Context, actor authz.Actor, productID uuid.UUID, input AdjustStockInput) (*AdjustStockResult, error)
	ListPublicByStoreSlug(ctx context.Context, slug string, params pagination.Params) (*PublicListResult, error)
}

// ServiceParams wires the product service.
type ServiceParams struct {
	DB     db.TxRunner
	Repo   *Repository
	Stores *stores.Repository
	Outbox outbox.Emitter
	Logger *logger.Logger
}

type service struct {
	db     db.TxRunner
	repo   *Repository
	stores *stores.Repository
	outbox outbox.Emitter
	logg   *logger.Logger
}

// NewService builds a product service with the provided collaborators.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		db:     params.DB,
		repo:   params.Repo,
		stores: params.Stores,
		outbox: params.Outbox,
		logg:   logg,
	}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateProductInput) (*ProductDTO, error) {
	if err := authz.Require(actor, authz.CapCreateProduct); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	switch {
	case input.StoreID == uuid.Nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store_id is required")
	case name == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case !input.Price.IsPositive():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	case !input.Price.Equal(input.Price.Round(2)):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price supports at most two decimal places")
	case input.Stock < 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product := &models.Product{
		StoreID:  input.StoreID,
		Name:     name,
		Price:    input.Price,
		Stock:    input.Stock,
		IsActive: active,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		store, err := s.stores.WithTx(tx).FindByID(ctx, input.StoreID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
		}
		if err := authz.AuthorizeStoreOwner(actor, authz.CapCreateProduct, store.OwnerID); err != nil {
			return err
		}
		if !store.IsActive && product.IsActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "store is inactive").
				WithDetails(map[string]any{"store_id": store.ID})
		}
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			if db.IsCheckViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "product violates catalog constraints")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(product)
	return &dto, nil
}

func (s *service) AdjustStock(ctx context.Context, actor authz.Actor, productID uuid.UUID, input AdjustStockInput) (*AdjustStockResult, error) {
	if err := authz.Require(actor, authz.CapAdjustStock); err != nil {
		return nil, err
	}
	if err := validateAdjustment(input); err != nil {
		return nil, err
	}

	var result AdjustStockResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		store, err := s.stores.WithTx(tx).FindByID(ctx, product.StoreID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product store")
		}
		if err := authz.AuthorizeStoreOwner(actor, authz.CapAdjustStock, store.OwnerID); err != nil {
			return err
		}

		before := product.Stock
		after, err := nextStock(before, input)
		if err != nil {
			return err
		}
		if err := repo.SetStock(ctx, product.ID, after); err != nil {
			if db.IsCheckViolation(err) {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "stock cannot go below zero")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stock")
		}
		if err := repo.CreateAdjustment(ctx, &models.StockAdjustment{
			ProductID:   product.ID,
			ActorID:     actor.UserID,
			Action:      input.Action,
			Quantity:    input.Quantity,
			StockBefore: before,
			StockAfter:  after,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record stock adjustment")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductStockAdjusted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Actor:         actor.Ref(),
			Data: payloads.ProductStockAdjustedEvent{
				ProductID:   product.ID,
				StoreID:     product.StoreID,
				Action:      input.Action,
				Quantity:    input.Quantity,
				StockBefore: before,
				StockAfter:  after,
			},
		}); err != nil {
			return err
		}

		product.Stock = after
		result = AdjustStockResult{
			Product: FromModel(product),
			Adjustment: StockAdjustmentDTO{
				Action:      input.Action,
				Quantity:    input.Quantity,
				StockBefore: before,
				StockAfter:  after,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"product_id":   productID.String(),
		"action":       string(input.Action),
		"stock_before": result.Adjustment.StockBefore,
		"stock_after":  result.Adjustment.StockAfter,
	})
	s.logg.Info(ctx, "product.stock_adjusted")
	return &result, nil
}

func (s *service) ListPublicByStoreSlug(ctx context.Context, slug string, params pagination.Params) (*PublicListResult, error) {
	store, err := s.stores.FindBySlug(ctx, stores.NormalizeSlug(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	if !store.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListActiveByStore(ctx, store.ID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	page, next := pagination.Trim(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	out := make([]ProductDTO, 0, len(page))
	for i := range page {
		out = append(out, FromModel(&page[i]))
	}
	return &PublicListResult{
		Store:      *stores.FromModel(store),
		Products:   out,
		NextCursor: next,
	}, nil
}

func validateAdjustment(input AdjustStockInput) error {
	if !input.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "action must be one of set, increment, decrement").
			WithDetails(map[string]any{"action": string(input.Action)})
	}
	if input.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.Action != enums.StockActionSet && input.Quantity == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

// nextStock computes the post-adjustment stock from the locked current value.
func nextStock(current int, input AdjustStockInput) (int, error) {
	switch input.Action {
	case enums.StockActionSet:
		return input.Quantity, nil
	case enums.StockActionIncrement:
		return current + input.Quantity, nil
	case enums.StockActionDecrement:
		if input.Quantity > current {
			return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{"requested": input.Quantity, "available": current})
		}
		return current - input.Quantity, nil
	}
	return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown stock action")
}
