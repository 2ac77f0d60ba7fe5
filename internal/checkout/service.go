package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/authz"
	"github.com/angelmondragon/marketplace-backend/internal/catalog"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

type database interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockDecrementer interface {
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type orderNumberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, now time.Time) (string, error)
}

// Service turns a client cart into per-store orders.
type Service interface {
	PlaceOrder(ctx context.Context, actor authz.Actor, items []catalog.ItemRequest) ([]orders.OrderDTO, error)
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	DB        database
	Validator *catalog.Validator
	Orders    orders.Repository
	Stock     stockDecrementer
	Sequences orderNumberAllocator
	Outbox    outbox.Emitter
	Metrics   *metrics.CheckoutMetrics
	Logger    *logger.Logger
}

type service struct {
	db        database
	validator *catalog.Validator
	orders    orders.Repository
	stock     stockDecrementer
	sequences orderNumberAllocator
	outbox    outbox.Emitter
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database required")
	}
	if params.Validator == nil {
		return nil, fmt.Errorf("catalog validator required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	sequences := params.Sequences
	if sequences == nil {
		sequences = NewSequenceAllocator()
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		db:        params.DB,
		validator: params.Validator,
		orders:    params.Orders,
		stock:     params.Stock,
		sequences: sequences,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, actor authz.Actor, items []catalog.ItemRequest) ([]orders.OrderDTO, error) {
	start := time.Now()
	created, err := s.placeOrder(ctx, actor, items)
	elapsed := time.Since(start)
	if err != nil {
		code := pkgerrors.CodeOf(err)
		s.metrics.ObserveFailure(elapsed, string(code))
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"code":  string(code),
			"items": len(items),
		}), "checkout.rejected")
		return nil, err
	}
	s.metrics.ObserveSuccess(elapsed, len(created))

	numbers := make([]string, 0, len(created))
	for _, o := range created {
		numbers = append(numbers, o.OrderNumber)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_numbers": numbers,
		"duration_ms":   elapsed.Milliseconds(),
	}), "checkout.completed")
	return created, nil
}

func (s *service) placeOrder(ctx context.Context, actor authz.Actor, items []catalog.ItemRequest) ([]orders.OrderDTO, error) {
	if err := authz.Require(actor, authz.CapPlaceOrder); err != nil {
		return nil, err
	}
	normalized, err := s.validator.Normalize(items)
	if err != nil {
		return nil, err
	}
	if _, err := s.validator.Validate(ctx, s.db.DB(), normalized); err != nil {
		return nil, err
	}

	var created []orders.OrderDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		validated, err := s.validator.ValidateForUpdate(ctx, tx, normalized)
		if err != nil {
			return err
		}

		repo := s.orders.WithTx(tx)
		now := s.now()
		groups := GroupByStore(validated)
		created = make([]orders.OrderDTO, 0, len(groups))
		for _, group := range groups {
			order, err := s.writeOrder(ctx, tx, repo, actor, group, now)
			if err != nil {
				return err
			}
			created = append(created, orders.FromModel(order))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) writeOrder(ctx context.Context, tx *gorm.DB, repo orders.Repository, actor authz.Actor, group StoreGroup, now time.Time) (*models.Order, error) {
	number, err := s.sequences.Next(ctx, tx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate order number")
	}

	order := &models.Order{
		OrderNumber: number,
		CustomerID:  actor.UserID,
		StoreID:     group.StoreID,
		TotalAmount: group.Total,
		Status:      enums.OrderStatusPending,
		Items:       make([]models.OrderItem, 0, len(group.Items)),
	}
	lines := make([]payloads.OrderItemLine, 0, len(group.Items))
	for _, item := range group.Items {
		total := LineTotal(item)
		order.Items = append(order.Items, models.OrderItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: total,
		})
		lines = append(lines, payloads.OrderItemLine{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: total,
		})
	}

	if err := repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	for _, item := range group.Items {
		if err := s.stock.Decrement(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor.Ref(),
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			StoreID:     order.StoreID,
			TotalAmount: order.TotalAmount,
			Items:       lines,
		},
	}); err != nil {
		return nil, err
	}
	return order, nil
}
