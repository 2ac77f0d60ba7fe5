package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/authz"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// Service exposes order reads and lifecycle commands.
type Service interface {
	Get(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, actor authz.Actor, filter ListFilter, params pagination.Params) (*OrderList, error)
	Transition(ctx context.Context, actor authz.Actor, input TransitionInput) (*OrderDTO, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	DB      db.TxRunner
	Repo    Repository
	Stock   StockRestorer
	Outbox  outbox.Emitter
	Metrics *metrics.OrderMetrics
	Logger  *logger.Logger
}

type service struct {
	tx      db.TxRunner
	repo    Repository
	stock   StockRestorer
	outbox  outbox.Emitter
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:      params.DB,
		repo:    params.Repo,
		stock:   params.Stock,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if err := authz.Require(actor, authz.CapViewOrder); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	owner, err := s.repo.StoreOwner(ctx, order.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order store")
	}
	parties := authz.OrderParties{CustomerID: order.CustomerID, StoreOwnerID: owner}
	if err := authz.AuthorizeOrderView(actor, parties); err != nil {
		return nil, err
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, filter ListFilter, params pagination.Params) (*OrderList, error) {
	if err := authz.Require(actor, authz.CapListOrders); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter").
			WithDetails(map[string]any{"status": string(*filter.Status)})
	}

	scope := ListScope{Status: filter.Status}
	userID := actor.UserID
	switch actor.Role {
	case enums.UserRoleCustomer:
		if filter.StoreID != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store_id filter is only available to business users")
		}
		scope.CustomerID = &userID
	case enums.UserRoleBusiness:
		scope.StoreOwnerID = &userID
		scope.StoreID = filter.StoreID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list orders")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, scope, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	out := make([]OrderDTO, 0, len(page))
	for i := range page {
		out = append(out, FromModel(&page[i]))
	}
	return &OrderList{Orders: out, NextCursor: next}, nil
}

func (s *service) Transition(ctx context.Context, actor authz.Actor, input TransitionInput) (*OrderDTO, error) {
	dto, restored, err := s.transition(ctx, actor, input)
	if err != nil {
		s.metrics.IncTransition(string(input.Action), string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncTransition(string(input.Action), "ok")
	s.metrics.AddRestoredUnits(restored)

	ctx = s.logg.WithOrderID(ctx, dto.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"action":         string(input.Action),
		"status":         string(dto.Status),
		"actor_role":     string(actor.Role),
		"restored_units": restored,
	})
	s.logg.Info(ctx, "order.transitioned")
	return dto, nil
}

func (s *service) transition(ctx context.Context, actor authz.Actor, input TransitionInput) (*OrderDTO, int, error) {
	if input.OrderID == uuid.Nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	capability, ok := authz.CapabilityForAction(input.Action)
	if !ok {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "action must be one of process, complete, cancel").
			WithDetails(map[string]any{"action": string(input.Action)})
	}
	if err := authz.Require(actor, capability); err != nil {
		return nil, 0, err
	}

	var (
		result   OrderDTO
		restored int
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		owner, err := repo.StoreOwner(ctx, order.StoreID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order store")
		}
		parties := authz.OrderParties{CustomerID: order.CustomerID, StoreOwnerID: owner}
		if err := authz.AuthorizeOrderAction(actor, input.Action, parties); err != nil {
			return err
		}

		if input.RequireStatus != "" && order.Status != input.RequireStatus {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order left the expected status").
				WithDetails(map[string]any{"status": string(order.Status), "expected": string(input.RequireStatus)})
		}
		next, err := NextStatus(order.Status, input.Action)
		if err != nil {
			return err
		}

		now := s.now()
		extra := map[string]any{}
		switch next {
		case enums.OrderStatusCancelled:
			extra["canceled_at"] = now
		case enums.OrderStatusCompleted:
			extra["completed_at"] = now
		}
		changed, err := repo.UpdateStatus(ctx, order.ID, sourceStatuses(input.Action), next, extra)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently").
				WithDetails(map[string]any{"status": string(order.Status), "action": string(input.Action)})
		}

		from := order.Status
		order.Status = next
		order.UpdatedAt = now
		var event outbox.DomainEvent
		if next == enums.OrderStatusCancelled {
			order.CanceledAt = &now
			lines, units, err := s.restoreStock(ctx, tx, order.Items)
			if err != nil {
				return err
			}
			restored = units
			event = outbox.DomainEvent{
				EventType:     enums.EventOrderCanceled,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor.Ref(),
				Data: payloads.OrderCanceledEvent{
					OrderID:    order.ID,
					StoreID:    order.StoreID,
					CustomerID: order.CustomerID,
					From:       from,
					CanceledAt: now,
					Reason:     input.Reason,
					Restored:   lines,
				},
			}
		} else {
			if next == enums.OrderStatusCompleted {
				order.CompletedAt = &now
			}
			event = outbox.DomainEvent{
				EventType:     enums.EventOrderStateChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor.Ref(),
				Data: payloads.OrderStateChangedEvent{
					OrderID:    order.ID,
					StoreID:    order.StoreID,
					CustomerID: order.CustomerID,
					Action:     input.Action,
					From:       from,
					To:         next,
				},
			}
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		result = FromModel(order)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &result, restored, nil
}

// restoreStock returns every item's quantity to its product, locking products in id order.
func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, items []models.OrderItem) ([]payloads.RestoredStock, int, error) {
	perProduct := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		perProduct[item.ProductID] += item.Quantity
	}
	ids := make([]uuid.UUID, 0, len(perProduct))
	for id := range perProduct {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	lines := make([]payloads.RestoredStock, 0, len(ids))
	total := 0
	for _, id := range ids {
		qty := perProduct[id]
		if err := s.stock.Restore(ctx, tx, id, qty); err != nil {
			return nil, 0, err
		}
		lines = append(lines, payloads.RestoredStock{ProductID: id, Quantity: qty})
		total += qty
	}
	return lines, total, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
