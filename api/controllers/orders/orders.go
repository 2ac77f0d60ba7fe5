package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/api/middleware"
	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/api/validators"
	"github.com/angelmondragon/marketplace-backend/internal/authz"
	"github.com/angelmondragon/marketplace-backend/internal/catalog"
	"github.com/angelmondragon/marketplace-backend/internal/checkout"
	internalorders "github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

const maxReasonLen = 500

type placeOrderItem struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	StoreID   uuid.UUID        `json:"store_id" validate:"required"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type placeOrderRequest struct {
	Items []placeOrderItem `json:"items" validate:"required,min=1,dive"`
}

type transitionRequest struct {
	Action string `json:"action,omitempty"`
	Status string `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Place runs checkout for the posted cart snapshot and returns one order per store.
func Place(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		actor, ok := actorOrUnauthorized(w, r, logg)
		if !ok {
			return
		}

		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]catalog.ItemRequest, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, catalog.ItemRequest{
				ProductID: item.ProductID,
				StoreID:   item.StoreID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}

		created, err := svc.PlaceOrder(r.Context(), actor, items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"orders": created})
	}
}

// List returns the caller's orders: customers see their own, businesses see their stores'.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, ok := actorOrUnauthorized(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := parseListFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), actor, filter, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order with its items when the caller is a party to it.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, ok := actorOrUnauthorized(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Transition applies a lifecycle action given either as {action} or as a target {status}.
func Transition(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, ok := actorOrUnauthorized(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transitionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := body.resolveAction()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		order, err := svc.Transition(ctx, actor, internalorders.TransitionInput{
			OrderID: orderID,
			Action:  action,
			Reason:  validators.SanitizeText(body.Reason, maxReasonLen),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func (b transitionRequest) resolveAction() (enums.OrderAction, error) {
	action := strings.ToLower(strings.TrimSpace(b.Action))
	status := strings.ToUpper(strings.TrimSpace(b.Status))
	switch {
	case action != "" && status != "":
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provide either action or status, not both")
	case action != "":
		parsed, err := enums.ParseOrderAction(action)
		if err != nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown action").
				WithDetails(map[string]any{"action": b.Action, "allowed": []string{"process", "complete", "cancel"}})
		}
		return parsed, nil
	case status != "":
		parsed, err := enums.OrderActionForStatus(enums.OrderStatus(status))
		if err != nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "status is not a transition target").
				WithDetails(map[string]any{"status": b.Status, "allowed": []string{"PROCESSING", "COMPLETED", "CANCELLED"}})
		}
		return parsed, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "action or status is required")
}

func parseListFilter(r *http.Request) (internalorders.ListFilter, error) {
	var filter internalorders.ListFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.OrderStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter").
				WithDetails(map[string]any{"status": raw})
		}
		filter.Status = &status
	}
	storeID, err := validators.ParseQueryUUID(r, "store_id")
	if err != nil {
		return filter, err
	}
	filter.StoreID = storeID
	return filter, nil
}

func actorOrUnauthorized(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (authz.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return authz.Actor{}, false
	}
	return actor, true
}
