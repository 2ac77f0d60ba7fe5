package authz

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
)

// Capability names a single guarded operation.
type Capability string

const (
	CapPlaceOrder    Capability = "order.place"
	CapListOrders    Capability = "order.list"
	CapViewOrder     Capability = "order.view"
	CapProcessOrder  Capability = "order.process"
	CapCompleteOrder Capability = "order.complete"
	CapCancelOrder   Capability = "order.cancel"
	CapCreateStore   Capability = "store.create"
	CapManageStore   Capability = "store.manage"
	CapCreateProduct Capability = "product.create"
	CapAdjustStock   Capability = "product.adjust_stock"
)

var roleCapabilities = map[enums.UserRole]map[Capability]struct{}{
	enums.UserRoleCustomer: set(
		CapPlaceOrder,
		CapListOrders,
		CapViewOrder,
		CapCancelOrder,
	),
	enums.UserRoleBusiness: set(
		CapListOrders,
		CapViewOrder,
		CapProcessOrder,
		CapCompleteOrder,
		CapCancelOrder,
		CapCreateStore,
		CapManageStore,
		CapCreateProduct,
		CapAdjustStock,
	),
	enums.UserRoleSystem: set(
		CapCancelOrder,
	),
}

func set(caps ...Capability) map[Capability]struct{} {
	out := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		out[c] = struct{}{}
	}
	return out
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// SystemActor identifies background jobs. It owns nothing and may only cancel.
func SystemActor() Actor {
	return Actor{Role: enums.UserRoleSystem}
}

func (a Actor) IsSystem() bool {
	return a.Role == enums.UserRoleSystem
}

// Can reports whether the actor's role grants the capability.
func (a Actor) Can(c Capability) bool {
	caps, ok := roleCapabilities[a.Role]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// Require returns UNAUTHORIZED for an anonymous actor and FORBIDDEN when the role lacks the capability.
func Require(a Actor, c Capability) error {
	if a.UserID == uuid.Nil && !a.IsSystem() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !a.Can(c) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted").
			WithDetails(map[string]any{"capability": string(c), "role": string(a.Role)})
	}
	return nil
}

// CapabilityForAction maps an order lifecycle action to the capability guarding it.
func CapabilityForAction(action enums.OrderAction) (Capability, bool) {
	switch action {
	case enums.OrderActionProcess:
		return CapProcessOrder, true
	case enums.OrderActionComplete:
		return CapCompleteOrder, true
	case enums.OrderActionCancel:
		return CapCancelOrder, true
	}
	return "", false
}

// RolesWith lists the token roles that hold c, for route-level gates.
func RolesWith(c Capability) []enums.UserRole {
	roles := make([]enums.UserRole, 0, 2)
	for _, role := range []enums.UserRole{enums.UserRoleCustomer, enums.UserRoleBusiness} {
		if (Actor{Role: role}).Can(c) {
			roles = append(roles, role)
		}
	}
	return roles
}

// Ref is the actor as recorded on outbox envelopes.
func (a Actor) Ref() *outbox.ActorRef {
	return &outbox.ActorRef{UserID: a.UserID, Role: string(a.Role)}
}
