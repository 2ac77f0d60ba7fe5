package authz

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// OrderParties identifies who owns an order: the customer who placed it and the owner of its store.
type OrderParties struct {
	CustomerID   uuid.UUID
	StoreOwnerID uuid.UUID
}

// AuthorizeStoreOwner allows c only for the business user owning the store.
func AuthorizeStoreOwner(a Actor, c Capability, storeOwnerID uuid.UUID) error {
	if err := Require(a, c); err != nil {
		return err
	}
	if a.Role != enums.UserRoleBusiness || a.UserID != storeOwnerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "store not owned by caller")
	}
	return nil
}

// AuthorizeOrderView allows the placing customer or the store owner to read an order.
func AuthorizeOrderView(a Actor, parties OrderParties) error {
	if err := Require(a, CapViewOrder); err != nil {
		return err
	}
	if !isParty(a, parties) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible")
	}
	return nil
}

// AuthorizeOrderAction applies the lifecycle matrix: the store owner may process, complete and cancel,
// the placing customer may cancel, and the system actor may cancel.
func AuthorizeOrderAction(a Actor, action enums.OrderAction, parties OrderParties) error {
	c, ok := CapabilityForAction(action)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order action").
			WithDetails(map[string]any{"action": string(action)})
	}
	if err := Require(a, c); err != nil {
		return err
	}
	if a.IsSystem() {
		return nil
	}
	if !isParty(a, parties) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible")
	}
	return nil
}

func isParty(a Actor, parties OrderParties) bool {
	switch a.Role {
	case enums.UserRoleCustomer:
		return a.UserID == parties.CustomerID
	case enums.UserRoleBusiness:
		return a.UserID == parties.StoreOwnerID
	}
	return false
}
