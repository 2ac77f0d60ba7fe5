package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func TestRoleCapabilities(t *testing.T) {
	customer := Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	business := Actor{UserID: uuid.New(), Role: enums.UserRoleBusiness}

	assert.True(t, customer.Can(CapPlaceOrder))
	assert.True(t, customer.Can(CapCancelOrder))
	assert.False(t, customer.Can(CapProcessOrder))
	assert.False(t, customer.Can(CapAdjustStock))

	assert.False(t, business.Can(CapPlaceOrder))
	assert.True(t, business.Can(CapCompleteOrder))
	assert.True(t, business.Can(CapAdjustStock))

	assert.True(t, SystemActor().Can(CapCancelOrder))
	assert.False(t, SystemActor().Can(CapProcessOrder))
}

func TestRequireAnonymous(t *testing.T) {
	err := Require(Actor{Role: enums.UserRoleCustomer}, CapPlaceOrder)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	err = Require(Actor{UserID: uuid.New(), Role: enums.UserRoleBusiness}, CapPlaceOrder)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestAuthorizeOrderAction(t *testing.T) {
	customerID := uuid.New()
	ownerID := uuid.New()
	parties := OrderParties{CustomerID: customerID, StoreOwnerID: ownerID}
	customer := Actor{UserID: customerID, Role: enums.UserRoleCustomer}
	owner := Actor{UserID: ownerID, Role: enums.UserRoleBusiness}
	otherOwner := Actor{UserID: uuid.New(), Role: enums.UserRoleBusiness}
	otherCustomer := Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}

	cases := []struct {
		name   string
		actor  Actor
		action enums.OrderAction
		code   pkgerrors.Code
	}{
		{"owner process", owner, enums.OrderActionProcess, ""},
		{"owner complete", owner, enums.OrderActionComplete, ""},
		{"owner cancel", owner, enums.OrderActionCancel, ""},
		{"customer cancel", customer, enums.OrderActionCancel, ""},
		{"customer process", customer, enums.OrderActionProcess, pkgerrors.CodeForbidden},
		{"customer complete", customer, enums.OrderActionComplete, pkgerrors.CodeForbidden},
		{"other owner", otherOwner, enums.OrderActionProcess, pkgerrors.CodeForbidden},
		{"other customer", otherCustomer, enums.OrderActionCancel, pkgerrors.CodeForbidden},
		{"system cancel", SystemActor(), enums.OrderActionCancel, ""},
		{"system complete", SystemActor(), enums.OrderActionComplete, pkgerrors.CodeForbidden},
		{"unknown action", owner, enums.OrderAction("ship"), pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeOrderAction(tc.actor, tc.action, parties)
			if tc.code == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
		})
	}
}

func TestAuthorizeOrderView(t *testing.T) {
	customerID := uuid.New()
	ownerID := uuid.New()
	parties := OrderParties{CustomerID: customerID, StoreOwnerID: ownerID}

	require.NoError(t, AuthorizeOrderView(Actor{UserID: customerID, Role: enums.UserRoleCustomer}, parties))
	require.NoError(t, AuthorizeOrderView(Actor{UserID: ownerID, Role: enums.UserRoleBusiness}, parties))
	err := AuthorizeOrderView(Actor{UserID: ownerID, Role: enums.UserRoleCustomer}, parties)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestAuthorizeStoreOwner(t *testing.T) {
	ownerID := uuid.New()
	require.NoError(t, AuthorizeStoreOwner(Actor{UserID: ownerID, Role: enums.UserRoleBusiness}, CapAdjustStock, ownerID))

	err := AuthorizeStoreOwner(Actor{UserID: uuid.New(), Role: enums.UserRoleBusiness}, CapAdjustStock, ownerID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestRolesWith(t *testing.T) {
	assert.Equal(t, []enums.UserRole{enums.UserRoleCustomer}, RolesWith(CapPlaceOrder))
	assert.Equal(t, []enums.UserRole{enums.UserRoleCustomer, enums.UserRoleBusiness}, RolesWith(CapCancelOrder))
	assert.Equal(t, []enums.UserRole{enums.UserRoleBusiness}, RolesWith(CapAdjustStock))
}
