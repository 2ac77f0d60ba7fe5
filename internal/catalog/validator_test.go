package catalog

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func newValidator() *Validator {
	return NewValidator(config.CheckoutConfig{MaxItems: 3, PriceTolerance: "0.01"})
}

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func failuresOf(t *testing.T, err error) []Failure {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Failures
}

func seedStore(t *testing.T, db *gorm.DB, active bool) *models.Store {
	owner := dbtest.MustCreateUser(t, db, enums.UserRoleBusiness)
	return dbtest.MustCreateStore(t, db, owner.ID, active)
}

func TestNormalizeMergesDuplicates(t *testing.T) {
	storeID := uuid.New()
	productID := uuid.New()
	other := uuid.New()

	items, err := newValidator().Normalize([]ItemRequest{
		{ProductID: productID, StoreID: storeID, Quantity: 2},
		{ProductID: other, StoreID: storeID, Quantity: 1},
		{ProductID: productID, StoreID: storeID, Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, productID, items[0].ProductID)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, other, items[1].ProductID)
}

func TestNormalizeRejectsInvalidInput(t *testing.T) {
	storeID := uuid.New()
	productID := uuid.New()
	v := newValidator()

	cases := map[string][]ItemRequest{
		"empty":         nil,
		"zero quantity": {{ProductID: productID, StoreID: storeID, Quantity: 0}},
		"missing store": {{ProductID: productID, Quantity: 1}},
		"store conflict": {
			{ProductID: productID, StoreID: storeID, Quantity: 1},
			{ProductID: productID, StoreID: uuid.New(), Quantity: 1},
		},
		"price conflict": {
			{ProductID: productID, StoreID: storeID, Quantity: 1, UnitPrice: price("1.00")},
			{ProductID: productID, StoreID: storeID, Quantity: 1, UnitPrice: price("2.00")},
		},
		"oversized line": {{ProductID: productID, StoreID: storeID, Quantity: MaxLineQuantity + 1}},
		"merged overflow": {
			{ProductID: productID, StoreID: storeID, Quantity: math.MaxInt},
			{ProductID: productID, StoreID: storeID, Quantity: math.MaxInt},
		},
		"merged past column range": {
			{ProductID: productID, StoreID: storeID, Quantity: MaxLineQuantity},
			{ProductID: productID, StoreID: storeID, Quantity: 1},
		},
		"too many": {
			{ProductID: uuid.New(), StoreID: storeID, Quantity: 1},
			{ProductID: uuid.New(), StoreID: storeID, Quantity: 1},
			{ProductID: uuid.New(), StoreID: storeID, Quantity: 1},
			{ProductID: uuid.New(), StoreID: storeID, Quantity: 1},
		},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Normalize(items)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestValidateReturnsLivePrices(t *testing.T) {
	client := dbtest.Open(t)
	store := seedStore(t, client.DB(), true)
	product := dbtest.MustCreateProduct(t, client.DB(), store.ID, "10.00", 5)

	items, err := newValidator().Validate(context.Background(), client.DB(), []ItemRequest{
		{ProductID: product.ID, StoreID: store.ID, Quantity: 5, UnitPrice: price("10.005")},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, 5, items[0].Stock)
}

func TestValidateCollectsEveryFailure(t *testing.T) {
	client := dbtest.Open(t)
	db := client.DB()
	activeStore := seedStore(t, db, true)
	closedStore := seedStore(t, db, false)

	lowStock := dbtest.MustCreateProduct(t, db, activeStore.ID, "5.00", 1)
	inactive := dbtest.MustCreateProduct(t, db, activeStore.ID, "5.00", 10)
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
	closed := dbtest.MustCreateProduct(t, db, closedStore.ID, "5.00", 10)
	priced := dbtest.MustCreateProduct(t, db, activeStore.ID, "5.00", 10)

	v := NewValidator(config.CheckoutConfig{MaxItems: 10, PriceTolerance: "0.01"})
	_, err := v.Validate(context.Background(), db, []ItemRequest{
		{ProductID: uuid.New(), StoreID: activeStore.ID, Quantity: 1},
		{ProductID: lowStock.ID, StoreID: activeStore.ID, Quantity: 2},
		{ProductID: inactive.ID, StoreID: activeStore.ID, Quantity: 1},
		{ProductID: closed.ID, StoreID: closedStore.ID, Quantity: 1},
		{ProductID: priced.ID, StoreID: activeStore.ID, Quantity: 1, UnitPrice: price("4.98")},
		{ProductID: priced.ID, StoreID: closedStore.ID, Quantity: 1},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	reasons := map[int]Reason{}
	for _, f := range failuresOf(t, err) {
		reasons[f.Index] = f.Reason
	}
	assert.Equal(t, ReasonProductNotFound, reasons[0])
	assert.Equal(t, ReasonInsufficientStock, reasons[1])
	assert.Equal(t, ReasonProductInactive, reasons[2])
	assert.Equal(t, ReasonStoreInactive, reasons[3])
	assert.Equal(t, ReasonPriceMismatch, reasons[4])
	assert.Equal(t, ReasonStoreMismatch, reasons[5])

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["items"], 6)
}

func TestValidationErrorClassification(t *testing.T) {
	stock := Failure{Reason: ReasonInsufficientStock}
	priceFail := Failure{Reason: ReasonPriceMismatch}
	inactive := Failure{Reason: ReasonProductInactive}

	assert.Equal(t, pkgerrors.CodeInsufficientStock, (&ValidationError{Failures: []Failure{stock, stock}}).Code())
	assert.Equal(t, pkgerrors.CodeConflict, (&ValidationError{Failures: []Failure{stock, priceFail}}).Code())
	assert.Equal(t, pkgerrors.CodeValidation, (&ValidationError{Failures: []Failure{stock, inactive}}).Code())
}

func TestValidateForUpdateInsideTransaction(t *testing.T) {
	client := dbtest.Open(t)
	store := seedStore(t, client.DB(), true)
	product := dbtest.MustCreateProduct(t, client.DB(), store.ID, "3.50", 2)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := newValidator().ValidateForUpdate(context.Background(), tx, []ItemRequest{
			{ProductID: product.ID, StoreID: store.ID, Quantity: 3},
		})
		return err
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.CodeOf(err))
}
