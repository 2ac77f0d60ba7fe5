package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/authz"
	"github.com/angelmondragon/marketplace-backend/internal/stores"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	svc, err := NewService(ServiceParams{
		DB:     client,
		Repo:   NewRepository(conn),
		Stores: stores.NewRepository(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
	})
	require.NoError(t, err)
	return svc, conn
}

func ownerActor(u *models.User) authz.Actor {
	return authz.Actor{UserID: u.ID, Role: u.Role}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without transaction runner")
	}
}

func TestCreateProduct(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	store := dbtest.MustCreateStore(t, conn, owner.ID, true)

	dto, err := svc.Create(context.Background(), ownerActor(owner), CreateProductInput{
		StoreID: store.ID,
		Name:    "  Cold Brew  ",
		Price:   decimal.RequireFromString("12.50"),
		Stock:   7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Cold Brew", dto.Name)
	assert.True(t, dto.IsActive)
	assert.Equal(t, 7, dto.Stock)
	assert.True(t, dto.Price.Equal(decimal.RequireFromString("12.5")))
	assert.NotEqual(t, uuid.Nil, dto.ID)
}

func TestCreateProductRejectsForeignStore(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	intruder := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	store := dbtest.MustCreateStore(t, conn, owner.ID, true)

	_, err := svc.Create(context.Background(), ownerActor(intruder), CreateProductInput{
		StoreID: store.ID,
		Name:    "Tea",
		Price:   decimal.RequireFromString("3.00"),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	customer := dbtest.MustCreateUser(t, conn, enums.UserRoleCustomer)
	store := dbtest.MustCreateStore(t, conn, owner.ID, true)
	ctx := context.Background()

	cases := map[string]CreateProductInput{
		"zero price":      {StoreID: store.ID, Name: "A", Price: decimal.Zero},
		"three decimals":  {StoreID: store.ID, Name: "A", Price: decimal.RequireFromString("1.005")},
		"negative stock":  {StoreID: store.ID, Name: "A", Price: decimal.NewFromInt(1), Stock: -1},
		"missing name":    {StoreID: store.ID, Price: decimal.NewFromInt(1)},
		"missing storeID": {Name: "A", Price: decimal.NewFromInt(1)},
	}
	for name, input := range cases {
		if _, err := svc.Create(ctx, ownerActor(owner), input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}

	_, err := svc.Create(ctx, ownerActor(customer), CreateProductInput{StoreID: store.ID, Name: "A", Price: decimal.NewFromInt(1)})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected customer to be forbidden, got %v", err)
	}
}

func TestAdjustStockActions(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	store := dbtest.MustCreateStore(t, conn, owner.ID, true)
	product := dbtest.MustCreateProduct(t, conn, store.ID, "10.00", 5)
	ctx := context.Background()
	actor := ownerActor(owner)

	steps := []struct {
		action enums.StockAction
		qty    int
		want   int
	}{
		{enums.StockActionIncrement, 3, 8},
		{enums.StockActionDecrement, 6, 2},
		{enums.StockActionSet, 0, 0},
		{enums.StockActionSet, 11, 11},
	}
	for _, step := range steps {
		res, err := svc.AdjustStock(ctx, actor, product.ID, AdjustStockInput{Action: step.action, Quantity: step.qty})
		require.NoError(t, err, "%s %d", step.action, step.qty)
		assert.Equal(t, step.want, res.Product.Stock)
		assert.Equal(t, step.want, res.Adjustment.StockAfter)
		assert.Equal(t, step.want, dbtest.StockOf(t, conn, product.ID))
	}

	var audits int64
	require.NoError(t, conn.Model(&models.StockAdjustment{}).Where("product_id = ?", product.ID).Count(&audits).Error)
	assert.EqualValues(t, len(steps), audits)
	assert.EqualValues(t, len(steps), dbtest.CountOutbox(t, conn, enums.EventProductStockAdjusted))
}

func TestAdjustStockDecrementBelowZero(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	store := dbtest.MustCreateStore(t, conn, owner.ID, true)
	product := dbtest.MustCreateProduct(t, conn, store.ID, "10.00", 2)

	_, err := svc.AdjustStock(context.Background(), ownerActor(owner), product.ID, AdjustStockInput{
		Action:   enums.StockActionDecrement,
		Quantity: 3,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := dbtest.StockOf(t, conn, product.ID); got != 2 {
		t.Fatalf("stock changed after rejected adjustment: %d", got)
	}

	var audits int64
	require.NoError(t, conn.Model(&models.StockAdjustment{}).Count(&audits).Error)
	assert.Zero(t, audits)
	assert.Zero(t, dbtest.CountOutbox(t, conn, enums.EventProductStockAdjusted))
}

func TestAdjustStockAuthorization(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	other := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	customer := dbtest.MustCreateUser(t, conn, enums.UserRoleCustomer)
	store := dbtest.MustCreateStore(t, conn, owner.ID, true)
	product := dbtest.MustCreateProduct(t, conn, store.ID, "10.00", 2)
	ctx := context.Background()
	input := AdjustStockInput{Action: enums.StockActionIncrement, Quantity: 1}

	if _, err := svc.AdjustStock(ctx, ownerActor(other), product.ID, input); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for foreign owner, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, ownerActor(customer), product.ID, input); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for customer, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, ownerActor(owner), uuid.New(), input); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, ownerActor(owner), product.ID, AdjustStockInput{Action: "double", Quantity: 1}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for unknown action, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, ownerActor(owner), product.ID, AdjustStockInput{Action: enums.StockActionIncrement}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for zero increment, got %v", err)
	}
}

func TestListPublicByStoreSlug(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	store := dbtest.MustCreateStore(t, conn, owner.ID, true)
	for i := 0; i < 3; i++ {
		dbtest.MustCreateProduct(t, conn, store.ID, "5.00", 1)
	}
	hidden := dbtest.MustCreateProduct(t, conn, store.ID, "5.00", 1)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", hidden.ID).Update("is_active", false).Error)
	ctx := context.Background()

	first, err := svc.ListPublicByStoreSlug(ctx, store.Slug, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Products, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, store.ID, first.Store.ID)

	second, err := svc.ListPublicByStoreSlug(ctx, store.Slug, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Products, 1)
	assert.Empty(t, second.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, p := range append(first.Products, second.Products...) {
		assert.NotEqual(t, hidden.ID, p.ID)
		assert.False(t, seen[p.ID], "product listed twice")
		seen[p.ID] = true
	}
}

func TestListPublicHidesInactiveStore(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	store := dbtest.MustCreateStore(t, conn, owner.ID, false)
	dbtest.MustCreateProduct(t, conn, store.ID, "5.00", 1)
	ctx := context.Background()

	if _, err := svc.ListPublicByStoreSlug(ctx, store.Slug, pagination.Params{}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for inactive store, got %v", err)
	}
	if _, err := svc.ListPublicByStoreSlug(ctx, "missing-store", pagination.Params{}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown slug, got %v", err)
	}
}
