package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/authz"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// restorer is the relative stock write the product ledger performs.
type restorer struct{}

func (restorer) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	res := tx.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	customer authz.Actor
	owner    authz.Actor
	store    *models.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	svc, err := NewService(ServiceParams{
		DB:     client,
		Repo:   NewRepository(conn),
		Stock:  restorer{},
		Outbox: outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
	})
	require.NoError(t, err)

	customer := dbtest.MustCreateUser(t, conn, enums.UserRoleCustomer)
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	return &fixture{
		svc:      svc,
		conn:     conn,
		customer: authz.Actor{UserID: customer.ID, Role: enums.UserRoleCustomer},
		owner:    authz.Actor{UserID: owner.ID, Role: enums.UserRoleBusiness},
		store:    dbtest.MustCreateStore(t, conn, owner.ID, true),
	}
}

// place writes an order the way checkout does: items snapshot the live price and stock is taken.
func (f *fixture) place(t *testing.T, customerID uuid.UUID, storeID uuid.UUID, lines map[*models.Product]int) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber: "ORD-TEST-" + uuid.NewString(),
		CustomerID:  customerID,
		StoreID:     storeID,
		Status:      enums.OrderStatusPending,
		TotalAmount: decimal.Zero,
	}
	for product, qty := range lines {
		total := product.Price.Mul(decimal.NewFromInt(int64(qty)))
		order.Items = append(order.Items, models.OrderItem{
			ProductID:  product.ID,
			Quantity:   qty,
			UnitPrice:  product.Price,
			TotalPrice: total,
		})
		order.TotalAmount = order.TotalAmount.Add(total)
		require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", product.ID).
			Update("stock", gorm.Expr("stock - ?", qty)).Error)
	}
	require.NoError(t, NewRepository(f.conn).CreateOrder(context.Background(), order))
	return order
}

func (f *fixture) status(t *testing.T, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", id).Error)
	return order.Status
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	p1 := dbtest.MustCreateProduct(t, f.conn, f.store.ID, "10.00", 5)
	p2 := dbtest.MustCreateProduct(t, f.conn, f.store.ID, "3.00", 1)
	order := f.place(t, f.customer.UserID, f.store.ID, map[*models.Product]int{p1: 2, p2: 1})
	require.Equal(t, 3, dbtest.StockOf(t, f.conn, p1.ID))
	require.Equal(t, 0, dbtest.StockOf(t, f.conn, p2.ID))

	dto, err := f.svc.Transition(context.Background(), f.customer, TransitionInput{
		OrderID: order.ID,
		Action:  enums.OrderActionCancel,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, dto.Status)
	assert.NotNil(t, dto.CanceledAt)

	assert.Equal(t, 5, dbtest.StockOf(t, f.conn, p1.ID))
	assert.Equal(t, 1, dbtest.StockOf(t, f.conn, p2.ID))
	assert.Equal(t, enums.OrderStatusCancelled, f.status(t, order.ID))
	assert.EqualValues(t, 1, dbtest.CountOutbox(t, f.conn, enums.EventOrderCanceled))
}

func TestLifecycleForwardAndRepeatConflicts(t *testing.T) {
	f := newFixture(t)
	p := dbtest.MustCreateProduct(t, f.conn, f.store.ID, "10.00", 5)
	order := f.place(t, f.customer.UserID, f.store.ID, map[*models.Product]int{p: 1})
	ctx := context.Background()

	dto, err := f.svc.Transition(ctx, f.owner, TransitionInput{OrderID: order.ID, Action: enums.OrderActionProcess})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, dto.Status)

	dto, err = f.svc.Transition(ctx, f.owner, TransitionInput{OrderID: order.ID, Action: enums.OrderActionComplete})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, dto.Status)
	assert.NotNil(t, dto.CompletedAt)

	_, err = f.svc.Transition(ctx, f.owner, TransitionInput{OrderID: order.ID, Action: enums.OrderActionComplete})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "second complete: %v", err)

	_, err = f.svc.Transition(ctx, f.owner, TransitionInput{OrderID: order.ID, Action: enums.OrderActionCancel})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "cancel completed: %v", err)

	assert.Equal(t, enums.OrderStatusCompleted, f.status(t, order.ID))
	assert.Equal(t, 4, dbtest.StockOf(t, f.conn, p.ID))
	assert.EqualValues(t, 2, dbtest.CountOutbox(t, f.conn, enums.EventOrderStateChanged))
	assert.Zero(t, dbtest.CountOutbox(t, f.conn, enums.EventOrderCanceled))
}

func TestCompleteRequiresProcessing(t *testing.T) {
	f := newFixture(t)
	p := dbtest.MustCreateProduct(t, f.conn, f.store.ID, "10.00", 5)
	order := f.place(t, f.customer.UserID, f.store.ID, map[*models.Product]int{p: 1})

	_, err := f.svc.Transition(context.Background(), f.owner, TransitionInput{OrderID: order.ID, Action: enums.OrderActionComplete})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got := f.status(t, order.ID); got != enums.OrderStatusPending {
		t.Fatalf("status changed to %s", got)
	}
}

func TestTransitionAuthorization(t *testing.T) {
	f := newFixture(t)
	p := dbtest.MustCreateProduct(t, f.conn, f.store.ID, "10.00", 5)
	order := f.place(t, f.customer.UserID, f.store.ID, map[*models.Product]int{p: 1})
	ctx := context.Background()

	strangerUser := dbtest.MustCreateUser(t, f.conn, enums.UserRoleCustomer)
	rivalUser := dbtest.MustCreateUser(t, f.conn, enums.UserRoleBusiness)
	stranger := authz.Actor{UserID: strangerUser.ID, Role: enums.UserRoleCustomer}
	rival := authz.Actor{UserID: rivalUser.ID, Role: enums.UserRoleBusiness}

	cases := []struct {
		name   string
		actor  authz.Actor
		action enums.OrderAction
		code   pkgerrors.Code
	}{
		{"customer cannot process", f.customer, enums.OrderActionProcess, pkgerrors.CodeForbidden},
		{"other customer cannot cancel", stranger, enums.OrderActionCancel, pkgerrors.CodeForbidden},
		{"other business cannot process", rival, enums.OrderActionProcess, pkgerrors.CodeForbidden},
		{"system cannot process", authz.SystemActor(), enums.OrderActionProcess, pkgerrors.CodeForbidden},
		{"unknown action", f.owner, enums.OrderAction("ship"), pkgerrors.CodeValidation},
		{"anonymous", authz.Actor{Role: enums.UserRoleCustomer}, enums.OrderActionCancel, pkgerrors.CodeUnauthorized},
	}
	for _, tc := range cases {
		_, err := f.svc.Transition(ctx, tc.actor, TransitionInput{OrderID: order.ID, Action: tc.action})
		assert.Equal(t, tc.code, pkgerrors.CodeOf(err), tc.name)
	}
	assert.Equal(t, enums.OrderStatusPending, f.status(t, order.ID))

	_, err := f.svc.Transition(ctx, f.owner, TransitionInput{OrderID: uuid.New(), Action: enums.OrderActionProcess})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSystemCancelHonorsRequiredStatus(t *testing.T) {
	f := newFixture(t)
	p := dbtest.MustCreateProduct(t, f.conn, f.store.ID, "10.00", 5)
	pending := f.place(t, f.customer.UserID, f.store.ID, map[*models.Product]int{p: 2})
	moved := f.place(t, f.customer.UserID, f.store.ID, map[*models.Product]int{p: 1})
	ctx := context.Background()

	_, err := f.svc.Transition(ctx, f.owner, TransitionInput{OrderID: moved.ID, Action: enums.OrderActionProcess})
	require.NoError(t, err)

	expire := func(id uuid.UUID) error {
		_, err := f.svc.Transition(ctx, authz.SystemActor(), TransitionInput{
			OrderID:       id,
			Action:        enums.OrderActionCancel,
			Reason:        "expired",
			RequireStatus: enums.OrderStatusPending,
		})
		return err
	}
	require.NoError(t, expire(pending.ID))
	assert.True(t, pkgerrors.IsCode(expire(moved.ID), pkgerrors.CodeStateConflict))

	assert.Equal(t, enums.OrderStatusProcessing, f.status(t, moved.ID))
	assert.Equal(t, 4, dbtest.StockOf(t, f.conn, p.ID))
}

func TestGetOrderVisibility(t *testing.T) {
	f := newFixture(t)
	p := dbtest.MustCreateProduct(t, f.conn, f.store.ID, "2.50", 5)
	order := f.place(t, f.customer.UserID, f.store.ID, map[*models.Product]int{p: 2})
	ctx := context.Background()

	dto, err := f.svc.Get(ctx, f.customer, order.ID)
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.True(t, dto.Items[0].TotalPrice.Equal(decimal.RequireFromString("5.00")))

	_, err = f.svc.Get(ctx, f.owner, order.ID)
	require.NoError(t, err)

	stranger := dbtest.MustCreateUser(t, f.conn, enums.UserRoleCustomer)
	_, err = f.svc.Get(ctx, authz.Actor{UserID: stranger.ID, Role: enums.UserRoleCustomer}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Get(ctx, f.customer, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListIsRoleScoped(t *testing.T) {
	f := newFixture(t)
	p := dbtest.MustCreateProduct(t, f.conn, f.store.ID, "1.00", 50)
	otherOwner := dbtest.MustCreateUser(t, f.conn, enums.UserRoleBusiness)
	otherStore := dbtest.MustCreateStore(t, f.conn, otherOwner.ID, true)
	q := dbtest.MustCreateProduct(t, f.conn, otherStore.ID, "1.00", 50)
	otherCustomer := dbtest.MustCreateUser(t, f.conn, enums.UserRoleCustomer)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.place(t, f.customer.UserID, f.store.ID, map[*models.Product]int{p: 1})
	}
	f.place(t, f.customer.UserID, otherStore.ID, map[*models.Product]int{q: 1})
	f.place(t, otherCustomer.ID, f.store.ID, map[*models.Product]int{p: 1})

	mine, err := f.svc.List(ctx, f.customer, ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, mine.Orders, 4)
	for _, o := range mine.Orders {
		assert.Equal(t, f.customer.UserID, o.CustomerID)
	}

	owned, err := f.svc.List(ctx, f.owner, ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, owned.Orders, 4)
	for _, o := range owned.Orders {
		assert.Equal(t, f.store.ID, o.StoreID)
	}

	foreign := otherStore.ID
	none, err := f.svc.List(ctx, f.owner, ListFilter{StoreID: &foreign}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, none.Orders)

	_, err = f.svc.List(ctx, f.customer, ListFilter{StoreID: &foreign}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListPaginatesAndFilters(t *testing.T) {
	f := newFixture(t)
	p := dbtest.MustCreateProduct(t, f.conn, f.store.ID, "1.00", 50)
	ctx := context.Background()

	var first *models.Order
	for i := 0; i < 5; i++ {
		o := f.place(t, f.customer.UserID, f.store.ID, map[*models.Product]int{p: 1})
		if first == nil {
			first = o
		}
	}
	_, err := f.svc.Transition(ctx, f.owner, TransitionInput{OrderID: first.ID, Action: enums.OrderActionProcess})
	require.NoError(t, err)

	seen := map[uuid.UUID]bool{}
	params := pagination.Params{Limit: 2}
	pages := 0
	for {
		page, err := f.svc.List(ctx, f.customer, ListFilter{}, params)
		require.NoError(t, err)
		pages++
		for _, o := range page.Orders {
			assert.False(t, seen[o.ID], "order %s listed twice", o.ID)
			seen[o.ID] = true
		}
		if page.NextCursor == "" {
			break
		}
		params.Cursor = page.NextCursor
	}
	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 5)

	processing := enums.OrderStatusProcessing
	filtered, err := f.svc.List(ctx, f.owner, ListFilter{Status: &processing}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, filtered.Orders, 1)
	assert.Equal(t, first.ID, filtered.Orders[0].ID)

	bogus := enums.OrderStatus("SHIPPED")
	_, err = f.svc.List(ctx, f.owner, ListFilter{Status: &bogus}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.List(ctx, f.customer, ListFilter{}, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNextStatusTable(t *testing.T) {
	allowed := map[enums.OrderStatus]map[enums.OrderAction]enums.OrderStatus{
		enums.OrderStatusPending: {
			enums.OrderActionProcess: enums.OrderStatusProcessing,
			enums.OrderActionCancel:  enums.OrderStatusCancelled,
		},
		enums.OrderStatusProcessing: {
			enums.OrderActionComplete: enums.OrderStatusCompleted,
			enums.OrderActionCancel:   enums.OrderStatusCancelled,
		},
		enums.OrderStatusCompleted: {},
		enums.OrderStatusCancelled: {},
	}
	actions := []enums.OrderAction{enums.OrderActionProcess, enums.OrderActionComplete, enums.OrderActionCancel}
	for from, ok := range allowed {
		for _, action := range actions {
			next, err := NextStatus(from, action)
			want, permitted := ok[action]
			if permitted {
				if err != nil || next != want {
					t.Fatalf("%s --%s--> expected %s, got %s (%v)", from, action, want, next, err)
				}
				continue
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				t.Fatalf("%s --%s--> expected state conflict, got %v", from, action, err)
			}
		}
	}
}
