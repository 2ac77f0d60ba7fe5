package products

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func TestLedgerDecrementStopsAtZero(t *testing.T) {
	conn := dbtest.Open(t).DB()
	ctx := context.Background()
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	store := dbtest.MustCreateStore(t, conn, owner.ID, true)
	product := dbtest.MustCreateProduct(t, conn, store.ID, "10.00", 5)

	ledger := NewLedger()
	if err := ledger.Decrement(ctx, conn, product.ID, 5); err != nil {
		t.Fatalf("decrement full stock: %v", err)
	}
	if got := dbtest.StockOf(t, conn, product.ID); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}

	err := ledger.Decrement(ctx, conn, product.ID, 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := dbtest.StockOf(t, conn, product.ID); got != 0 {
		t.Fatalf("stock changed after rejected decrement: %d", got)
	}
}

func TestLedgerDecrementRejectsNonPositive(t *testing.T) {
	conn := dbtest.Open(t).DB()
	err := NewLedger().Decrement(context.Background(), conn, uuid.New(), 0)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLedgerRestore(t *testing.T) {
	conn := dbtest.Open(t).DB()
	ctx := context.Background()
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	store := dbtest.MustCreateStore(t, conn, owner.ID, true)
	product := dbtest.MustCreateProduct(t, conn, store.ID, "4.50", 0)

	ledger := NewLedger()
	if err := ledger.Restore(ctx, conn, product.ID, 2); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := dbtest.StockOf(t, conn, product.ID); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}

	if err := ledger.Restore(ctx, conn, uuid.New(), 1); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestLedgerDeactivateByStore(t *testing.T) {
	conn := dbtest.Open(t).DB()
	ctx := context.Background()
	owner := dbtest.MustCreateUser(t, conn, enums.UserRoleBusiness)
	store := dbtest.MustCreateStore(t, conn, owner.ID, true)
	other := dbtest.MustCreateStore(t, conn, owner.ID, true)
	dbtest.MustCreateProduct(t, conn, store.ID, "1.00", 1)
	dbtest.MustCreateProduct(t, conn, store.ID, "2.00", 1)
	untouched := dbtest.MustCreateProduct(t, conn, other.ID, "3.00", 1)

	count, err := NewLedger().DeactivateByStore(ctx, conn, store.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 products deactivated, got %d", count)
	}

	repo := NewRepository(conn)
	reloaded, err := repo.FindByID(ctx, untouched.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.IsActive {
		t.Fatal("product of another store was deactivated")
	}

	again, err := NewLedger().DeactivateByStore(ctx, conn, store.ID)
	if err != nil {
		t.Fatalf("second deactivate: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected no rows on repeat, got %d", again)
	}
}
