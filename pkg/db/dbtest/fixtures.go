package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

func MustCreateUser(t testing.TB, tx *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("mk_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		Name:         "Repo Tester",
		Role:         role,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func MustCreateStore(t testing.TB, tx *gorm.DB, ownerID uuid.UUID, active bool) *models.Store {
	t.Helper()
	id := uuid.New()
	store := &models.Store{
		ID:       id,
		OwnerID:  ownerID,
		Name:     "Repo Store",
		Slug:     "store-" + id.String()[:8],
		IsActive: active,
	}
	if err := tx.Create(store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

// MustCreateProduct inserts an active product; price is a decimal string such as "10.00".
func MustCreateProduct(t testing.TB, tx *gorm.DB, storeID uuid.UUID, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:       uuid.New(),
		StoreID:  storeID,
		Name:     "Repo Product",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// StockOf reloads the live stock of a product.
func StockOf(t testing.TB, tx *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := tx.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

// CountOutbox returns how many outbox rows of eventType were queued.
func CountOutbox(t testing.TB, tx *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	if err := tx.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	return count
}
