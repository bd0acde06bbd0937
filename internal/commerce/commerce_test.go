package commerce

import (
	"path/filepath"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/elbrussoft/webstore/internal/commerce/provider"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway sqlite database carrying the full schema.
// A file under t.TempDir() is used instead of :memory: because gorm pools
// connections and every :memory: connection sees a different database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "webstore_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

type testStack struct {
	db        *gorm.DB
	catalog   *CatalogService
	customers *CustomerService
	orders    *OrderService
	payments  *PaymentService
	checkout  *CheckoutService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	db := newTestDB(t)
	productRepo := NewGormProductRepository(db)
	customerRepo := NewGormCustomerRepository(db)
	orderRepo := NewGormOrderRepository(db)
	paymentRepo := NewGormPaymentRepository(db)

	bus := EventBus.New()
	client := provider.NewSandboxClient("")

	catalog := NewCatalogService(productRepo, orderRepo)
	customers := NewCustomerService(customerRepo)
	orders := NewOrderService(db, orderRepo, bus)
	payments := NewPaymentService(db, paymentRepo, orderRepo, client, bus)
	checkout := NewCheckoutService(catalog, customers, orders, payments)

	return &testStack{
		db:        db,
		catalog:   catalog,
		customers: customers,
		orders:    orders,
		payments:  payments,
		checkout:  checkout,
	}
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int, active bool, category string) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      active,
		Category:      category,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func buyerInput(email string) CustomerInput {
	return CustomerInput{
		Email:     email,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     "555-0100",
	}
}

func shippingFixture() ShippingInput {
	return ShippingInput{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		AddressLine1: "1 Analytical Way",
		City:         "London",
		State:        "LDN",
		PostalCode:   "EC1A 1AA",
		Country:      "GB",
	}
}

func reloadProduct(t *testing.T, db *gorm.DB, id int64) *domain.Product {
	t.Helper()
	var p domain.Product
	require.NoError(t, db.First(&p, id).Error)
	return &p
}

func reloadOrder(t *testing.T, db *gorm.DB, id int64) *domain.Order {
	t.Helper()
	var o domain.Order
	require.NoError(t, db.First(&o, id).Error)
	return &o
}

func reloadPayment(t *testing.T, db *gorm.DB, providerID string) *domain.Payment {
	t.Helper()
	var p domain.Payment
	require.NoError(t, db.Where("provider_payment_id = ?", providerID).First(&p).Error)
	return &p
}
