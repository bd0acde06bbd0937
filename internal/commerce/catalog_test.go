package commerce

import (
	"context"
	"testing"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCreateThenGetKeepsPriceExact(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	created, err := stack.catalog.Create(ctx, ProductInput{
		Name:          "Wireless Headphones",
		Description:   "Over-ear, 30h battery",
		Price:         decimal.RequireFromString("129.99"),
		StockQuantity: 12,
		Sku:           "WH-1000",
		Category:      "Electronics",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.True(t, created.IsActive, "is_active defaults to true")
	assert.False(t, created.CreatedAt.IsZero())

	got, err := stack.catalog.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("129.99")),
		"price must round-trip decimal-exact, got %s", got.Price)
	assert.Equal(t, 12, got.StockQuantity)
	require.NotNil(t, got.Sku)
	assert.Equal(t, "WH-1000", *got.Sku)
}

func TestCatalogCreateRejectsBadInput(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	longName := make([]byte, MaxProductNameLen+1)
	for i := range longName {
		longName[i] = 'x'
	}

	cases := []struct {
		name  string
		input ProductInput
	}{
		{"empty name", ProductInput{Price: decimal.New(1, 0)}},
		{"name too long", ProductInput{Name: string(longName), Price: decimal.New(1, 0)}},
		{"negative price", ProductInput{Name: "P", Price: decimal.RequireFromString("-0.01")}},
		{"price precision", ProductInput{Name: "P", Price: decimal.RequireFromString("1.999")}},
		{"negative stock", ProductInput{Name: "P", Price: decimal.New(1, 0), StockQuantity: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := stack.catalog.Create(ctx, tc.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "expected ErrInvalidInput, got %v", err)
			assert.Equal(t, "INVALID_REQUEST", ReasonCode(err))
		})
	}

	var count int64
	require.NoError(t, stack.db.Model(&domain.Product{}).Count(&count).Error)
	assert.Zero(t, count, "rejected input must not persist")
}

func TestCatalogSkuUniqueness(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	first, err := stack.catalog.Create(ctx, ProductInput{
		Name: "First", Price: decimal.New(10, 0), Sku: "DUP-1",
	})
	require.NoError(t, err)

	_, err = stack.catalog.Create(ctx, ProductInput{
		Name: "Second", Price: decimal.New(20, 0), Sku: "DUP-1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateSKU))

	// updating a product keeping its own sku is not a conflict
	_, err = stack.catalog.Update(ctx, first.ID, ProductInput{
		Name: "First Renamed", Price: decimal.New(11, 0), Sku: "DUP-1",
	})
	assert.NoError(t, err)

	other, err := stack.catalog.Create(ctx, ProductInput{
		Name: "Third", Price: decimal.New(30, 0), Sku: "DUP-2",
	})
	require.NoError(t, err)
	_, err = stack.catalog.Update(ctx, other.ID, ProductInput{
		Name: "Third", Price: decimal.New(30, 0), Sku: "DUP-1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateSKU))
}

func TestCatalogListActiveHidesInactive(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	seedProduct(t, stack.db, "Visible", "10.00", 1, true, "")
	seedProduct(t, stack.db, "Hidden", "10.00", 1, false, "")

	products, err := stack.catalog.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Visible", products[0].Name)
	for _, p := range products {
		assert.True(t, p.IsActive)
	}
}

func TestCatalogListByCategoryExactMatch(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	seedProduct(t, stack.db, "Mug", "8.00", 5, true, "Kitchen")
	seedProduct(t, stack.db, "Pan", "25.00", 5, true, "kitchen")
	seedProduct(t, stack.db, "Lamp", "40.00", 5, true, "Lighting")
	seedProduct(t, stack.db, "Retired Mug", "8.00", 5, false, "Kitchen")

	kitchen, err := stack.catalog.ListByCategory(ctx, "Kitchen")
	require.NoError(t, err)
	require.Len(t, kitchen, 1, "category match is case-sensitive and active-only")
	assert.Equal(t, "Mug", kitchen[0].Name)

	unknown, err := stack.catalog.ListByCategory(ctx, "Garage")
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestCatalogGetByIDNotFound(t *testing.T) {
	stack := newTestStack(t)

	_, err := stack.catalog.GetByID(context.Background(), 424242)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound))
	assert.Equal(t, "NOT_FOUND", ReasonCode(err))
}

func TestCatalogUpdate(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	p := seedProduct(t, stack.db, "Desk", "199.00", 4, true, "Office")

	inactive := false
	updated, err := stack.catalog.Update(ctx, p.ID, ProductInput{
		Name:          "Standing Desk",
		Price:         decimal.RequireFromString("249.50"),
		StockQuantity: 2,
		IsActive:      &inactive,
		Category:      "Office",
	})
	require.NoError(t, err)
	assert.Equal(t, "Standing Desk", updated.Name)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("249.50")))
	assert.Equal(t, 2, updated.StockQuantity)
	assert.False(t, updated.IsActive)

	got := reloadProduct(t, stack.db, p.ID)
	assert.Equal(t, "Standing Desk", got.Name)
	assert.False(t, got.IsActive)
}

func TestCatalogDeleteGuardsOrderHistory(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	referenced := seedProduct(t, stack.db, "Sold Once", "15.00", 3, true, "")
	free := seedProduct(t, stack.db, "Never Sold", "15.00", 3, true, "")
	require.NoError(t, stack.db.Create(&domain.OrderItem{
		ID:        1,
		OrderID:   1,
		ProductID: referenced.ID,
		Quantity:  1,
	}).Error)

	err := stack.catalog.Delete(ctx, referenced.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductReferenced))

	require.NoError(t, stack.catalog.Delete(ctx, free.ID))
	_, err = stack.catalog.GetByID(ctx, free.ID)
	assert.True(t, errors.Is(err, ErrProductNotFound))
}
