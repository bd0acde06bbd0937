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

func purchaseFixture(productID int64, email string) PurchaseInput {
	return PurchaseInput{
		ProductID: productID,
		Customer:  buyerInput(email),
		Shipping:  shippingFixture(),
	}
}

func TestPurchaseEndToEnd(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	product := seedProduct(t, stack.db, "Studio Monitor", "99.99", 5, true, "Audio")

	receipt, err := stack.checkout.Purchase(ctx, purchaseFixture(product.ID, "mixer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, receipt.Status)
	assert.Regexp(t, `^PAY-[0-9A-F]{20}$`, receipt.PaymentID)
	assert.Contains(t, receipt.PaymentURL, "checkoutnow?token="+receipt.PaymentID)

	order := reloadOrder(t, stack.db, receipt.OrderID)
	assert.Equal(t, OrderStatusPaymentPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("99.99")))

	items, err := stack.orders.Items(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].TotalPrice.Equal(decimal.RequireFromString("99.99")))
	assert.Equal(t, 4, reloadProduct(t, stack.db, product.ID).StockQuantity)

	payment, err := stack.payments.Complete(ctx, receipt.PaymentID, "PAYERE2E1")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, payment.Status)
	assert.NotEmpty(t, payment.TransactionID)
	assert.Equal(t, OrderStatusPaid, reloadOrder(t, stack.db, order.ID).Status)
}

func TestPurchaseUnknownProduct(t *testing.T) {
	stack := newTestStack(t)

	_, err := stack.checkout.Purchase(context.Background(), purchaseFixture(404404, "ghost@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestPurchaseInactiveProduct(t *testing.T) {
	stack := newTestStack(t)
	product := seedProduct(t, stack.db, "Retired SKU", "10.00", 9, false, "")

	_, err := stack.checkout.Purchase(context.Background(), purchaseFixture(product.ID, "late@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductInactive))
	assert.Equal(t, "NOT_ACTIVE", ReasonCode(err))
}

func TestPurchaseOutOfStockLeavesNoOrder(t *testing.T) {
	stack := newTestStack(t)
	product := seedProduct(t, stack.db, "Sold Out Drop", "120.00", 0, true, "")

	_, err := stack.checkout.Purchase(context.Background(), purchaseFixture(product.ID, "sniper@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfStock))

	var orders, payments int64
	require.NoError(t, stack.db.Model(&domain.Order{}).Count(&orders).Error)
	require.NoError(t, stack.db.Model(&domain.Payment{}).Count(&payments).Error)
	assert.Zero(t, orders)
	assert.Zero(t, payments)
}

func TestPurchaseDrainsStockToZero(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	product := seedProduct(t, stack.db, "Limited Print", "60.00", 2, true, "")

	_, err := stack.checkout.Purchase(ctx, purchaseFixture(product.ID, "one@example.com"))
	require.NoError(t, err)
	_, err = stack.checkout.Purchase(ctx, purchaseFixture(product.ID, "two@example.com"))
	require.NoError(t, err)

	_, err = stack.checkout.Purchase(ctx, purchaseFixture(product.ID, "three@example.com"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfStock))
	assert.Equal(t, 0, reloadProduct(t, stack.db, product.ID).StockQuantity)
}

func TestPurchaseReusesCustomerByEmail(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	product := seedProduct(t, stack.db, "Coffee Beans", "18.50", 10, true, "Kitchen")

	first, err := stack.checkout.Purchase(ctx, purchaseFixture(product.ID, "regular@example.com"))
	require.NoError(t, err)
	second, err := stack.checkout.Purchase(ctx, purchaseFixture(product.ID, "regular@example.com"))
	require.NoError(t, err)

	var customers int64
	require.NoError(t, stack.db.Model(&domain.Customer{}).Count(&customers).Error)
	assert.EqualValues(t, 1, customers)

	assert.Equal(t, reloadOrder(t, stack.db, first.OrderID).CustomerID,
		reloadOrder(t, stack.db, second.OrderID).CustomerID)
}
