package commerce

import (
	"context"
	"testing"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// intentFixture drives the stack up to a pending payment.
func intentFixture(t *testing.T, stack *testStack, stock int) (*domain.Product, *domain.Order, *CheckoutReceipt) {
	t.Helper()
	ctx := context.Background()

	product := seedProduct(t, stack.db, "Mechanical Keyboard", "89.99", stock, true, "Electronics")
	customer, err := stack.customers.GetOrCreate(ctx, buyerInput("typist@example.com"))
	require.NoError(t, err)
	order, err := stack.orders.CreateOrder(ctx, customer, product, shippingFixture())
	require.NoError(t, err)
	receipt, err := stack.payments.CreateIntent(ctx, order, product, customer.Email)
	require.NoError(t, err)
	return product, order, receipt
}

func TestCreateIntentPersistsPaymentAndFlipsOrder(t *testing.T) {
	stack := newTestStack(t)
	_, order, receipt := intentFixture(t, stack, 3)

	assert.Regexp(t, `^PAY-[0-9A-F]{20}$`, receipt.PaymentID)
	assert.Equal(t, "https://sandbox.paypal.com/checkoutnow?token="+receipt.PaymentID, receipt.PaymentURL)
	assert.Equal(t, order.ID, receipt.OrderID)
	assert.Equal(t, PaymentStatusPending, receipt.Status)

	payment := reloadPayment(t, stack.db, receipt.PaymentID)
	assert.Equal(t, order.ID, payment.OrderID)
	assert.Equal(t, PaymentMethodPayPal, payment.PaymentMethod)
	assert.Equal(t, PaymentStatusPending, payment.Status)
	assert.Equal(t, receipt.PaymentID, payment.PaymentToken, "redirect token mirrors the provider handle")
	assert.True(t, payment.Amount.Equal(order.TotalAmount))
	assert.Nil(t, payment.CompletedAt)

	meta, err := DecodeMetadata(payment.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "Mechanical Keyboard", meta.ProductName)
	assert.Equal(t, "typist@example.com", meta.CustomerEmail)
	assert.Equal(t, "web_store", meta.CreatedVia)

	assert.Equal(t, OrderStatusPaymentPending, reloadOrder(t, stack.db, order.ID).Status)
}

func TestCreateIntentRefusesSettledOrder(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	product := seedProduct(t, stack.db, "Poster", "9.99", 2, true, "")
	customer, err := stack.customers.GetOrCreate(ctx, buyerInput("walls@example.com"))
	require.NoError(t, err)
	order, err := stack.orders.CreateOrder(ctx, customer, product, shippingFixture())
	require.NoError(t, err)

	require.NoError(t, stack.db.Model(&domain.Order{}).
		Where("id = ?", order.ID).
		Update("status", OrderStatusPaid).Error)
	order.Status = OrderStatusPaid

	_, err = stack.payments.CreateIntent(ctx, order, product, customer.Email)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
}

func TestCompleteUnknownPaymentWritesNothing(t *testing.T) {
	stack := newTestStack(t)
	_, order, _ := intentFixture(t, stack, 3)

	_, err := stack.payments.Complete(context.Background(), "PAY-0000000000DEADBEEF00", "PAYER1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPaymentNotFound))
	assert.Equal(t, "NOT_FOUND", ReasonCode(err))

	assert.Equal(t, OrderStatusPaymentPending, reloadOrder(t, stack.db, order.ID).Status,
		"a failed lookup must not touch the order")
}

func TestCompleteHappyPath(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	_, order, receipt := intentFixture(t, stack, 3)

	payment, err := stack.payments.Complete(ctx, receipt.PaymentID, "PAYER7BX2")
	require.NoError(t, err)

	assert.Equal(t, PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "PAYER7BX2", payment.PayerID)
	assert.Regexp(t, `^TXN-[0-9A-F]{16}$`, payment.TransactionID)
	require.NotNil(t, payment.CompletedAt)

	assert.Equal(t, OrderStatusPaid, reloadOrder(t, stack.db, order.ID).Status)
}

func TestDoubleCompleteKeepsFirstTransaction(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	_, order, receipt := intentFixture(t, stack, 3)

	first, err := stack.payments.Complete(ctx, receipt.PaymentID, "PAYER1")
	require.NoError(t, err)
	firstTxn := first.TransactionID
	firstStamp := first.CompletedAt

	_, err = stack.payments.Complete(ctx, receipt.PaymentID, "PAYER2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))

	payment := reloadPayment(t, stack.db, receipt.PaymentID)
	assert.Equal(t, PaymentStatusCompleted, payment.Status)
	assert.Equal(t, firstTxn, payment.TransactionID, "a replay must not mint a new transaction id")
	assert.Equal(t, "PAYER1", payment.PayerID)
	require.NotNil(t, payment.CompletedAt)
	assert.Equal(t, firstStamp.Unix(), payment.CompletedAt.Unix())
	assert.Equal(t, OrderStatusPaid, reloadOrder(t, stack.db, order.ID).Status)
}

func TestCancelAfterCompleteIsRejected(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	_, order, receipt := intentFixture(t, stack, 3)

	_, err := stack.payments.Complete(ctx, receipt.PaymentID, "PAYER1")
	require.NoError(t, err)

	_, err = stack.payments.Cancel(ctx, receipt.PaymentID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))

	assert.Equal(t, PaymentStatusCompleted, reloadPayment(t, stack.db, receipt.PaymentID).Status)
	assert.Equal(t, OrderStatusPaid, reloadOrder(t, stack.db, order.ID).Status,
		"the settled order must survive a late cancel callback")
}

func TestCompleteAfterCancelIsRejected(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	_, _, receipt := intentFixture(t, stack, 3)

	_, err := stack.payments.Cancel(ctx, receipt.PaymentID)
	require.NoError(t, err)

	_, err = stack.payments.Complete(ctx, receipt.PaymentID, "PAYER1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, PaymentStatusCancelled, reloadPayment(t, stack.db, receipt.PaymentID).Status)
}

func TestCancelPendingPaymentCancelsOrderAndRestoresStock(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	product, order, receipt := intentFixture(t, stack, 5)
	require.Equal(t, 4, reloadProduct(t, stack.db, product.ID).StockQuantity)

	payment, err := stack.payments.Cancel(ctx, receipt.PaymentID)
	require.NoError(t, err)

	assert.Equal(t, PaymentStatusCancelled, payment.Status)
	assert.Equal(t, OrderStatusCancelled, reloadOrder(t, stack.db, order.ID).Status)
	assert.Equal(t, 5, reloadProduct(t, stack.db, product.ID).StockQuantity)
}

func TestCancelLeavesAlreadyCancelledOrderAlone(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	product, order, receipt := intentFixture(t, stack, 5)

	// the admin console cancelled the order first, restoring stock
	_, err := stack.orders.SetStatus(ctx, order.ID, OrderStatusCancelled)
	require.NoError(t, err)
	require.Equal(t, 5, reloadProduct(t, stack.db, product.ID).StockQuantity)

	payment, err := stack.payments.Cancel(ctx, receipt.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusCancelled, payment.Status)
	assert.Equal(t, 5, reloadProduct(t, stack.db, product.ID).StockQuantity,
		"stock must not be restored twice")
}

func TestGetByProviderID(t *testing.T) {
	stack := newTestStack(t)
	_, _, receipt := intentFixture(t, stack, 2)

	payment, err := stack.payments.GetByProviderID(context.Background(), receipt.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, receipt.PaymentID, payment.ProviderPaymentID)

	_, err = stack.payments.GetByProviderID(context.Background(), "PAY-FFFFFFFFFFFFFFFFFFFF")
	assert.True(t, errors.Is(err, ErrPaymentNotFound))

	_, err = stack.payments.GetByProviderID(context.Background(), "")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestDecodeMetadata(t *testing.T) {
	meta, err := DecodeMetadata("")
	require.NoError(t, err)
	assert.Empty(t, meta.ProductName)

	meta, err = DecodeMetadata(`{"product_name":"Lamp","customer_email":"a@b.c","created_via":"web_store"}`)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", meta.ProductName)
	assert.Equal(t, "a@b.c", meta.CustomerEmail)
	assert.Equal(t, "web_store", meta.CreatedVia)

	_, err = DecodeMetadata("{broken")
	assert.Error(t, err)
}
