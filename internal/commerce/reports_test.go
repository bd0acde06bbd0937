package commerce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryOverCompletedPayments(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	reports := NewReportService(stack.db)

	speaker := seedProduct(t, stack.db, "Bluetooth Speaker", "50.00", 10, true, "Audio")
	stand := seedProduct(t, stack.db, "Speaker Stand", "150.00", 10, true, "Audio")

	first, err := stack.checkout.Purchase(ctx, purchaseFixture(speaker.ID, "a@example.com"))
	require.NoError(t, err)
	_, err = stack.payments.Complete(ctx, first.PaymentID, "PAYERA")
	require.NoError(t, err)

	second, err := stack.checkout.Purchase(ctx, purchaseFixture(stand.ID, "b@example.com"))
	require.NoError(t, err)
	_, err = stack.payments.Complete(ctx, second.PaymentID, "PAYERB")
	require.NoError(t, err)

	// a third checkout stays pending and must not count as revenue
	_, err = stack.checkout.Purchase(ctx, purchaseFixture(speaker.ID, "c@example.com"))
	require.NoError(t, err)

	summary, err := reports.Summary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.Products)
	assert.EqualValues(t, 3, summary.Customers)
	assert.EqualValues(t, 3, summary.Orders)
	assert.EqualValues(t, 2, summary.PaidOrders)
	assert.EqualValues(t, 1, summary.PendingOrders)
	assert.EqualValues(t, 3, summary.Payments)
	assert.Equal(t, "200.00", summary.Revenue)
	assert.Equal(t, "100.00", summary.AveragePaid)
	assert.Equal(t, "100.00", summary.MedianPaid)
}

func TestSummaryEmptyStore(t *testing.T) {
	reports := NewReportService(newTestDB(t))

	summary, err := reports.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Orders)
	assert.Equal(t, "0.00", summary.Revenue)
	assert.Equal(t, "0.00", summary.MedianPaid)
}

func TestCategorySalesRollup(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	reports := NewReportService(stack.db)

	mug := seedProduct(t, stack.db, "Mug", "10.00", 10, true, "Kitchen")
	pan := seedProduct(t, stack.db, "Pan", "30.00", 10, true, "Kitchen")
	lamp := seedProduct(t, stack.db, "Lamp", "45.00", 10, true, "")

	for _, p := range []int64{mug.ID, pan.ID, lamp.ID} {
		receipt, err := stack.checkout.Purchase(ctx, purchaseFixture(p, "bulk@example.com"))
		require.NoError(t, err)
		_, err = stack.payments.Complete(ctx, receipt.PaymentID, "PAYERCAT")
		require.NoError(t, err)
	}
	// pending orders stay out of the rollup
	_, err := stack.checkout.Purchase(ctx, purchaseFixture(mug.ID, "bulk@example.com"))
	require.NoError(t, err)

	rows, err := reports.CategorySales(ctx)
	require.NoError(t, err)

	byCategory := map[string]float64{}
	for _, row := range rows {
		byCategory[row.Category] = row.Revenue
	}
	assert.InDelta(t, 40.0, byCategory["Kitchen"], 0.001)
	assert.InDelta(t, 45.0, byCategory["uncategorized"], 0.001)
}

func TestCategorySalesEmpty(t *testing.T) {
	reports := NewReportService(newTestDB(t))

	rows, err := reports.CategorySales(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDailySales(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()
	reports := NewReportService(stack.db)

	product := seedProduct(t, stack.db, "Daily Special", "20.00", 10, true, "")
	receipt, err := stack.checkout.Purchase(ctx, purchaseFixture(product.ID, "today@example.com"))
	require.NoError(t, err)
	_, err = stack.payments.Complete(ctx, receipt.PaymentID, "PAYERDAY")
	require.NoError(t, err)

	today, err := reports.DailySales(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, today.Orders)
	assert.EqualValues(t, 1, today.Completed)
	assert.Equal(t, "20.00", today.Revenue)

	yesterday, err := reports.DailySales(ctx, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, yesterday.Orders)
	assert.Equal(t, "0.00", yesterday.Revenue)
}
