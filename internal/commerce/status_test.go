package commerce

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestOrderTransitionTable(t *testing.T) {
	allowed := []struct{ from, to string }{
		{OrderStatusCreated, OrderStatusPaymentPending},
		{OrderStatusCreated, OrderStatusCancelled},
		{OrderStatusPaymentPending, OrderStatusPaid},
		{OrderStatusPaymentPending, OrderStatusCancelled},
		{OrderStatusPaid, OrderStatusProcessing},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusDelivered},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransitionOrder(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to string }{
		{OrderStatusCreated, OrderStatusPaid},
		{OrderStatusPaid, OrderStatusCancelled},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusCreated},
		{OrderStatusCancelled, OrderStatusPaymentPending},
		{"bogus", OrderStatusPaid},
		{OrderStatusCreated, "bogus"},
	}
	for _, tc := range denied {
		assert.False(t, CanTransitionOrder(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestPaymentTransitionTable(t *testing.T) {
	for _, to := range []string{PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled} {
		assert.True(t, CanTransitionPayment(PaymentStatusPending, to))
	}
	for _, from := range []string{PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled} {
		for _, to := range []string{PaymentStatusPending, PaymentStatusCompleted, PaymentStatusCancelled} {
			assert.False(t, CanTransitionPayment(from, to), "%s -> %s", from, to)
		}
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range OrderStatuses() {
		assert.True(t, ValidOrderStatus(s))
	}
	assert.False(t, ValidOrderStatus("unknown"))
	assert.False(t, ValidOrderStatus(""))
}

func TestReasonCodes(t *testing.T) {
	cases := map[string]error{
		"NOT_FOUND":          ErrProductNotFound,
		"INVALID_REQUEST":    ErrInvalidInput,
		"NOT_ACTIVE":         ErrProductInactive,
		"OUT_OF_STOCK":       ErrOutOfStock,
		"SKU_EXISTS":         ErrDuplicateSKU,
		"PRODUCT_REFERENCED": ErrProductReferenced,
		"MISSING_ID":         ErrMissingID,
		"ILLEGAL_TRANSITION": ErrIllegalTransition,
	}
	for code, sentinel := range cases {
		assert.Equal(t, code, ReasonCode(sentinel))
		assert.Equal(t, code, ReasonCode(errors.Wrap(sentinel, "wrapped context")),
			"reason codes must survive wrapping")
	}
	assert.Equal(t, "INTERNAL", ReasonCode(errors.New("disk on fire")))
}
