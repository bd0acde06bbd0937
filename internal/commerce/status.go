// Package commerce implements the storefront core: catalog, customer
// directory, order ledger, payment gateway adapter and the checkout
// orchestrator. All multi-entity writes run in a single database
// transaction and lifecycle transitions are validated against explicit
// state tables.
package commerce

// Order lifecycle statuses.
const (
	OrderStatusCreated        = "created"
	OrderStatusPaymentPending = "payment_pending"
	OrderStatusPaid           = "paid"
	OrderStatusProcessing     = "processing"
	OrderStatusShipped        = "shipped"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// Payment statuses. All states after pending are terminal.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

var orderTransitions = map[string][]string{
	OrderStatusCreated:        {OrderStatusPaymentPending, OrderStatusCancelled},
	OrderStatusPaymentPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:           {OrderStatusProcessing},
	OrderStatusProcessing:     {OrderStatusShipped},
	OrderStatusShipped:        {OrderStatusDelivered},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

var paymentTransitions = map[string][]string{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusCompleted: {},
	PaymentStatusFailed:    {},
	PaymentStatusCancelled: {},
}

// CanTransitionOrder reports whether an order may move from one status to
// another. Unknown statuses never transition.
func CanTransitionOrder(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether a payment may move between statuses.
func CanTransitionPayment(from, to string) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	_, ok := orderTransitions[s]
	return ok
}

// OrderStatuses lists every known order status in lifecycle order.
func OrderStatuses() []string {
	return []string{
		OrderStatusCreated,
		OrderStatusPaymentPending,
		OrderStatusPaid,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}
