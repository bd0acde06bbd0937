package commerce

import (
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/shopspring/decimal"
)

// Event topics published by the commerce services. Subscribers (the
// notifier, metrics snapshots) attach through the application event bus.
const (
	EventOrderCreated     = "order.created"
	EventPaymentCreated   = "payment.created"
	EventPaymentCompleted = "payment.completed"
	EventPaymentCancelled = "payment.cancelled"
	EventPaymentFailed    = "payment.failed"
)

// OrderEvent is the payload carried on every commerce topic.
type OrderEvent struct {
	OrderID       int64
	OrderNumber   string
	CustomerEmail string
	ProductName   string
	Amount        decimal.Decimal
	Currency      string
	PaymentID     string // provider payment handle
	TransactionID string
	OccurredAt    time.Time
}

func publish(bus EventBus.Bus, topic string, evt OrderEvent) {
	if bus == nil {
		return
	}
	bus.Publish(topic, evt)
}
