package commerce

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/elbrussoft/webstore/internal/commerce/provider"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/pkg/common"
	"github.com/elbrussoft/webstore/pkg/metrics"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentMethodPayPal is the only provider method the store offers.
const PaymentMethodPayPal = "paypal"

// createdViaWebStore tags payments originating from the public storefront.
const createdViaWebStore = "web_store"

// PaymentMetadata is the audit blob stored with every payment and forwarded
// to the provider.
type PaymentMetadata struct {
	ProductName   string `json:"product_name" mapstructure:"product_name"`
	CustomerEmail string `json:"customer_email" mapstructure:"customer_email"`
	CreatedVia    string `json:"created_via" mapstructure:"created_via"`
}

// CheckoutReceipt is the redirect handle handed back to the storefront
// after a payment intent is created.
type CheckoutReceipt struct {
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url"`
	OrderID    int64  `json:"order_id,string"`
	Status     string `json:"status"`
}

// PaymentService drives the payment lifecycle against the external
// provider and keeps the linked order status in step.
type PaymentService struct {
	db       *gorm.DB
	payments PaymentRepository
	orders   OrderRepository
	client   provider.Client
	bus      EventBus.Bus
}

// NewPaymentService creates a payment service. bus may be nil in tests.
func NewPaymentService(db *gorm.DB, payments PaymentRepository, orders OrderRepository, client provider.Client, bus EventBus.Bus) *PaymentService {
	return &PaymentService{db: db, payments: payments, orders: orders, client: client, bus: bus}
}

// CreateIntent initiates a payment with the provider, persists the pending
// payment and moves the order to payment_pending, both in one transaction.
// The provider call happens before any write so a provider rejection leaves
// the ledger untouched.
func (s *PaymentService) CreateIntent(ctx context.Context, order *domain.Order, product *domain.Product, customerEmail string) (*CheckoutReceipt, error) {
	if order == nil || order.ID == 0 {
		return nil, errors.Wrap(ErrMissingID, "order id is not assigned")
	}
	if product == nil || product.ID == 0 {
		return nil, errors.Wrap(ErrMissingID, "product id is not assigned")
	}
	if !CanTransitionOrder(order.Status, OrderStatusPaymentPending) {
		return nil, errors.Wrapf(ErrIllegalTransition, "order %s -> %s", order.Status, OrderStatusPaymentPending)
	}

	meta := PaymentMetadata{
		ProductName:   product.Name,
		CustomerEmail: customerEmail,
		CreatedVia:    createdViaWebStore,
	}
	blob, err := jsoniter.MarshalToString(meta)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payment metadata")
	}

	res, err := s.client.CreatePayment(ctx, &provider.PaymentRequest{
		Amount:      order.TotalAmount,
		Currency:    order.Currency,
		Description: product.Name,
		Metadata: map[string]interface{}{
			"product_name":   meta.ProductName,
			"customer_email": meta.CustomerEmail,
			"created_via":    meta.CreatedVia,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create provider payment")
	}

	now := time.Now()
	payment := &domain.Payment{
		ID:                common.UUIDint64(),
		OrderID:           order.ID,
		PaymentMethod:     PaymentMethodPayPal,
		Status:            PaymentStatusPending,
		Amount:            order.TotalAmount,
		Currency:          order.Currency,
		ProviderPaymentID: res.PaymentID,
		PaymentToken:      res.PaymentID,
		Metadata:          blob,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"status":     OrderStatusPaymentPending,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "persist payment intent")
	}

	metrics.CounterIncr(metrics.PaymentsCreatedTotal, 1)
	publish(s.bus, EventPaymentCreated, OrderEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: customerEmail,
		ProductName:   product.Name,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		PaymentID:     payment.ProviderPaymentID,
		OccurredAt:    now,
	})
	zap.L().Info("payment intent created",
		zap.String("payment_id", payment.ProviderPaymentID),
		zap.Int64("order_id", order.ID),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)

	return &CheckoutReceipt{
		PaymentID:  payment.ProviderPaymentID,
		PaymentURL: res.RedirectURL,
		OrderID:    order.ID,
		Status:     payment.Status,
	}, nil
}

// Complete captures an approved payment and moves the linked order to paid.
// Completing a payment twice, or after it was cancelled, is rejected with
// ErrIllegalTransition; the stored transaction id is never regenerated.
func (s *PaymentService) Complete(ctx context.Context, providerPaymentID, payerID string) (*domain.Payment, error) {
	payment, err := s.GetByProviderID(ctx, providerPaymentID)
	if err != nil {
		return nil, err
	}
	if !CanTransitionPayment(payment.Status, PaymentStatusCompleted) {
		return nil, errors.Wrapf(ErrIllegalTransition, "payment %s -> %s", payment.Status, PaymentStatusCompleted)
	}
	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrOrderNotFound, "id %d", payment.OrderID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	if !CanTransitionOrder(order.Status, OrderStatusPaid) {
		return nil, errors.Wrapf(ErrIllegalTransition, "order %s -> %s", order.Status, OrderStatusPaid)
	}

	res, err := s.client.ExecutePayment(ctx, providerPaymentID, payerID)
	if err != nil {
		s.markFailed(ctx, payment, err)
		return nil, errors.Wrap(err, "execute provider payment")
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.Payment{}).
			Where("id = ?", payment.ID).
			Updates(map[string]interface{}{
				"status":         PaymentStatusCompleted,
				"payer_id":       payerID,
				"transaction_id": res.TransactionID,
				"completed_at":   now,
				"updated_at":     now,
			}).Error
		if err != nil {
			return err
		}
		return tx.Model(&domain.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"status":     OrderStatusPaid,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "persist payment completion")
	}

	metrics.CounterIncr(metrics.PaymentsCompletedTotal, 1)
	meta, _ := DecodeMetadata(payment.Metadata)
	publish(s.bus, EventPaymentCompleted, OrderEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: meta.CustomerEmail,
		ProductName:   meta.ProductName,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		PaymentID:     payment.ProviderPaymentID,
		TransactionID: res.TransactionID,
		OccurredAt:    now,
	})
	zap.L().Info("payment completed",
		zap.String("payment_id", payment.ProviderPaymentID),
		zap.String("transaction_id", res.TransactionID),
		zap.Int64("order_id", order.ID),
	)
	return s.payments.GetByID(ctx, payment.ID)
}

// Cancel voids a pending payment. The linked order is cancelled too when
// its own lifecycle allows it; stock consumed by the order is restored.
func (s *PaymentService) Cancel(ctx context.Context, providerPaymentID string) (*domain.Payment, error) {
	payment, err := s.GetByProviderID(ctx, providerPaymentID)
	if err != nil {
		return nil, err
	}
	if !CanTransitionPayment(payment.Status, PaymentStatusCancelled) {
		return nil, errors.Wrapf(ErrIllegalTransition, "payment %s -> %s", payment.Status, PaymentStatusCancelled)
	}
	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrOrderNotFound, "id %d", payment.OrderID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}

	if err := s.client.CancelPayment(ctx, providerPaymentID); err != nil {
		return nil, errors.Wrap(err, "cancel provider payment")
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&domain.Payment{}).
			Where("id = ?", payment.ID).
			Updates(map[string]interface{}{
				"status":     PaymentStatusCancelled,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}
		// the order may already be cancelled through the admin console
		if CanTransitionOrder(order.Status, OrderStatusCancelled) {
			return applyOrderCancellation(tx, order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "persist payment cancellation")
	}

	metrics.CounterIncr(metrics.PaymentsCancelledTotal, 1)
	meta, _ := DecodeMetadata(payment.Metadata)
	publish(s.bus, EventPaymentCancelled, OrderEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: meta.CustomerEmail,
		ProductName:   meta.ProductName,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		PaymentID:     payment.ProviderPaymentID,
		OccurredAt:    now,
	})
	zap.L().Info("payment cancelled",
		zap.String("payment_id", payment.ProviderPaymentID),
		zap.Int64("order_id", order.ID),
	)
	return s.payments.GetByID(ctx, payment.ID)
}

// GetByProviderID returns the payment matching a provider handle or
// ErrPaymentNotFound.
func (s *PaymentService) GetByProviderID(ctx context.Context, providerPaymentID string) (*domain.Payment, error) {
	if providerPaymentID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "payment id is required")
	}
	payment, err := s.payments.GetByProviderID(ctx, providerPaymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrPaymentNotFound, "provider id %s", providerPaymentID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query payment")
	}
	return payment, nil
}

// markFailed records a provider capture rejection. Best effort: the
// rejection itself is the caller's error, a bookkeeping failure only logs.
func (s *PaymentService) markFailed(ctx context.Context, payment *domain.Payment, cause error) {
	err := s.payments.UpdateFields(ctx, payment.ID, map[string]interface{}{
		"status":     PaymentStatusFailed,
		"updated_at": time.Now(),
	})
	if err != nil {
		zap.L().Error("mark payment failed",
			zap.String("payment_id", payment.ProviderPaymentID),
			zap.Error(err))
	}
	metrics.CounterIncr(metrics.PaymentsFailedTotal, 1)
	meta, _ := DecodeMetadata(payment.Metadata)
	publish(s.bus, EventPaymentFailed, OrderEvent{
		OrderID:       payment.OrderID,
		CustomerEmail: meta.CustomerEmail,
		ProductName:   meta.ProductName,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		PaymentID:     payment.ProviderPaymentID,
		OccurredAt:    time.Now(),
	})
	zap.L().Warn("payment failed",
		zap.String("payment_id", payment.ProviderPaymentID),
		zap.Error(cause))
}

// DecodeMetadata parses a stored metadata blob into its typed view. An
// empty blob yields a zero value, not an error.
func DecodeMetadata(blob string) (PaymentMetadata, error) {
	var meta PaymentMetadata
	if blob == "" {
		return meta, nil
	}
	var raw map[string]interface{}
	if err := jsoniter.UnmarshalFromString(blob, &raw); err != nil {
		return meta, errors.Wrap(err, "parse payment metadata")
	}
	if err := mapstructure.Decode(raw, &meta); err != nil {
		return meta, errors.Wrap(err, "decode payment metadata")
	}
	return meta, nil
}
