package commerce

import (
	"context"

	"github.com/elbrussoft/webstore/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PurchaseInput is the complete checkout payload: the product to buy, the
// buyer identity and the shipping snapshot.
type PurchaseInput struct {
	ProductID int64
	Customer  CustomerInput
	Shipping  ShippingInput
}

// CheckoutService coordinates a purchase across the catalog, the customer
// directory, the order ledger and the payment gateway.
type CheckoutService struct {
	catalog   *CatalogService
	customers *CustomerService
	orders    *OrderService
	payments  *PaymentService
}

// NewCheckoutService wires the checkout orchestrator.
func NewCheckoutService(catalog *CatalogService, customers *CustomerService, orders *OrderService, payments *PaymentService) *CheckoutService {
	return &CheckoutService{
		catalog:   catalog,
		customers: customers,
		orders:    orders,
		payments:  payments,
	}
}

// Purchase runs the checkout sequence: validate the product, resolve the
// customer, create the order and initiate the payment intent. Each step
// depends on the previous one succeeding; the typed error identifies which
// step refused. When intent creation fails after the order was written the
// order stays in created state for the admin console to cancel.
func (s *CheckoutService) Purchase(ctx context.Context, input PurchaseInput) (*CheckoutReceipt, error) {
	product, err := s.catalog.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, s.reject(err)
	}
	if !product.IsActive {
		return nil, s.reject(errors.Wrapf(ErrProductInactive, "product %d", product.ID))
	}
	if product.StockQuantity <= 0 {
		return nil, s.reject(errors.Wrapf(ErrOutOfStock, "product %d", product.ID))
	}

	customer, err := s.customers.GetOrCreate(ctx, input.Customer)
	if err != nil {
		return nil, s.reject(err)
	}

	order, err := s.orders.CreateOrder(ctx, customer, product, input.Shipping)
	if err != nil {
		// the atomic stock decrement can still refuse under a concurrent drain
		return nil, s.reject(err)
	}

	receipt, err := s.payments.CreateIntent(ctx, order, product, customer.Email)
	if err != nil {
		zap.L().Warn("checkout left order without payment intent",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return nil, s.reject(err)
	}
	return receipt, nil
}

func (s *CheckoutService) reject(err error) error {
	metrics.CounterIncr(metrics.CheckoutRejectedTotal, 1)
	return err
}
