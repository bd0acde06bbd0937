package commerce

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/pkg/common"
	"github.com/elbrussoft/webstore/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CurrencyUSD is the only currency the store charges in.
const CurrencyUSD = "USD"

// orderNumberAttempts bounds the order number probe loop before giving up.
const orderNumberAttempts = 5

// ShippingInput is the address snapshot captured at checkout. It is copied
// onto the order verbatim and never re-derived from the customer record.
type ShippingInput struct {
	FirstName    string
	LastName     string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
}

// OrderService owns the order ledger: creation, lookup and lifecycle
// transitions. Multi-entity writes run in one transaction.
type OrderService struct {
	db     *gorm.DB
	orders OrderRepository
	bus    EventBus.Bus
}

// NewOrderService creates an order service. bus may be nil in tests.
func NewOrderService(db *gorm.DB, orders OrderRepository, bus EventBus.Bus) *OrderService {
	return &OrderService{db: db, orders: orders, bus: bus}
}

// NewOrderNumber generates a date-stamped human-facing order number,
// e.g. ORD-20240115-A3F2B9C1. Uniqueness is enforced by the database
// index; callers probe and retry on the rare collision.
func NewOrderNumber() string {
	return "ORD-" + time.Now().UTC().Format("20060102") + "-" + common.UUIDHex(8)
}

// CreateOrder persists an order with a single quantity-1 line item, the
// unit price snapshotted from the product. Stock is decremented atomically
// inside the same transaction; a concurrent purchase draining the last
// unit surfaces as ErrOutOfStock with no rows written.
func (s *OrderService) CreateOrder(ctx context.Context, customer *domain.Customer, product *domain.Product, shipping ShippingInput) (*domain.Order, error) {
	if customer == nil || customer.ID == 0 {
		return nil, errors.Wrap(ErrMissingID, "customer id is not assigned")
	}
	if product == nil || product.ID == 0 {
		return nil, errors.Wrap(ErrMissingID, "product id is not assigned")
	}

	number, err := s.nextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &domain.Order{
		ID:                   common.UUIDint64(),
		OrderNumber:          number,
		CustomerID:           customer.ID,
		Status:               OrderStatusCreated,
		TotalAmount:          product.Price,
		Currency:             CurrencyUSD,
		ShippingFirstName:    shipping.FirstName,
		ShippingLastName:     shipping.LastName,
		ShippingAddressLine1: shipping.AddressLine1,
		ShippingAddressLine2: shipping.AddressLine2,
		ShippingCity:         shipping.City,
		ShippingState:        shipping.State,
		ShippingPostalCode:   shipping.PostalCode,
		ShippingCountry:      shipping.Country,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	item := &domain.OrderItem{
		ID:         common.UUIDint64(),
		OrderID:    order.ID,
		ProductID:  product.ID,
		Quantity:   1,
		UnitPrice:  product.Price,
		TotalPrice: product.Price,
		CreatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Product{}).
			Where("id = ? AND stock_quantity > 0", product.ID).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(ErrOutOfStock, "product %d", product.ID)
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return tx.Create(item).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.CounterIncr(metrics.OrdersCreatedTotal, 1)
	publish(s.bus, EventOrderCreated, OrderEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: customer.Email,
		ProductName:   product.Name,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
		OccurredAt:    now,
	})
	zap.L().Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("customer_id", customer.ID),
		zap.String("amount", order.TotalAmount.StringFixed(2)),
	)
	return order, nil
}

func (s *OrderService) nextOrderNumber(ctx context.Context) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		number := NewOrderNumber()
		var count int64
		err := s.db.WithContext(ctx).
			Model(&domain.Order{}).
			Where("order_number = ?", number).
			Count(&count).Error
		if err != nil {
			return "", errors.Wrap(err, "probe order number")
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", ErrOrderNumberExhausted
}

// GetByID returns the order or ErrOrderNotFound.
func (s *OrderService) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrOrderNotFound, "id %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	return order, nil
}

// GetByNumber returns the order matching a human-facing order number.
func (s *OrderService) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	order, err := s.orders.GetByNumber(ctx, number)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrOrderNotFound, "number %s", number)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	return order, nil
}

// Items returns the order's line items.
func (s *OrderService) Items(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	return s.orders.ItemsByOrder(ctx, orderID)
}

// Payments returns the order's payment attempts, oldest first.
func (s *OrderService) Payments(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	return s.orders.PaymentsByOrder(ctx, orderID)
}

// SetStatus moves an order along its lifecycle. Transitions not present in
// the state table are rejected with ErrIllegalTransition. Cancelling an
// order restores the stock its line items consumed.
func (s *OrderService) SetStatus(ctx context.Context, id int64, newStatus string) (*domain.Order, error) {
	if !ValidOrderStatus(newStatus) {
		return nil, errors.Wrapf(ErrInvalidInput, "unknown order status %q", newStatus)
	}
	order, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionOrder(order.Status, newStatus) {
		return nil, errors.Wrapf(ErrIllegalTransition, "order %s -> %s", order.Status, newStatus)
	}

	if newStatus == OrderStatusCancelled {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return applyOrderCancellation(tx, order.ID)
		})
	} else {
		err = s.db.WithContext(ctx).
			Model(&domain.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"status":     newStatus,
				"updated_at": time.Now(),
			}).Error
	}
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}

	zap.L().Info("order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", order.Status),
		zap.String("to", newStatus),
	)
	return s.GetByID(ctx, id)
}

// applyOrderCancellation marks the order cancelled and hands the stock its
// line items consumed back to the catalog. Runs inside the caller's
// transaction; used by both the order and payment services.
func applyOrderCancellation(tx *gorm.DB, orderID int64) error {
	var items []domain.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		err := tx.Model(&domain.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error
		if err != nil {
			return err
		}
	}
	return tx.Model(&domain.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     OrderStatusCancelled,
			"updated_at": time.Now(),
		}).Error
}
