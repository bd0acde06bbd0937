package commerce

import (
	"context"

	"github.com/elbrussoft/webstore/internal/domain"
	"gorm.io/gorm"
)

// ProductRepository handles database operations for catalog products
type ProductRepository interface {
	// Create inserts a new product
	Create(ctx context.Context, p *domain.Product) error

	// Save persists all fields of an existing product
	Save(ctx context.Context, p *domain.Product) error

	// UpdateFields applies a partial update
	UpdateFields(ctx context.Context, id int64, updates map[string]interface{}) error

	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// ListActive retrieves all active products
	ListActive(ctx context.Context) ([]domain.Product, error)

	// ListByCategory retrieves active products with an exact category match
	ListByCategory(ctx context.Context, category string) ([]domain.Product, error)

	// CountBySku counts products carrying sku, excluding excludeID
	CountBySku(ctx context.Context, sku string, excludeID int64) (int64, error)

	// Delete removes a product
	Delete(ctx context.Context, id int64) error
}

// CustomerRepository handles database operations for the customer directory
type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
}

// OrderRepository handles database operations for the order ledger
type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ItemsByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	PaymentsByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error)

	// CountItemsByProduct counts line items referencing a product
	CountItemsByProduct(ctx context.Context, productID int64) (int64, error)
}

// PaymentRepository handles database operations for payment records
type PaymentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByProviderID(ctx context.Context, providerPaymentID string) (*domain.Payment, error)
	UpdateFields(ctx context.Context, id int64, updates map[string]interface{}) error
}

// GormProductRepository is the GORM implementation of ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GORM-based product repository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *GormProductRepository) Save(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *GormProductRepository) UpdateFields(ctx context.Context, id int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) ListActive(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *GormProductRepository) ListByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND category = ?", true, category).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *GormProductRepository) CountBySku(ctx context.Context, sku string, excludeID int64) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Product{}).Where("sku = ?", sku)
	if excludeID > 0 {
		query = query.Where("id != ?", excludeID)
	}
	err := query.Count(&count).Error
	return count, err
}

func (r *GormProductRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.Product{}, id).Error
}

// GormCustomerRepository is the GORM implementation of CustomerRepository
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GORM-based customer repository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormCustomerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := r.db.WithContext(ctx).First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var c domain.Customer
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GormOrderRepository is the GORM implementation of OrderRepository
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM-based order repository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).First(&o, id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Where("order_number = ?", number).First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderRepository) ItemsByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *GormOrderRepository) PaymentsByOrder(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *GormOrderRepository) CountItemsByProduct(ctx context.Context, productID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.OrderItem{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, err
}

// GormPaymentRepository is the GORM implementation of PaymentRepository
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GORM-based payment repository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPaymentRepository) GetByProviderID(ctx context.Context, providerPaymentID string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).
		Where("provider_payment_id = ?", providerPaymentID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPaymentRepository) UpdateFields(ctx context.Context, id int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
