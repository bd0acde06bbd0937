package commerce

import (
	"context"
	"strings"
	"time"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Catalog field limits.
const (
	MaxProductNameLen        = 200
	MaxProductDescriptionLen = 2000
	MaxProductSkuLen         = 50
	MaxProductCategoryLen    = 100
)

// ProductInput carries the attributes accepted when creating a product.
// IsActive defaults to true when nil.
type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	IsActive      *bool
	Sku           string
	Category      string
	ImageURL      string
}

// CatalogService provides product lookup and administration.
type CatalogService struct {
	products ProductRepository
	orders   OrderRepository
}

// NewCatalogService creates a catalog service over the given repositories.
func NewCatalogService(products ProductRepository, orders OrderRepository) *CatalogService {
	return &CatalogService{products: products, orders: orders}
}

// ListActive returns all active products.
func (s *CatalogService) ListActive(ctx context.Context) ([]domain.Product, error) {
	return s.products.ListActive(ctx)
}

// ListByCategory returns active products whose category matches exactly.
// Category comparison is case-sensitive; an unknown category yields an
// empty slice, not an error.
func (s *CatalogService) ListByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return s.products.ListByCategory(ctx, category)
}

// GetByID returns the product or ErrProductNotFound. Absence is a typed
// sentinel, never a nil-with-nil-error pair.
func (s *CatalogService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrProductNotFound, "id %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query product")
	}
	return p, nil
}

// Create validates input constraints and persists a new product.
func (s *CatalogService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Sku = strings.TrimSpace(input.Sku)
	input.Category = strings.TrimSpace(input.Category)

	if err := validateProductInput(&input); err != nil {
		return nil, err
	}

	if input.Sku != "" {
		count, err := s.products.CountBySku(ctx, input.Sku, 0)
		if err != nil {
			return nil, errors.Wrap(err, "check sku uniqueness")
		}
		if count > 0 {
			return nil, errors.Wrapf(ErrDuplicateSKU, "sku %q", input.Sku)
		}
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	now := time.Now()
	p := &domain.Product{
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		IsActive:      active,
		Category:      input.Category,
		ImageURL:      input.ImageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if input.Sku != "" {
		sku := input.Sku
		p.Sku = &sku
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}

	zap.L().Info("product created",
		zap.Int64("product_id", p.ID),
		zap.String("name", p.Name),
		zap.String("price", p.Price.StringFixed(2)),
	)
	return p, nil
}

// Update applies a partial update. Fields present in updates are written
// as-is after constraint checks; sku uniqueness excludes the product itself.
func (s *CatalogService) Update(ctx context.Context, id int64, input ProductInput) (*domain.Product, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Sku = strings.TrimSpace(input.Sku)
	input.Category = strings.TrimSpace(input.Category)
	if err := validateProductInput(&input); err != nil {
		return nil, err
	}

	if input.Sku != "" {
		count, err := s.products.CountBySku(ctx, input.Sku, id)
		if err != nil {
			return nil, errors.Wrap(err, "check sku uniqueness")
		}
		if count > 0 {
			return nil, errors.Wrapf(ErrDuplicateSKU, "sku %q", input.Sku)
		}
	}

	existing.Name = input.Name
	existing.Description = input.Description
	existing.Price = input.Price
	existing.StockQuantity = input.StockQuantity
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}
	existing.Category = input.Category
	existing.ImageURL = input.ImageURL
	existing.Sku = nil
	if input.Sku != "" {
		sku := input.Sku
		existing.Sku = &sku
	}
	existing.UpdatedAt = time.Now()

	if err := s.products.Save(ctx, existing); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return existing, nil
}

// Delete removes a product that no order item references. Products with
// purchase history must be deactivated instead to keep the ledger intact.
func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	refs, err := s.orders.CountItemsByProduct(ctx, id)
	if err != nil {
		return errors.Wrap(err, "count product references")
	}
	if refs > 0 {
		return errors.Wrapf(ErrProductReferenced, "product %d has %d order items", id, refs)
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete product")
	}
	zap.L().Info("product deleted", zap.Int64("product_id", id))
	return nil
}

func validateProductInput(input *ProductInput) error {
	if input.Name == "" || len(input.Name) > MaxProductNameLen {
		return errors.Wrapf(ErrInvalidInput, "name must be 1..%d characters", MaxProductNameLen)
	}
	if len(input.Description) > MaxProductDescriptionLen {
		return errors.Wrapf(ErrInvalidInput, "description exceeds %d characters", MaxProductDescriptionLen)
	}
	if input.Price.IsNegative() {
		return errors.Wrap(ErrInvalidInput, "price cannot be negative")
	}
	if input.Price.Exponent() < -2 {
		return errors.Wrap(ErrInvalidInput, "price precision is limited to 2 decimal places")
	}
	if input.StockQuantity < 0 {
		return errors.Wrap(ErrInvalidInput, "stock quantity cannot be negative")
	}
	if len(input.Sku) > MaxProductSkuLen {
		return errors.Wrapf(ErrInvalidInput, "sku exceeds %d characters", MaxProductSkuLen)
	}
	if len(input.Category) > MaxProductCategoryLen {
		return errors.Wrapf(ErrInvalidInput, "category exceeds %d characters", MaxProductCategoryLen)
	}
	return nil
}
