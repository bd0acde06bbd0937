package commerce

import (
	"context"
	"strings"

	"github.com/elbrussoft/webstore/internal/domain"
	"github.com/elbrussoft/webstore/pkg/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Customer field limits.
const (
	MaxCustomerEmailLen = 120
	MaxCustomerNameLen  = 50
	MaxCustomerPhoneLen = 20
)

// CustomerInput carries the identity fields collected at checkout.
type CustomerInput struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// CustomerService resolves customer identity by email.
type CustomerService struct {
	customers CustomerRepository
}

// NewCustomerService creates a customer service over the given repository.
func NewCustomerService(customers CustomerRepository) *CustomerService {
	return &CustomerService{customers: customers}
}

// GetOrCreate looks up a customer by exact email match. An existing record
// is returned unchanged; name and phone supplied on a repeat checkout are
// discarded, the first write wins. A new record is created otherwise.
func (s *CustomerService) GetOrCreate(ctx context.Context, input CustomerInput) (*domain.Customer, error) {
	input.Email = strings.TrimSpace(input.Email)
	if input.Email == "" {
		return nil, errors.Wrap(ErrInvalidInput, "email is required")
	}
	if len(input.Email) > MaxCustomerEmailLen {
		return nil, errors.Wrapf(ErrInvalidInput, "email exceeds %d characters", MaxCustomerEmailLen)
	}
	if len(input.FirstName) > MaxCustomerNameLen || len(input.LastName) > MaxCustomerNameLen {
		return nil, errors.Wrapf(ErrInvalidInput, "name exceeds %d characters", MaxCustomerNameLen)
	}
	if len(input.Phone) > MaxCustomerPhoneLen {
		return nil, errors.Wrapf(ErrInvalidInput, "phone exceeds %d characters", MaxCustomerPhoneLen)
	}

	existing, err := s.customers.GetByEmail(ctx, input.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "query customer")
	}

	customer := &domain.Customer{
		ID:        common.UUIDint64(),
		Email:     input.Email,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Phone:     strings.TrimSpace(input.Phone),
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		// a concurrent checkout may have inserted the same email first
		if again, lerr := s.customers.GetByEmail(ctx, input.Email); lerr == nil {
			return again, nil
		}
		return nil, errors.Wrap(err, "create customer")
	}

	zap.L().Info("customer created",
		zap.Int64("customer_id", customer.ID),
		zap.String("email", customer.Email),
	)
	return customer, nil
}

// GetByID returns the customer or ErrCustomerNotFound.
func (s *CustomerService) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrCustomerNotFound, "id %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "query customer")
	}
	return customer, nil
}
