package commerce

import "errors"

// Sentinel errors returned by the commerce services. Callers distinguish
// outcomes with errors.Is; the HTTP layer maps them to stable reason codes
// via ReasonCode.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrProductNotFound      = errors.New("product not found")
	ErrProductInactive      = errors.New("product is not active")
	ErrOutOfStock           = errors.New("product is out of stock")
	ErrDuplicateSKU         = errors.New("sku already exists")
	ErrProductReferenced    = errors.New("product is referenced by existing orders")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrMissingID            = errors.New("record id is required")
	ErrIllegalTransition    = errors.New("illegal status transition")
	ErrOrderNumberExhausted = errors.New("order number generation exhausted")
)

// ReasonCode maps a commerce error to its stable API code.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrPaymentNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_REQUEST"
	case errors.Is(err, ErrProductInactive):
		return "NOT_ACTIVE"
	case errors.Is(err, ErrOutOfStock):
		return "OUT_OF_STOCK"
	case errors.Is(err, ErrDuplicateSKU):
		return "SKU_EXISTS"
	case errors.Is(err, ErrProductReferenced):
		return "PRODUCT_REFERENCED"
	case errors.Is(err, ErrMissingID):
		return "MISSING_ID"
	case errors.Is(err, ErrIllegalTransition):
		return "ILLEGAL_TRANSITION"
	default:
		return "INTERNAL"
	}
}

// IsNotFound reports whether err is one of the absence sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}
