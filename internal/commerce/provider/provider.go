package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentRequest describes a charge to initiate with the provider.
type PaymentRequest struct {
	Amount      decimal.Decimal        // Charge amount
	Currency    string                 // ISO currency code
	Description string                 // Human-readable purchase summary
	Metadata    map[string]interface{} // Provider-specific extra fields
}

// CreateResult is returned when a payment intent is created.
type CreateResult struct {
	PaymentID   string // Provider payment handle (PAY-...)
	RedirectURL string // Approval URL the shopper is redirected to
}

// ExecuteResult is returned when an approved payment is captured.
type ExecuteResult struct {
	TransactionID string // Provider capture id (TXN-...)
}

// Client is the interface to an external payment processor.
// The storefront only ever talks to the provider through this seam.
type Client interface {
	// CreatePayment initiates a payment intent and returns the provider
	// handle together with the shopper approval URL
	CreatePayment(ctx context.Context, req *PaymentRequest) (*CreateResult, error)

	// ExecutePayment captures an approved payment
	ExecutePayment(ctx context.Context, paymentID, payerID string) (*ExecuteResult, error)

	// CancelPayment voids a pending payment
	CancelPayment(ctx context.Context, paymentID string) error

	// Close releases any provider connection state
	Close() error
}
