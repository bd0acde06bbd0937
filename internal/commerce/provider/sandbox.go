package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/elbrussoft/webstore/pkg/common"
	"go.uber.org/zap"
)

// DefaultSandboxEndpoint mirrors the hosted PayPal sandbox URL shape.
const DefaultSandboxEndpoint = "https://sandbox.paypal.com"

// SandboxClient implements Client against a simulated PayPal-style
// processor. No network traffic is produced; identifiers and approval
// URLs are synthesized locally with the provider's formats.
type SandboxClient struct {
	endpoint string
}

// NewSandboxClient creates a sandbox provider client.
// endpoint overrides the approval URL base, empty means the default
// hosted sandbox address.
func NewSandboxClient(endpoint string) *SandboxClient {
	if endpoint == "" {
		endpoint = DefaultSandboxEndpoint
	}
	return &SandboxClient{endpoint: strings.TrimRight(endpoint, "/")}
}

// CreatePayment synthesizes a PAY- handle and the checkout approval URL.
func (c *SandboxClient) CreatePayment(ctx context.Context, req *PaymentRequest) (*CreateResult, error) {
	if req == nil {
		return nil, fmt.Errorf("payment request is nil")
	}
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("payment amount cannot be negative")
	}
	if req.Currency == "" {
		return nil, fmt.Errorf("payment currency is required")
	}

	paymentID := "PAY-" + common.UUIDHex(20)
	redirectURL := fmt.Sprintf("%s/checkoutnow?token=%s", c.endpoint, paymentID)

	zap.L().Info("sandbox payment created",
		zap.String("payment_id", paymentID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("currency", req.Currency),
		zap.String("description", req.Description),
	)

	return &CreateResult{
		PaymentID:   paymentID,
		RedirectURL: redirectURL,
	}, nil
}

// ExecutePayment captures an approved payment and synthesizes a TXN- id.
func (c *SandboxClient) ExecutePayment(ctx context.Context, paymentID, payerID string) (*ExecuteResult, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required")
	}
	if !strings.HasPrefix(paymentID, "PAY-") {
		return nil, fmt.Errorf("unrecognized payment id: %s", paymentID)
	}
	if payerID == "" {
		return nil, fmt.Errorf("payer id is required")
	}

	transactionID := "TXN-" + common.UUIDHex(16)

	zap.L().Info("sandbox payment executed",
		zap.String("payment_id", paymentID),
		zap.String("payer_id", payerID),
		zap.String("transaction_id", transactionID),
	)

	return &ExecuteResult{TransactionID: transactionID}, nil
}

// CancelPayment voids a pending payment on the simulated processor.
func (c *SandboxClient) CancelPayment(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return fmt.Errorf("payment id is required")
	}

	zap.L().Info("sandbox payment cancelled",
		zap.String("payment_id", paymentID),
	)
	return nil
}

// Close is a no-op for the sandbox, it holds no connection state.
func (c *SandboxClient) Close() error {
	return nil
}
