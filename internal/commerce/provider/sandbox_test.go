package provider

import (
	"context"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	paymentIDPattern     = regexp.MustCompile(`^PAY-[0-9A-F]{20}$`)
	transactionIDPattern = regexp.MustCompile(`^TXN-[0-9A-F]{16}$`)
)

func TestSandboxCreatePayment(t *testing.T) {
	client := NewSandboxClient("")
	res, err := client.CreatePayment(context.Background(), &PaymentRequest{
		Amount:      decimal.RequireFromString("99.99"),
		Currency:    "USD",
		Description: "Order ORD-20240101-ABCDEF01 - Test Product",
	})
	require.NoError(t, err)
	assert.Regexp(t, paymentIDPattern, res.PaymentID)
	assert.Equal(t, "https://sandbox.paypal.com/checkoutnow?token="+res.PaymentID, res.RedirectURL)
}

func TestSandboxCreatePaymentGuards(t *testing.T) {
	client := NewSandboxClient("")

	_, err := client.CreatePayment(context.Background(), nil)
	assert.Error(t, err)

	_, err = client.CreatePayment(context.Background(), &PaymentRequest{
		Amount:   decimal.RequireFromString("-1"),
		Currency: "USD",
	})
	assert.Error(t, err)

	_, err = client.CreatePayment(context.Background(), &PaymentRequest{
		Amount: decimal.RequireFromString("1.00"),
	})
	assert.Error(t, err, "missing currency must be rejected")
}

func TestSandboxExecutePayment(t *testing.T) {
	client := NewSandboxClient("")
	res, err := client.ExecutePayment(context.Background(), "PAY-0123456789ABCDEF0123", "PAYER12345678")
	require.NoError(t, err)
	assert.Regexp(t, transactionIDPattern, res.TransactionID)

	_, err = client.ExecutePayment(context.Background(), "", "PAYER")
	assert.Error(t, err)

	_, err = client.ExecutePayment(context.Background(), "BOGUS-123", "PAYER")
	assert.Error(t, err)

	_, err = client.ExecutePayment(context.Background(), "PAY-0123456789ABCDEF0123", "")
	assert.Error(t, err)
}

func TestSandboxCancelPayment(t *testing.T) {
	client := NewSandboxClient("https://sandbox.example.test/")
	assert.Error(t, client.CancelPayment(context.Background(), ""))
	assert.NoError(t, client.CancelPayment(context.Background(), "PAY-0123456789ABCDEF0123"))
	assert.NoError(t, client.Close())
}

func TestSandboxEndpointOverride(t *testing.T) {
	client := NewSandboxClient("https://pay.internal.test/")
	res, err := client.CreatePayment(context.Background(), &PaymentRequest{
		Amount:   decimal.RequireFromString("10.00"),
		Currency: "USD",
	})
	require.NoError(t, err)
	assert.Contains(t, res.RedirectURL, "https://pay.internal.test/checkoutnow?token=PAY-")
}
