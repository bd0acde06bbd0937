package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment records one attempt against the external provider. An order may
// accumulate several attempts; each payment belongs to exactly one order.
type Payment struct {
	ID                int64           `json:"id,string" form:"id"`                                       // Primary key ID
	OrderID           int64           `gorm:"index" json:"order_id,string" form:"order_id"`              // Owning order
	PaymentMethod     string          `gorm:"size:20" json:"payment_method"`                             // Provider method, e.g. paypal
	Status            string          `gorm:"size:20;index" json:"status"`                               // pending/completed/failed/cancelled
	Amount            decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`                          // Charged amount
	Currency          string          `gorm:"size:3" json:"currency"`                                    // ISO code
	ProviderPaymentID string          `gorm:"size:100;uniqueIndex" json:"provider_payment_id"`           // Provider handle (PAY-...)
	PaymentToken      string          `gorm:"size:100" json:"payment_token"`                             // Redirect token, mirrors the provider handle
	PayerID           string          `gorm:"size:100" json:"payer_id"`                                  // Set on completion
	TransactionID     string          `gorm:"size:100" json:"transaction_id"`                            // Capture id (TXN-...), set on completion
	Metadata          string          `gorm:"size:2000" json:"metadata"`                                 // JSON blob forwarded to the provider
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	CompletedAt       *time.Time      `json:"completed_at"`
}

// TableName Specify table name
func (Payment) TableName() string {
	return "payments"
}
