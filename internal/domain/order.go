package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order ledger entry with a shipping snapshot taken at checkout time
type Order struct {
	ID                   int64           `json:"id,string" form:"id"`                                      // Primary key ID
	OrderNumber          string          `gorm:"size:32;uniqueIndex" json:"order_number" form:"order_number"` // Human-facing number ORD-YYYYMMDD-XXXXXXXX
	CustomerID           int64           `gorm:"index" json:"customer_id,string" form:"customer_id"`       // Owning customer
	Status               string          `gorm:"size:20;index" json:"status" form:"status"`                // Lifecycle status, see commerce.OrderStatus*
	TotalAmount          decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`                   // Set once at creation
	Currency             string          `gorm:"size:3" json:"currency"`                                   // ISO code, USD by default
	ShippingFirstName    string          `gorm:"size:50" json:"shipping_first_name" form:"shipping_first_name"`
	ShippingLastName     string          `gorm:"size:50" json:"shipping_last_name" form:"shipping_last_name"`
	ShippingAddressLine1 string          `gorm:"size:120" json:"shipping_address_line1" form:"shipping_address_line1"`
	ShippingAddressLine2 string          `gorm:"size:120" json:"shipping_address_line2" form:"shipping_address_line2"`
	ShippingCity         string          `gorm:"size:50" json:"shipping_city" form:"shipping_city"`
	ShippingState        string          `gorm:"size:50" json:"shipping_state" form:"shipping_state"`
	ShippingPostalCode   string          `gorm:"size:20" json:"shipping_postal_code" form:"shipping_postal_code"`
	ShippingCountry      string          `gorm:"size:50" json:"shipping_country" form:"shipping_country"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a line item with unit price snapshotted at purchase time;
// later catalog price changes never rewrite historical orders.
type OrderItem struct {
	ID         int64           `json:"id,string" form:"id"`
	OrderID    int64           `gorm:"index" json:"order_id,string" form:"order_id"`
	ProductID  int64           `gorm:"index" json:"product_id" form:"product_id"`
	Quantity   int             `json:"quantity" form:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_price"` // unit_price * quantity
	CreatedAt  time.Time       `json:"created_at"`
}

// TableName Specify table name
func (OrderItem) TableName() string {
	return "order_items"
}
