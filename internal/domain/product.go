package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item sold through the storefront
type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id" form:"id"`
	Name          string          `gorm:"size:200;index" json:"name" form:"name"`
	Description   string          `gorm:"size:2000" json:"description" form:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2)" json:"price" form:"price"`
	StockQuantity int             `json:"stock_quantity" form:"stock_quantity"`
	IsActive      bool            `gorm:"index" json:"is_active" form:"is_active"`
	Sku           *string         `gorm:"size:50;uniqueIndex" json:"sku" form:"sku"` // optional, unique when present
	Category      string          `gorm:"size:100;index" json:"category" form:"category"`
	ImageURL      string          `gorm:"size:500" json:"image_url" form:"image_url"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}
