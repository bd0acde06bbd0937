package domain

import "time"

// Customer is identified by email; the first write wins and later
// checkouts with the same address reuse the stored name and phone.
type Customer struct {
	ID        int64     `json:"id,string" form:"id"`
	Email     string    `gorm:"size:120;uniqueIndex" json:"email" form:"email"`
	FirstName string    `gorm:"size:50" json:"first_name" form:"first_name"`
	LastName  string    `gorm:"size:50" json:"last_name" form:"last_name"`
	Phone     string    `gorm:"size:20" json:"phone" form:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Customer) TableName() string {
	return "customers"
}
