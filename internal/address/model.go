package address

import (
	"time"

	"github.com/google/uuid"
)

type Address struct {
	ID          uuid.UUID `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	AddressLine string    `json:"address_line"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Pincode     string    `json:"pincode"`
	IsDefault   bool      `json:"is_default"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Usable reports whether the address can ship an order for customerID.
func (a *Address) Usable(customerID int64) bool {
	return a != nil && a.IsActive && a.CustomerID == customerID
}

type Input struct {
	Name         string
	Phone        string
	AddressLine  string
	City         string
	State        string
	Pincode      string
	SetAsDefault bool
}
