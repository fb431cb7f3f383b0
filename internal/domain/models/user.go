package models

import "time"

// Role is the capability a caller acts with.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleFarmer   Role = "FARMER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleFarmer
}

// User represents a marketplace account, either a customer or a farmer.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	PassHash    []byte    `json:"-"`
	Role        Role      `json:"role"`
	FarmName    *string   `json:"farmName,omitempty"`
	FarmAddress *string   `json:"farmAddress,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Caller is the identity resolved by the auth middleware for a single request.
type Caller struct {
	ID   int64
	Role Role
}

// CustomerSummary is the customer data attached to orders shown to farmers.
type CustomerSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FarmerSummary is the farmer display data attached to products and order lines.
type FarmerSummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	FarmName    *string `json:"farmName,omitempty"`
	FarmAddress *string `json:"farmAddress,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}
