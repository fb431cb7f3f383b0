package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order. Farmers may move an order
// to any status; no transition graph is enforced.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order represents a customer's purchase across one or more farmers.
type Order struct {
	ID         int64            `json:"id"`
	CustomerID int64            `json:"customerId"`
	Customer   *CustomerSummary `json:"customer,omitempty"`
	TotalPrice decimal.Decimal  `json:"totalPrice"`
	Status     OrderStatus      `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	Items      []OrderItem      `json:"orderItems"`
}

// OrderItem is one line of an order. Price is the unit price captured at
// purchase time and does not follow later product price changes.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orderId"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Product   *OrderedProduct `json:"product,omitempty"`
}

// Subtotal returns Price * Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderedProduct is the product display data resolved for an order line.
type OrderedProduct struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	ImageURL *string       `json:"imageUrl,omitempty"`
	Category Category      `json:"category"`
	FarmerID int64         `json:"farmerId"`
	Farmer   FarmerSummary `json:"farmer"`
}

// LineRequest is a single requested (product, quantity) pair.
type LineRequest struct {
	ProductID int64
	Quantity  int
}
