package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order. PAID and CANCELLED are
// terminal; see transitions.go for the allowed moves.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderCancelled:
		return true
	}
	return false
}

// Order is a table's tab. TotalAmount always equals the sum of the items'
// subtotals after any item mutation.
type Order struct {
	ID            uint64          `json:"id"`
	TableID       uint64          `json:"table_id"`
	EmployeeID    uint64          `json:"employee_id"`
	Status        OrderStatus     `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem is one line of an order. Price is the product price at the time
// the line was added; items are never edited in place.
type OrderItem struct {
	ID        uint64          `json:"id"`
	OrderID   uint64          `json:"order_id"`
	ProductID uint64          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewOrderItem builds a line with its subtotal computed from quantity and
// the unit price snapshot.
func NewOrderItem(orderID, productID uint64, quantity int, price decimal.Decimal) OrderItem {
	return OrderItem{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     price,
		Subtotal:  price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// SumSubtotals adds up the subtotals of items.
func SumSubtotals(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}
