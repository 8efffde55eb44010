package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a bill was settled.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentMomo         PaymentMethod = "MOMO"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMomo, PaymentBankTransfer:
		return true
	}
	return false
}

// PaymentStatus tracks settlement of a bill.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentCompleted, PaymentPending, PaymentFailed:
		return true
	}
	return false
}

// Bill snapshots an order's total at payment time. Only PaymentStatus may
// change after creation.
type Bill struct {
	ID            uint64          `json:"id"`
	OrderID       uint64          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	IssuedAt      time.Time       `json:"issued_at"`
}
