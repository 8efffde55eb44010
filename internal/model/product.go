package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. The order service only reads it, except for
// StockQuantity which changes through the stock ledger.
type Product struct {
	ID            uint64          `json:"id"`
	CategoryID    *uint64         `json:"category_id,omitempty"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      *string         `json:"image_url,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Category groups products on the menu.
type Category struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}
