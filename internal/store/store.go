// Package store declares the persistence ports the order workflow runs
// against. Every mutation happens inside UnitOfWork.Do so that the order,
// order item, product stock and table rows touched by one use case commit
// or roll back together.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cafe-pos/internal/model"
)

// ProductReader loads catalog entries.
type ProductReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
}

// StockLedger owns per-product available quantity. Reserve must be atomic
// per product: a concurrent caller can never observe or cause negative
// stock.
type StockLedger interface {
	// Reserve decrements stock by qty and returns the new level. It fails
	// with model.ErrInsufficientStock when qty exceeds the current level
	// and model.ErrProductNotFound when the product is absent.
	Reserve(ctx context.Context, productID uint64, qty int) (int, error)
	// Release increments stock by qty and returns the new level.
	Release(ctx context.Context, productID uint64, qty int) (int, error)
}

// CategoryReader loads menu categories.
type CategoryReader interface {
	List(ctx context.Context) ([]model.Category, error)
}

// TableRegistry owns table occupancy. SetStatus is a flat write; transition
// rules are enforced by the caller.
type TableRegistry interface {
	Create(ctx context.Context, t *model.CoffeeTable) error
	GetByID(ctx context.Context, id uint64) (*model.CoffeeTable, error)
	// Lock is GetByID that also holds the row for the rest of the unit of work.
	Lock(ctx context.Context, id uint64) (*model.CoffeeTable, error)
	SetStatus(ctx context.Context, id uint64, status model.TableStatus) error
	List(ctx context.Context) ([]model.CoffeeTable, error)
	FindFree(ctx context.Context) ([]model.CoffeeTable, error)
	FindByCapacityAtLeast(ctx context.Context, capacity int) ([]model.CoffeeTable, error)
}

// OrderStore persists order headers. Returned orders carry no items; the
// caller loads them through OrderItemStore.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	Lock(ctx context.Context, id uint64) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus, paymentMethod *string) error
	UpdateTotal(ctx context.Context, id uint64, total decimal.Decimal) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context) ([]model.Order, error)
	ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	ListByTable(ctx context.Context, tableID uint64) ([]model.Order, error)
	CountByTable(ctx context.Context, tableID uint64) (int, error)
}

// OrderItemStore persists order lines.
type OrderItemStore interface {
	Create(ctx context.Context, it *model.OrderItem) error
	ListByOrder(ctx context.Context, orderID uint64) ([]model.OrderItem, error)
	ListByOrders(ctx context.Context, orderIDs []uint64) (map[uint64][]model.OrderItem, error)
	SumSubtotals(ctx context.Context, orderID uint64) (decimal.Decimal, error)
	DeleteByOrder(ctx context.Context, orderID uint64) (int64, error)
}

// BillStore persists bills. At most one bill exists per order.
type BillStore interface {
	Create(ctx context.Context, b *model.Bill) error
	GetByID(ctx context.Context, id uint64) (*model.Bill, error)
	GetByOrderID(ctx context.Context, orderID uint64) (*model.Bill, error)
	UpdatePaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) error
}

// Repos bundles the repositories bound to one unit of work.
type Repos struct {
	Products   ProductReader
	Stock      StockLedger
	Categories CategoryReader
	Tables     TableRegistry
	Orders     OrderStore
	Items      OrderItemStore
	Bills      BillStore
}

// UnitOfWork runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
