package repository

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cafe-pos/internal/model"
)

const itemColumns = `id, order_id, product_id, quantity, price, subtotal, created_at`

// OrderItemRepo implements store.OrderItemStore.
type OrderItemRepo struct {
	q Querier
}

func NewOrderItemRepo(q Querier) *OrderItemRepo { return &OrderItemRepo{q: q} }

// Create inserts an item. Subtotal must already be computed.
func (r *OrderItemRepo) Create(ctx context.Context, it *model.OrderItem) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, price, subtotal) VALUES (?, ?, ?, ?, ?)`,
		it.OrderID, it.ProductID, it.Quantity, it.Price, it.Subtotal)
	if err != nil {
		return translate(err, model.ErrOrderNotFound)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return r.q.QueryRowContext(ctx, `SELECT created_at FROM order_items WHERE id = ?`, it.ID).Scan(&it.CreatedAt)
}

func (r *OrderItemRepo) ListByOrder(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	byOrder, err := r.ListByOrders(ctx, []uint64{orderID})
	if err != nil {
		return nil, err
	}
	if items := byOrder[orderID]; items != nil {
		return items, nil
	}
	return []model.OrderItem{}, nil
}

// ListByOrders loads the items of several orders in one query, keyed by
// order id.
func (r *OrderItemRepo) ListByOrders(ctx context.Context, orderIDs []uint64) (map[uint64][]model.OrderItem, error) {
	out := make(map[uint64][]model.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(orderIDs)), ",")
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.Subtotal, &it.CreatedAt); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (r *OrderItemRepo) SumSubtotals(ctx context.Context, orderID uint64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(subtotal), 0) FROM order_items WHERE order_id = ?`, orderID).Scan(&total)
	return total, err
}

func (r *OrderItemRepo) DeleteByOrder(ctx context.Context, orderID uint64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
