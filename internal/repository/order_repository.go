package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cafe-pos/internal/model"
)

const orderColumns = `id, table_id, employee_id, status, total_amount, payment_method, created_at, updated_at`

// OrderRepo implements store.OrderStore. Orders it returns carry no items.
type OrderRepo struct {
	q Querier
}

// NewOrderRepo constructs an OrderRepo on q.
func NewOrderRepo(q Querier) *OrderRepo { return &OrderRepo{q: q} }

func scanOrder(s rowScanner) (model.Order, error) {
	var o model.Order
	err := s.Scan(&o.ID, &o.TableID, &o.EmployeeID, &o.Status, &o.TotalAmount, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts o and fills in the generated id and timestamps.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO orders (table_id, employee_id, status, total_amount) VALUES (?, ?, ?, ?)`,
		o.TableID, o.EmployeeID, o.Status, o.TotalAmount)
	if err != nil {
		return translate(err, model.ErrOrderNotFound)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*o = *created
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	return r.one(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

// Lock reads the order with SELECT ... FOR UPDATE so item additions,
// payment and deletion on the same order serialize.
func (r *OrderRepo) Lock(ctx context.Context, id uint64) (*model.Order, error) {
	return r.one(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, id)
}

func (r *OrderRepo) one(ctx context.Context, q string, id uint64) (*model.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, translate(err, model.ErrOrderNotFound)
	}
	return &o, nil
}

// UpdateStatus writes status and, when paymentMethod is non-nil, the
// payment method.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus, paymentMethod *string) error {
	var err error
	if paymentMethod != nil {
		_, err = r.q.ExecContext(ctx,
			`UPDATE orders SET status = ?, payment_method = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			status, *paymentMethod, id)
	} else {
		_, err = r.q.ExecContext(ctx,
			`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	}
	return err
}

func (r *OrderRepo) UpdateTotal(ctx context.Context, id uint64, total decimal.Decimal) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE orders SET total_amount = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, total, id)
	return err
}

// Delete removes the order row. Items go with it through the FK cascade;
// callers delete them explicitly first all the same.
func (r *OrderRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepo) List(ctx context.Context) ([]model.Order, error) {
	return r.many(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
}

func (r *OrderRepo) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return r.many(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = ? ORDER BY id`, status)
}

func (r *OrderRepo) ListByTable(ctx context.Context, tableID uint64) ([]model.Order, error) {
	return r.many(ctx, `SELECT `+orderColumns+` FROM orders WHERE table_id = ? ORDER BY id`, tableID)
}

func (r *OrderRepo) CountByTable(ctx context.Context, tableID uint64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE table_id = ?`, tableID).Scan(&n)
	return n, err
}

func (r *OrderRepo) many(ctx context.Context, q string, args ...any) ([]model.Order, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
