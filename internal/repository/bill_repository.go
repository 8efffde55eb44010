package repository

import (
	"context"

	"github.com/iliyamo/cafe-pos/internal/model"
)

const billColumns = `id, order_id, amount, payment_method, payment_status, issued_at`

// BillRepo implements store.BillStore. bills.order_id is UNIQUE, so a
// second bill for an order fails with model.ErrConflict.
type BillRepo struct {
	q Querier
}

func NewBillRepo(q Querier) *BillRepo { return &BillRepo{q: q} }

func (r *BillRepo) Create(ctx context.Context, b *model.Bill) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO bills (order_id, amount, payment_method, payment_status, issued_at) VALUES (?, ?, ?, ?, ?)`,
		b.OrderID, b.Amount, b.PaymentMethod, b.PaymentStatus, b.IssuedAt)
	if err != nil {
		return translate(err, model.ErrOrderNotFound)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

func (r *BillRepo) GetByID(ctx context.Context, id uint64) (*model.Bill, error) {
	return r.one(ctx, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
}

func (r *BillRepo) GetByOrderID(ctx context.Context, orderID uint64) (*model.Bill, error) {
	return r.one(ctx, `SELECT `+billColumns+` FROM bills WHERE order_id = ?`, orderID)
}

func (r *BillRepo) one(ctx context.Context, q string, arg uint64) (*model.Bill, error) {
	var b model.Bill
	err := r.q.QueryRowContext(ctx, q, arg).Scan(&b.ID, &b.OrderID, &b.Amount, &b.PaymentMethod, &b.PaymentStatus, &b.IssuedAt)
	if err != nil {
		return nil, translate(err, model.ErrBillNotFound)
	}
	return &b, nil
}

func (r *BillRepo) UpdatePaymentStatus(ctx context.Context, id uint64, status model.PaymentStatus) error {
	if _, err := r.q.ExecContext(ctx, `UPDATE bills SET payment_status = ? WHERE id = ?`, status, id); err != nil {
		return err
	}
	_, err := r.GetByID(ctx, id)
	return err
}
