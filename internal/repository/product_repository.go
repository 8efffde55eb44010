package repository

import (
	"context"

	"github.com/iliyamo/cafe-pos/internal/model"
)

const productColumns = `id, category_id, name, description, price, stock_quantity, image_url, is_active, created_at, updated_at`

// ProductRepo reads the catalog and owns the stock_quantity column. It
// implements both store.ProductReader and store.StockLedger.
type ProductRepo struct {
	q Querier
}

// NewProductRepo constructs a ProductRepo on q.
func NewProductRepo(q Querier) *ProductRepo { return &ProductRepo{q: q} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (model.Product, error) {
	var p model.Product
	err := s.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetByID loads one product regardless of its active flag.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		return nil, translate(err, model.ErrProductNotFound)
	}
	return &p, nil
}

// List returns active products ordered by id.
func (r *ProductRepo) List(ctx context.Context) ([]model.Product, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Reserve takes qty units out of stock with a single conditional UPDATE so
// that concurrent reservations on the same row serialize in InnoDB and the
// level never goes negative. When no row changed, the follow-up read tells
// a missing product apart from a short one.
func (r *ProductRepo) Reserve(ctx context.Context, productID uint64, qty int) (int, error) {
	const q = `UPDATE products SET stock_quantity = stock_quantity - ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND stock_quantity >= ?`
	res, err := r.q.ExecContext(ctx, q, qty, productID, qty)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	stock, err := r.stockOf(ctx, productID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return stock, model.ErrInsufficientStock
	}
	return stock, nil
}

// Release puts qty units back.
func (r *ProductRepo) Release(ctx context.Context, productID uint64, qty int) (int, error) {
	const q = `UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.q.ExecContext(ctx, q, qty, productID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, model.ErrProductNotFound
	}
	return r.stockOf(ctx, productID)
}

func (r *ProductRepo) stockOf(ctx context.Context, productID uint64) (int, error) {
	var stock int
	err := r.q.QueryRowContext(ctx, `SELECT stock_quantity FROM products WHERE id = ?`, productID).Scan(&stock)
	if err != nil {
		return 0, translate(err, model.ErrProductNotFound)
	}
	return stock, nil
}
