package repository

import (
	"context"

	"github.com/iliyamo/cafe-pos/internal/model"
)

const tableColumns = `id, name, number, capacity, status, created_at, updated_at`

// TableRepo implements store.TableRegistry on the coffee_tables table.
type TableRepo struct {
	q Querier
}

// NewTableRepo constructs a TableRepo on q.
func NewTableRepo(q Querier) *TableRepo { return &TableRepo{q: q} }

func scanTable(s rowScanner) (model.CoffeeTable, error) {
	var t model.CoffeeTable
	err := s.Scan(&t.ID, &t.Name, &t.Number, &t.Capacity, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Create inserts t and reads the row back so timestamps are populated. A
// duplicate table number yields model.ErrConflict.
func (r *TableRepo) Create(ctx context.Context, t *model.CoffeeTable) error {
	if t.Status == "" {
		t.Status = model.TableFree
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO coffee_tables (name, number, capacity, status) VALUES (?, ?, ?, ?)`,
		t.Name, t.Number, t.Capacity, t.Status)
	if err != nil {
		return translate(err, model.ErrTableNotFound)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.CoffeeTable, error) {
	return r.one(ctx, `SELECT `+tableColumns+` FROM coffee_tables WHERE id = ?`, id)
}

// Lock reads the table with SELECT ... FOR UPDATE.
func (r *TableRepo) Lock(ctx context.Context, id uint64) (*model.CoffeeTable, error) {
	return r.one(ctx, `SELECT `+tableColumns+` FROM coffee_tables WHERE id = ? FOR UPDATE`, id)
}

func (r *TableRepo) one(ctx context.Context, q string, id uint64) (*model.CoffeeTable, error) {
	t, err := scanTable(r.q.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, translate(err, model.ErrTableNotFound)
	}
	return &t, nil
}

// SetStatus overwrites the status column. It does not look at the previous
// value.
func (r *TableRepo) SetStatus(ctx context.Context, id uint64, status model.TableStatus) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE coffee_tables SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports zero changed rows for a same-value write, so confirm
		// the row exists before calling it missing.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *TableRepo) List(ctx context.Context) ([]model.CoffeeTable, error) {
	return r.many(ctx, `SELECT `+tableColumns+` FROM coffee_tables ORDER BY number`)
}

func (r *TableRepo) FindFree(ctx context.Context) ([]model.CoffeeTable, error) {
	return r.many(ctx, `SELECT `+tableColumns+` FROM coffee_tables WHERE status = ? ORDER BY number`, model.TableFree)
}

func (r *TableRepo) FindByCapacityAtLeast(ctx context.Context, capacity int) ([]model.CoffeeTable, error) {
	return r.many(ctx, `SELECT `+tableColumns+` FROM coffee_tables WHERE capacity >= ? ORDER BY number`, capacity)
}

func (r *TableRepo) many(ctx context.Context, q string, args ...any) ([]model.CoffeeTable, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CoffeeTable, 0)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
