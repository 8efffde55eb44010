package repository

import (
	"context"

	"github.com/iliyamo/cafe-pos/internal/model"
)

// CategoryRepo lists menu categories.
type CategoryRepo struct {
	q Querier
}

func NewCategoryRepo(q Querier) *CategoryRepo { return &CategoryRepo{q: q} }

func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, description, image_url FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
