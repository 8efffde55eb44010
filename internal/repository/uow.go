package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cafe-pos/internal/store"
)

// UnitOfWork opens one MySQL transaction per Do call and binds every
// repository to it.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork constructs a UnitOfWork on db.
func NewUnitOfWork(db *sql.DB) *UnitOfWork { return &UnitOfWork{db: db} }

// Do implements store.UnitOfWork.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, r store.Repos) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, Bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Bind returns repositories that run on q.
func Bind(q Querier) store.Repos {
	products := NewProductRepo(q)
	return store.Repos{
		Products:   products,
		Stock:      products,
		Categories: NewCategoryRepo(q),
		Tables:     NewTableRepo(q),
		Orders:     NewOrderRepo(q),
		Items:      NewOrderItemRepo(q),
		Bills:      NewBillRepo(q),
	}
}
