// Package repository implements the store ports on MySQL. Every repository
// runs its statements through a Querier so the same code serves a plain
// *sql.DB and a *sql.Tx opened by the unit of work.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cafe-pos/internal/model"
)

// Querier is the subset of *sql.DB and *sql.Tx the repositories use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const mysqlDuplicateEntry = 1062

// translate maps driver errors onto the model sentinels. notFound is
// returned for sql.ErrNoRows.
func translate(err, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return model.ErrConflict
	}
	return err
}
