package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/cafe-pos/internal/model"
	"github.com/iliyamo/cafe-pos/internal/utils"
)

const userColumns = `id, username, password_hash, role, is_active, created_at, updated_at`

// UserRepo stores staff accounts.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create hashes password and inserts the account. A taken username yields
// model.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, username, password, role string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		normalizeUsername(username), hash, role)
	if err != nil {
		return 0, translate(err, model.ErrUserNotFound)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername looks an account up by its case-folded username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE username = ? LIMIT 1`, normalizeUsername(username))
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
}

func (r *UserRepo) one(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err, model.ErrUserNotFound)
	}
	return &u, nil
}

func normalizeUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
