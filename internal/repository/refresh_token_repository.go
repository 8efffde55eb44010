package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cafe-pos/internal/model"
)

// RefreshTokenRepo persists hashed refresh tokens for staff sessions.
type RefreshTokenRepo struct {
	db *sql.DB
}

func NewRefreshTokenRepo(db *sql.DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

func (r *RefreshTokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		userID, tokenHash, exp)
	return err
}

// Validate returns the owner of a live token.
func (r *RefreshTokenRepo) Validate(ctx context.Context, tokenHash string, now time.Time) (uint64, error) {
	var userID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ? LIMIT 1`,
		tokenHash, now).Scan(&userID)
	if err != nil {
		return 0, translate(err, model.ErrRefreshInvalid)
	}
	return userID, nil
}

// Revoke marks a live token revoked. The conditional UPDATE makes it the
// point where concurrent rotations of one token are decided: every caller
// but the first gets model.ErrRefreshInvalid.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = CURRENT_TIMESTAMP WHERE token_hash = ? AND revoked_at IS NULL`, tokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrRefreshInvalid
	}
	return nil
}

func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = CURRENT_TIMESTAMP WHERE user_id = ? AND revoked_at IS NULL`, userID)
	return err
}
