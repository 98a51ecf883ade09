package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type refreshRepoPG struct{ pool *pgxpool.Pool }

// NewRefreshTokenRepoPG returns a RefreshTokenRepository backed by the
// refresh_tokens table.
func NewRefreshTokenRepoPG(pool *pgxpool.Pool) RefreshTokenRepository {
	return &refreshRepoPG{pool: pool}
}

func (r *refreshRepoPG) Save(ctx context.Context, t *RefreshToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (id, token_hash, user_id, revoked, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.TokenHash, t.UserID, t.Revoked, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrRefreshTokenExists
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *refreshRepoPG) ByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	var t RefreshToken
	err := r.pool.QueryRow(ctx, `
		SELECT id, token_hash, user_id, revoked, created_at, expires_at
		FROM refresh_tokens WHERE token_hash = $1`, hash).
		Scan(&t.ID, &t.TokenHash, &t.UserID, &t.Revoked, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("select refresh token: %w", err)
	}
	return &t, nil
}

func (r *refreshRepoPG) RevokeIfActive(ctx context.Context, hash string) (bool, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token_hash = $1 AND revoked = FALSE
		RETURNING id`, hash).Scan(&id)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}

	// No active row matched: distinguish already-revoked from unknown.
	var revoked bool
	err = r.pool.QueryRow(ctx, `
		SELECT revoked FROM refresh_tokens WHERE token_hash = $1`, hash).Scan(&revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrRefreshTokenNotFound
		}
		return false, fmt.Errorf("check refresh token: %w", err)
	}
	return false, nil
}

func (r *refreshRepoPG) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
