package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-chapter/backend/internal/models"
)

// Repository is the PostgreSQL-backed invite token store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invite token repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a token.
func (r *Repository) Insert(ctx context.Context, t *models.InviteToken) error {
	const q = `INSERT INTO invite_tokens (id, kind, token, scope, expires_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, t.Kind, t.Token, t.Scope, t.ExpiresAt).
		Scan(&t.ID, &t.CreatedAt)
}

// GetByToken returns the token record for kind+token, or (nil, nil) when absent.
func (r *Repository) GetByToken(ctx context.Context, kind models.TokenKind, token string) (*models.InviteToken, error) {
	const q = `SELECT id, kind, token, scope, expires_at, created_at
		FROM invite_tokens WHERE kind = $1 AND token = $2`
	var t models.InviteToken
	err := r.pool.QueryRow(ctx, q, kind, token).
		Scan(&t.ID, &t.Kind, &t.Token, &t.Scope, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes a token and reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, kind models.TokenKind, token string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invite_tokens WHERE kind = $1 AND token = $2`, kind, token)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteExpired removes every token whose expiry is at or before now.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invite_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
