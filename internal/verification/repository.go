package verification

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-chapter/backend/internal/models"
)

// Repository is the PostgreSQL-backed challenge store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a verification challenge repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create persists a new challenge. Older challenges for the same email are
// left in place; only the most recent one is ever trusted.
func (r *Repository) Create(ctx context.Context, ch *models.VerificationChallenge) error {
	const q = `INSERT INTO verification_challenges (id, email, code, poll_token)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, ch.Email, ch.Code, ch.PollToken).
		Scan(&ch.ID, &ch.CreatedAt)
}

// AllowAutofill marks the challenge behind pollToken as retrievable. Returns
// false when no challenge carries that token.
func (r *Repository) AllowAutofill(ctx context.Context, pollToken string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE verification_challenges SET autofill_allowed = TRUE WHERE poll_token = $1`, pollToken)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ConsumeByPollToken atomically retrieves and spends a challenge: the single
// UPDATE requires autofill_allowed and strips the poll token in the same
// statement, so with any number of concurrent pollers exactly one gets the code
// and the rest see no matching row.
func (r *Repository) ConsumeByPollToken(ctx context.Context, pollToken string) (email, code string, ok bool, err error) {
	const q = `UPDATE verification_challenges
		SET poll_token = NULL, autofill_allowed = FALSE
		WHERE poll_token = $1 AND autofill_allowed = TRUE
		RETURNING email, code`
	err = r.pool.QueryRow(ctx, q, pollToken).Scan(&email, &code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return email, code, true, nil
}

// CheckCode compares a submitted code against the most recently created
// challenge for the email. Historical codes never validate.
func (r *Repository) CheckCode(ctx context.Context, email, code string) (bool, error) {
	const q = `SELECT code FROM verification_challenges
		WHERE email = $1 ORDER BY created_at DESC LIMIT 1`
	var latest string
	err := r.pool.QueryRow(ctx, q, email).Scan(&latest)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return latest == code, nil
}
