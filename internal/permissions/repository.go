package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-chapter/backend/internal/models"
)

// Repository is the PostgreSQL-backed grant store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a capability grant repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetExtraRoles returns the extra roles for a capability. A missing row means
// no extra roles have ever been granted.
func (r *Repository) GetExtraRoles(ctx context.Context, capability models.Capability) ([]string, error) {
	var roles []string
	err := r.pool.QueryRow(ctx,
		`SELECT extra_roles FROM capability_grants WHERE capability = $1`, capability).
		Scan(&roles)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// AddExtraRole upserts the grant row and appends the role if absent. The
// conditional append runs inside one statement so concurrent grants of the
// same role collapse into a single membership.
func (r *Repository) AddExtraRole(ctx context.Context, capability models.Capability, role string) error {
	const q = `INSERT INTO capability_grants (capability, extra_roles)
		VALUES ($1, ARRAY[$2::text])
		ON CONFLICT (capability) DO UPDATE
		SET extra_roles = array_append(capability_grants.extra_roles, $2), updated_at = NOW()
		WHERE NOT $2 = ANY(capability_grants.extra_roles)`
	_, err := r.pool.Exec(ctx, q, capability, role)
	return err
}

// RemoveExtraRole drops the role from the capability's extra list. Removing a
// role that is not present, or from a capability with no grant row, is a no-op.
func (r *Repository) RemoveExtraRole(ctx context.Context, capability models.Capability, role string) error {
	const q = `UPDATE capability_grants
		SET extra_roles = array_remove(extra_roles, $2), updated_at = NOW()
		WHERE capability = $1`
	_, err := r.pool.Exec(ctx, q, capability, role)
	return err
}
