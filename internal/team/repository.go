package team

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-chapter/backend/internal/models"
)

// Repository handles team roster persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a team repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AddMember inserts a roster entry (unique per department+email). Joining the
// same department twice updates the profile fields instead of duplicating.
func (r *Repository) AddMember(ctx context.Context, m *models.TeamMember) error {
	const q = `INSERT INTO team_members (id, full_name, email, department, roll_no, linkedin_url)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		ON CONFLICT (department, email) DO UPDATE
		SET full_name = EXCLUDED.full_name, roll_no = EXCLUDED.roll_no, linkedin_url = EXCLUDED.linkedin_url
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.FullName, m.Email, m.Department, m.RollNo, m.LinkedinURL).
		Scan(&m.ID, &m.CreatedAt)
}

// ListByDepartment returns the roster for one department, or the whole team
// when department is empty.
func (r *Repository) ListByDepartment(ctx context.Context, department string) ([]models.TeamMember, error) {
	const q = `SELECT id, full_name, email, department, roll_no, linkedin_url, created_at
		FROM team_members
		WHERE $1 = '' OR department = $1
		ORDER BY department, full_name`
	rows, err := r.pool.Query(ctx, q, department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.TeamMember
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.ID, &m.FullName, &m.Email, &m.Department, &m.RollNo, &m.LinkedinURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
