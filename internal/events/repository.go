package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-chapter/backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, title, description, category, event_date, event_time, venue,
	poster_url, media_urls, agenda, speakers, created_by, delete_scheduled_at, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.EventDate, &e.EventTime,
		&e.Venue, &e.PosterURL, &e.MediaURLs, &e.Agenda, &e.Speakers, &e.CreatedBy,
		&e.DeleteScheduledAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, title, description, category, event_date, event_time, venue,
			poster_url, media_urls, agenda, speakers, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.Category, e.EventDate, e.EventTime,
		e.Venue, e.PosterURL, e.MediaURLs, e.Agenda, e.Speakers, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID, or (nil, nil) when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// ListActive returns events that are not overdue for deletion: active events
// plus events whose scheduled deletion is still in the future (those remain
// restorable and visible). Callers run reclamation first so overdue rows are
// already gone.
func (r *Repository) ListActive(ctx context.Context, now time.Time) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events
		WHERE delete_scheduled_at IS NULL OR delete_scheduled_at > $1
		ORDER BY event_date DESC NULLS LAST, created_at DESC`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// ListDue returns events whose scheduled deletion has passed.
func (r *Repository) ListDue(ctx context.Context, now time.Time) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events
		WHERE delete_scheduled_at IS NOT NULL AND delete_scheduled_at <= $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update modifies descriptive fields of an event.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $2, description = $3, category = $4, event_date = $5,
			event_time = $6, venue = $7, poster_url = $8, media_urls = $9, agenda = $10,
			speakers = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, e.ID, e.Title, e.Description, e.Category, e.EventDate,
		e.EventTime, e.Venue, e.PosterURL, e.MediaURLs, e.Agenda, e.Speakers).
		Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// SetDeleteScheduledAt sets or clears the scheduled-deletion timestamp.
// Returns false when no event has that id.
func (r *Repository) SetDeleteScheduledAt(ctx context.Context, id uuid.UUID, at *time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events SET delete_scheduled_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an event row and reports whether it existed. Deleting an
// already-deleted row is benign for concurrent reclamation.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
