package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-chapter/backend/internal/models"
)

// ErrNotFound means no event exists with the given id.
var ErrNotFound = errors.New("event not found")

// DeletionGracePeriod is how long a scheduled event stays restorable.
const DeletionGracePeriod = 10 * 24 * time.Hour

// EventStore is the persistence surface the lifecycle controller needs.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	SetDeleteScheduledAt(ctx context.Context, id uuid.UUID, at *time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListDue(ctx context.Context, now time.Time) ([]models.Event, error)
}

// AssetDeleter removes one externally stored media object; satisfied by
// storage.S3.
type AssetDeleter interface {
	DeleteByURL(ctx context.Context, url string) error
}

// Lifecycle owns event state transitions: Active -> ScheduledForDeletion ->
// Deleted, with cancel back to Active and force-delete from either state.
// Callers only request transitions; nothing else mutates delete_scheduled_at.
type Lifecycle struct {
	store  EventStore
	assets AssetDeleter
	logger *zap.Logger
	now    func() time.Time
}

// NewLifecycle creates the event lifecycle controller. assets may be nil when
// media storage is not configured.
func NewLifecycle(store EventStore, assets AssetDeleter, logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{store: store, assets: assets, logger: logger, now: time.Now}
}

// ScheduleDeletion moves an event to ScheduledForDeletion, setting the
// deadline to now plus the grace period. Idempotent: scheduling again simply
// resets the deadline.
func (l *Lifecycle) ScheduleDeletion(ctx context.Context, id uuid.UUID) (time.Time, error) {
	at := l.now().Add(DeletionGracePeriod)
	ok, err := l.store.SetDeleteScheduledAt(ctx, id, &at)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule deletion: %w", err)
	}
	if !ok {
		return time.Time{}, ErrNotFound
	}
	return at, nil
}

// CancelScheduledDeletion returns an event to Active. No-op if it was already
// Active.
func (l *Lifecycle) CancelScheduledDeletion(ctx context.Context, id uuid.UUID) error {
	ok, err := l.store.SetDeleteScheduledAt(ctx, id, nil)
	if err != nil {
		return fmt.Errorf("cancel scheduled deletion: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// ForceDelete removes an event immediately, cleaning up its stored media
// first. Capability authorization happens at the handler boundary; this is
// the only transition that requires it.
func (l *Lifecycle) ForceDelete(ctx context.Context, id uuid.UUID) error {
	e, err := l.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if e == nil {
		return ErrNotFound
	}
	l.deleteAssets(ctx, e)
	existed, err := l.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if !existed {
		return ErrNotFound
	}
	return nil
}

// Reclaim finalizes every overdue soft-deletion: media assets first, then the
// record. It runs on each "list active events" read, so enforcement needs no
// scheduler, only that some read happens eventually. Safe to run
// concurrently: already-deleted rows and assets are benign.
func (l *Lifecycle) Reclaim(ctx context.Context) (int, error) {
	due, err := l.store.ListDue(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("list due events: %w", err)
	}
	reclaimed := 0
	for i := range due {
		e := &due[i]
		l.deleteAssets(ctx, e)
		existed, err := l.store.Delete(ctx, e.ID)
		if err != nil {
			// Leave it for the next read rather than failing the whole pass.
			l.logger.Error("reclaim delete failed", zap.Error(err), zap.String("event_id", e.ID.String()))
			continue
		}
		if existed {
			reclaimed++
			l.logger.Info("reclaimed overdue event", zap.String("event_id", e.ID.String()), zap.String("title", e.Title))
		}
	}
	return reclaimed, nil
}

// deleteAssets attempts each media deletion independently. A dangling remote
// asset is preferable to a record that can never be removed, so failures are
// logged and swallowed.
func (l *Lifecycle) deleteAssets(ctx context.Context, e *models.Event) {
	if l.assets == nil {
		return
	}
	for _, url := range e.AssetURLs() {
		if err := l.assets.DeleteByURL(ctx, url); err != nil {
			l.logger.Warn("media cleanup failed",
				zap.Error(err), zap.String("event_id", e.ID.String()), zap.String("url", url))
		}
	}
}
