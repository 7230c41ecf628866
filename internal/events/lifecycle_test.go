package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-chapter/backend/internal/models"
)

type memEventStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
}

func newMemEventStore() *memEventStore {
	return &memEventStore{events: make(map[uuid.UUID]*models.Event)}
}

func (s *memEventStore) add(e models.Event) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	s.events[e.ID] = &e
	return e.ID
}

func (s *memEventStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *memEventStore) SetDeleteScheduledAt(_ context.Context, id uuid.UUID, at *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return false, nil
	}
	e.DeleteScheduledAt = at
	return true, nil
}

func (s *memEventStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.events[id]
	delete(s.events, id)
	return ok, nil
}

func (s *memEventStore) ListDue(_ context.Context, now time.Time) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.Event
	for _, e := range s.events {
		if e.DeleteScheduledAt != nil && !e.DeleteScheduledAt.After(now) {
			due = append(due, *e)
		}
	}
	return due, nil
}

type fakeAssetDeleter struct {
	mu      sync.Mutex
	deleted []string
	failOn  map[string]bool
}

func (d *fakeAssetDeleter) DeleteByURL(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOn[url] {
		return errors.New("remote storage unavailable")
	}
	d.deleted = append(d.deleted, url)
	return nil
}

func newTestLifecycle(t *testing.T) (*Lifecycle, *memEventStore, *fakeAssetDeleter, *time.Time) {
	t.Helper()
	store := newMemEventStore()
	assets := &fakeAssetDeleter{failOn: make(map[string]bool)}
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	lc := NewLifecycle(store, assets, nil)
	lc.now = func() time.Time { return now }
	return lc, store, assets, &now
}

func TestScheduleDeletionSetsGracePeriod(t *testing.T) {
	lc, store, _, now := newTestLifecycle(t)
	ctx := context.Background()
	id := store.add(models.Event{Title: "Hack Night"})

	at, err := lc.ScheduleDeletion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, now.Add(DeletionGracePeriod), at)

	// Scheduling again simply resets the deadline.
	*now = now.Add(48 * time.Hour)
	at2, err := lc.ScheduleDeletion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, now.Add(DeletionGracePeriod), at2)
	assert.True(t, at2.After(at))
}

func TestScheduleDeletionUnknownEvent(t *testing.T) {
	lc, _, _, _ := newTestLifecycle(t)

	_, err := lc.ScheduleDeletion(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, lc.CancelScheduledDeletion(context.Background(), uuid.New()), ErrNotFound)
	assert.ErrorIs(t, lc.ForceDelete(context.Background(), uuid.New()), ErrNotFound)
}

func TestCancelReturnsEventToActive(t *testing.T) {
	lc, store, _, now := newTestLifecycle(t)
	ctx := context.Background()
	id := store.add(models.Event{Title: "Orientation"})

	_, err := lc.ScheduleDeletion(ctx, id)
	require.NoError(t, err)
	require.NoError(t, lc.CancelScheduledDeletion(ctx, id))

	e, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, e.DeleteScheduledAt)

	// A reclamation pass after the original deadline must not touch it.
	*now = now.Add(DeletionGracePeriod + time.Hour)
	n, err := lc.Reclaim(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	e, err = store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, e)

	// Cancel on an already-active event is a no-op success.
	require.NoError(t, lc.CancelScheduledDeletion(ctx, id))
}

func TestForceDeleteCleansUpMedia(t *testing.T) {
	lc, store, assets, _ := newTestLifecycle(t)
	ctx := context.Background()
	id := store.add(models.Event{
		Title:     "Tech Talk",
		PosterURL: "https://bucket/poster.png",
		MediaURLs: []string{"https://bucket/a.jpg", "https://bucket/b.jpg"},
	})

	require.NoError(t, lc.ForceDelete(ctx, id))

	e, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.ElementsMatch(t,
		[]string{"https://bucket/poster.png", "https://bucket/a.jpg", "https://bucket/b.jpg"},
		assets.deleted)
}

func TestReclaimFinalizesOverdueEvents(t *testing.T) {
	lc, store, assets, now := newTestLifecycle(t)
	ctx := context.Background()

	overdueID := store.add(models.Event{Title: "Old Workshop", PosterURL: "https://bucket/old.png"})
	activeID := store.add(models.Event{Title: "Upcoming Fest"})
	pendingID := store.add(models.Event{Title: "Pending"})

	_, err := lc.ScheduleDeletion(ctx, overdueID)
	require.NoError(t, err)
	*now = now.Add(DeletionGracePeriod / 2)
	_, err = lc.ScheduleDeletion(ctx, pendingID)
	require.NoError(t, err)
	*now = now.Add(DeletionGracePeriod/2 + time.Second)

	n, err := lc.Reclaim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gone, _ := store.GetByID(ctx, overdueID)
	assert.Nil(t, gone)
	stillActive, _ := store.GetByID(ctx, activeID)
	assert.NotNil(t, stillActive)
	stillPending, _ := store.GetByID(ctx, pendingID)
	assert.NotNil(t, stillPending)
	assert.Equal(t, []string{"https://bucket/old.png"}, assets.deleted)

	// A second pass over the same set is a clean no-op.
	n, err = lc.Reclaim(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReclaimSwallowsAssetFailures(t *testing.T) {
	lc, store, assets, now := newTestLifecycle(t)
	ctx := context.Background()

	id := store.add(models.Event{
		Title:     "Flaky Media",
		PosterURL: "https://bucket/broken.png",
		MediaURLs: []string{"https://bucket/fine.jpg"},
	})
	assets.failOn["https://bucket/broken.png"] = true

	_, err := lc.ScheduleDeletion(ctx, id)
	require.NoError(t, err)
	*now = now.Add(DeletionGracePeriod + time.Second)

	// The failed asset must not block the other asset or the record.
	n, err := lc.Reclaim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	gone, _ := store.GetByID(ctx, id)
	assert.Nil(t, gone)
	assert.Equal(t, []string{"https://bucket/fine.jpg"}, assets.deleted)
}

func TestReclaimWithoutAssetDeleter(t *testing.T) {
	lc, store, _, now := newTestLifecycle(t)
	lc.assets = nil
	ctx := context.Background()

	id := store.add(models.Event{Title: "No Storage", PosterURL: "https://bucket/x.png"})
	_, err := lc.ScheduleDeletion(ctx, id)
	require.NoError(t, err)
	*now = now.Add(DeletionGracePeriod + time.Second)

	n, err := lc.Reclaim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
