package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-chapter/backend/internal/models"
	"github.com/nexus-chapter/backend/internal/tokens"
)

type memLinkTokenStore struct {
	mu     sync.Mutex
	tokens map[string]models.InviteToken
}

func newMemLinkTokenStore() *memLinkTokenStore {
	return &memLinkTokenStore{tokens: make(map[string]models.InviteToken)}
}

func (s *memLinkTokenStore) key(kind models.TokenKind, token string) string {
	return string(kind) + "/" + token
}

func (s *memLinkTokenStore) Insert(_ context.Context, t *models.InviteToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[s.key(t.Kind, t.Token)] = *t
	return nil
}

func (s *memLinkTokenStore) GetByToken(_ context.Context, kind models.TokenKind, token string) (*models.InviteToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[s.key(kind, token)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *memLinkTokenStore) Delete(_ context.Context, kind models.TokenKind, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(kind, token)
	if _, ok := s.tokens[k]; !ok {
		return false, nil
	}
	delete(s.tokens, k)
	return true, nil
}

func (s *memLinkTokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, t := range s.tokens {
		if t.ExpiresAt.Before(now) {
			delete(s.tokens, k)
			n++
		}
	}
	return n, nil
}

type memEventCreator struct {
	mu      sync.Mutex
	created []models.Event
}

func (s *memEventCreator) Create(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	s.created = append(s.created, *e)
	return nil
}

func newLinkTestRouter(t *testing.T) (*gin.Engine, *memEventCreator, *memLinkTokenStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	creator := &memEventCreator{}
	store := newMemLinkTokenStore()
	h := NewLinkHandler(tokens.NewIssuer(store), creator, "http://localhost:3000", nil)

	r := gin.New()
	r.POST("/events/upload-link", h.CreateUploadLink)
	r.DELETE("/events/upload-link/:token", h.RevokeUploadLink)
	r.GET("/events/upload-by-link/:token", h.ValidateUploadLink)
	r.POST("/events/upload-by-link/:token", h.UploadByLink)
	return r, creator, store
}

func mintUploadLink(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/upload-link", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data struct {
			Token     string `json:"token"`
			UploadURL string `json:"upload_url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	require.Contains(t, resp.Data.UploadURL, resp.Data.Token)
	return resp.Data.Token
}

func uploadByLink(t *testing.T, r *gin.Engine, token string, req EventRequest) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq := httptest.NewRequest(http.MethodPost, "/events/upload-by-link/"+token, bytes.NewReader(raw))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httpReq)
	return w
}

func TestUploadByLinkCreatesEventWithoutCreator(t *testing.T) {
	r, creator, _ := newLinkTestRouter(t)
	token := mintUploadLink(t, r)

	w := uploadByLink(t, r, token, EventRequest{Title: "Tech Talk", EventDate: "2026-09-15", Venue: "Auditorium"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, creator.created, 1)
	e := creator.created[0]
	assert.Equal(t, "Tech Talk", e.Title)
	assert.Nil(t, e.CreatedBy)
	require.NotNil(t, e.EventDate)
	assert.Equal(t, "2026-09-15", e.EventDate.Format("2006-01-02"))
}

func TestUploadLinkIsMultiUse(t *testing.T) {
	r, creator, _ := newLinkTestRouter(t)
	token := mintUploadLink(t, r)

	for _, title := range []string{"First", "Second", "Third"} {
		w := uploadByLink(t, r, token, EventRequest{Title: title})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	assert.Len(t, creator.created, 3)
}

func TestUploadByLinkRejectsBadDate(t *testing.T) {
	r, creator, _ := newLinkTestRouter(t)
	token := mintUploadLink(t, r)

	w := uploadByLink(t, r, token, EventRequest{Title: "Bad Date", EventDate: "15-09-2026"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, creator.created)
}

func TestRevokedUploadLinkStopsWorking(t *testing.T) {
	r, creator, _ := newLinkTestRouter(t)
	token := mintUploadLink(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/events/upload-link/"+token, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = uploadByLink(t, r, token, EventRequest{Title: "Too Late"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired link")
	assert.Empty(t, creator.created)

	// Revoking again reports the link as gone.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/events/upload-link/"+token, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExpiredAndUnknownUploadLinksLookIdentical(t *testing.T) {
	r, _, store := newLinkTestRouter(t)

	expired := &models.InviteToken{
		ID:        uuid.New(),
		Kind:      models.TokenKindEventUpload,
		Token:     "cafef00d",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.Insert(context.Background(), expired))

	var bodies []string
	for _, token := range []string{"cafef00d", "never-issued"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/upload-by-link/"+token, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		bodies = append(bodies, w.Body.String())
	}
	assert.Equal(t, bodies[0], bodies[1])
}
