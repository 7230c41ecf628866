package verification

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
	"github.com/nexus-chapter/backend/pkg/queue"
)

type memChallengeStore struct {
	mu         sync.Mutex
	challenges []models.VerificationChallenge
}

func (s *memChallengeStore) Create(_ context.Context, ch *models.VerificationChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch.ID = uuid.New()
	ch.CreatedAt = time.Now().Add(time.Duration(len(s.challenges)) * time.Millisecond)
	s.challenges = append(s.challenges, *ch)
	return nil
}

func (s *memChallengeStore) AllowAutofill(_ context.Context, pollToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.challenges {
		if s.challenges[i].PollToken != nil && *s.challenges[i].PollToken == pollToken {
			s.challenges[i].AutofillAllowed = true
			return true, nil
		}
	}
	return false, nil
}

func (s *memChallengeStore) ConsumeByPollToken(_ context.Context, pollToken string) (string, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.challenges {
		ch := &s.challenges[i]
		if ch.PollToken != nil && *ch.PollToken == pollToken && ch.AutofillAllowed {
			ch.PollToken = nil
			ch.AutofillAllowed = false
			return ch.Email, ch.Code, true, nil
		}
	}
	return "", "", false, nil
}

func (s *memChallengeStore) CheckCode(_ context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.VerificationChallenge
	for i := range s.challenges {
		ch := &s.challenges[i]
		if ch.Email != email {
			continue
		}
		if latest == nil || ch.CreatedAt.After(latest.CreatedAt) {
			latest = ch
		}
	}
	if latest == nil {
		return false, nil
	}
	return latest.Code == code, nil
}

type memEnqueuer struct {
	mu   sync.Mutex
	sent []queue.EmailPayload
}

func (e *memEnqueuer) EnqueueEmail(_ context.Context, payload queue.EmailPayload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, payload)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memChallengeStore, *memEnqueuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := &memChallengeStore{}
	emails := &memEnqueuer{}
	h := NewHandler(store, emails, nil, "http://localhost:3000", nil)

	r := gin.New()
	r.POST("/auth/sendotp", h.SendOTP)
	r.GET("/auth/allow-autofill", h.AllowAutofill)
	r.GET("/auth/otp-autofill", h.OTPAutofill)
	r.POST("/auth/verify-otp", h.VerifyOTP)
	return r, store, emails
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sendOTP(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	w := postJSON(t, r, "/auth/sendotp", gin.H{"email": email})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			PollToken string `json:"poll_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.PollToken)
	return body.Data.PollToken
}

func TestSendOTPEnqueuesEmail(t *testing.T) {
	r, store, emails := newTestRouter(t)

	sendOTP(t, r, "Student@Example.COM")

	require.Len(t, emails.sent, 1)
	assert.Equal(t, "student@example.com", emails.sent[0].RecipientEmail)
	require.Len(t, store.challenges, 1)
	assert.Equal(t, "student@example.com", store.challenges[0].Email)
	assert.Len(t, store.challenges[0].Code, 6)
	assert.False(t, store.challenges[0].AutofillAllowed)
}

func TestOTPAutofillRequiresAllow(t *testing.T) {
	r, _, _ := newTestRouter(t)

	token := sendOTP(t, r, "a@b.edu")

	// 404 until the recipient clicks the emailed link.
	w := get(r, "/auth/otp-autofill?token="+token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(r, "/auth/allow-autofill?token="+token)
	require.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/auth/otp-autofill?token="+token)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Email string `json:"email"`
			Code  string `json:"code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "a@b.edu", body.Data.Email)
	assert.Len(t, body.Data.Code, 6)

	// Spent: a second poll finds nothing.
	w = get(r, "/auth/otp-autofill?token="+token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOTPAutofillConcurrentPollers(t *testing.T) {
	r, _, _ := newTestRouter(t)

	token := sendOTP(t, r, "race@b.edu")
	require.Equal(t, http.StatusOK, get(r, "/auth/allow-autofill?token="+token).Code)

	const pollers = 16
	codes := make(chan int, pollers)
	var wg sync.WaitGroup
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- get(r, "/auth/otp-autofill?token="+token).Code
		}()
	}
	wg.Wait()
	close(codes)

	won, lost := 0, 0
	for code := range codes {
		switch code {
		case http.StatusOK:
			won++
		case http.StatusNotFound:
			lost++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, pollers-1, lost)
}

func TestAllowAutofillUnknownToken(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := get(r, "/auth/allow-autofill?token=never-issued")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(r, "/auth/allow-autofill")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyOTPMostRecentCodeWins(t *testing.T) {
	r, store, _ := newTestRouter(t)

	sendOTP(t, r, "x@b.edu")
	sendOTP(t, r, "x@b.edu")
	require.Len(t, store.challenges, 2)
	oldCode := store.challenges[0].Code
	newCode := store.challenges[1].Code

	w := postJSON(t, r, "/auth/verify-otp", gin.H{"email": "x@b.edu", "code": newCode})
	assert.Equal(t, http.StatusOK, w.Code)

	if oldCode != newCode {
		w = postJSON(t, r, "/auth/verify-otp", gin.H{"email": "x@b.edu", "code": oldCode})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w = postJSON(t, r, "/auth/verify-otp", gin.H{"email": "nobody@b.edu", "code": "000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
