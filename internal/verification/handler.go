// Package verification implements the email OTP flow with out-of-band
// autofill: the client requests a code and receives a poll token; the code
// goes out by email together with an allow-autofill link; once the recipient
// clicks it, the client's next poll retrieves the code exactly once.
package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexus-chapter/backend/internal/models"
	"github.com/nexus-chapter/backend/internal/tokens"
	"github.com/nexus-chapter/backend/pkg/queue"
	"github.com/nexus-chapter/backend/pkg/response"
)

const codeDigits = 6

// ChallengeStore persists verification challenges.
type ChallengeStore interface {
	Create(ctx context.Context, ch *models.VerificationChallenge) error
	AllowAutofill(ctx context.Context, pollToken string) (bool, error)
	ConsumeByPollToken(ctx context.Context, pollToken string) (email, code string, ok bool, err error)
	CheckCode(ctx context.Context, email, code string) (bool, error)
}

// EmailEnqueuer hands OTP mail to the background worker.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// ResendLimiter rate-limits OTP requests per email address.
type ResendLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
}

// SendOTPRequest is the body for POST /auth/sendotp.
type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyOTPRequest is the body for POST /auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// Handler handles OTP HTTP endpoints.
type Handler struct {
	store   ChallengeStore
	emails  EmailEnqueuer
	limiter ResendLimiter
	baseURL string
	logger  *zap.Logger
}

// NewHandler creates a verification handler. limiter may be nil to disable
// rate limiting (tests).
func NewHandler(store ChallengeStore, emails EmailEnqueuer, limiter ResendLimiter, baseURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, emails: emails, limiter: limiter, baseURL: baseURL, logger: logger}
}

// SendOTP handles POST /auth/sendotp: creates a challenge, mails the code
// with an allow-autofill link, and returns the poll token.
func (h *Handler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(c.Request.Context(), email)
		if err != nil {
			h.logger.Warn("resend limiter unavailable", zap.Error(err))
		} else if !allowed {
			response.Conflict(c, "a code was sent recently, try again in a minute")
			return
		}
	}

	code, err := generateCode()
	if err != nil {
		response.Internal(c, "failed to generate code")
		return
	}
	pollToken, err := tokens.GenerateToken()
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	ch := &models.VerificationChallenge{
		Email:     email,
		Code:      code,
		PollToken: &pollToken,
	}
	if err := h.store.Create(c.Request.Context(), ch); err != nil {
		h.logger.Error("create challenge failed", zap.Error(err))
		response.Internal(c, "failed to create verification")
		return
	}

	allowURL := h.baseURL + "/auth/allow-autofill?token=" + pollToken
	payload := queue.EmailPayload{
		RecipientEmail: email,
		Subject:        "Your verification code",
		BodyHTML: fmt.Sprintf(
			"<p>Your verification code is <b>%s</b>.</p><p><a href=%q>Click here</a> to fill it in automatically.</p>",
			code, allowURL),
		BodyText: fmt.Sprintf("Your verification code is %s. Open %s to fill it in automatically.", code, allowURL),
	}
	if err := h.emails.EnqueueEmail(c.Request.Context(), payload); err != nil {
		// Soft fail: the code is stored, delivery can be retried by resending.
		h.logger.Error("enqueue otp email failed", zap.Error(err), zap.String("email", email))
	}

	response.OK(c, gin.H{"poll_token": pollToken})
}

// AllowAutofill handles GET /auth/allow-autofill?token= (the emailed link).
func (h *Handler) AllowAutofill(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "token required")
		return
	}
	ok, err := h.store.AllowAutofill(c.Request.Context(), token)
	if err != nil {
		h.logger.Error("allow autofill failed", zap.Error(err))
		response.Internal(c, "failed to confirm")
		return
	}
	if !ok {
		response.NotFound(c, "invalid or expired link")
		return
	}
	response.OK(c, gin.H{"autofill_allowed": true})
}

// OTPAutofill handles GET /auth/otp-autofill?token= (polled by the client).
// Responds 404 until the recipient has allowed autofill, and 404 again after
// the first successful retrieval: consumption is single-use and atomic.
func (h *Handler) OTPAutofill(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "token required")
		return
	}
	email, code, ok, err := h.store.ConsumeByPollToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Error("consume challenge failed", zap.Error(err))
		response.Internal(c, "failed to retrieve code")
		return
	}
	if !ok {
		response.NotFound(c, "invalid or expired link")
		return
	}
	response.OK(c, gin.H{"email": email, "code": code})
}

// VerifyOTP handles POST /auth/verify-otp: checks a manually entered code
// against the most recent challenge for the email.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ok, err := h.store.CheckCode(c.Request.Context(), email, req.Code)
	if err != nil {
		h.logger.Error("check code failed", zap.Error(err))
		response.Internal(c, "failed to verify code")
		return
	}
	if !ok {
		response.BadRequest(c, "invalid verification code")
		return
	}
	response.OK(c, gin.H{"verified": true})
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
