package events

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexus-chapter/backend/internal/models"
	"github.com/nexus-chapter/backend/internal/tokens"
	"github.com/nexus-chapter/backend/pkg/response"
)

// LinkHandler implements publish-by-link: an organizer with upload access
// mints a 12-hour shareable link, and anyone holding it may publish events
// until it expires or is revoked. The link is multi-use; only expiry and
// revocation end it.
type LinkHandler struct {
	issuer  *tokens.Issuer
	repo    EventCreator
	baseURL string
	logger  *zap.Logger
}

// EventCreator persists new events. Implemented by Repository.
type EventCreator interface {
	Create(ctx context.Context, e *models.Event) error
}

// NewLinkHandler creates the upload link handler.
func NewLinkHandler(issuer *tokens.Issuer, repo EventCreator, baseURL string, logger *zap.Logger) *LinkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{issuer: issuer, repo: repo, baseURL: baseURL, logger: logger}
}

// CreateUploadLink handles POST /events/upload-link (upload capability).
func (h *LinkHandler) CreateUploadLink(c *gin.Context) {
	t, err := h.issuer.Mint(c.Request.Context(), models.TokenKindEventUpload, "", tokens.LinkTTL)
	if err != nil {
		h.logger.Error("mint upload link failed", zap.Error(err))
		response.Internal(c, "failed to create upload link")
		return
	}
	response.Created(c, gin.H{
		"token":      t.Token,
		"upload_url": h.baseURL + "/events/upload-by-link/" + t.Token,
		"expires_at": t.ExpiresAt,
	})
}

// RevokeUploadLink handles DELETE /events/upload-link/:token (upload
// capability). Revocation is irreversible: a revoked link cannot be restored,
// only replaced.
func (h *LinkHandler) RevokeUploadLink(c *gin.Context) {
	existed, err := h.issuer.Revoke(c.Request.Context(), models.TokenKindEventUpload, c.Param("token"))
	if err != nil {
		h.logger.Error("revoke upload link failed", zap.Error(err))
		response.Internal(c, "failed to revoke upload link")
		return
	}
	if !existed {
		response.NotFound(c, "link already revoked or never existed")
		return
	}
	response.OK(c, gin.H{"revoked": true})
}

// ValidateUploadLink handles GET /events/upload-by-link/:token: the public
// pre-flight check before the upload form is shown.
func (h *LinkHandler) ValidateUploadLink(c *gin.Context) {
	t, err := h.issuer.Validate(c.Request.Context(), models.TokenKindEventUpload, c.Param("token"))
	if err != nil {
		h.rejectLink(c, err)
		return
	}
	response.OK(c, gin.H{"valid": true, "expires_at": t.ExpiresAt})
}

// UploadByLink handles POST /events/upload-by-link/:token: one privileged
// write per presentation, no account required.
func (h *LinkHandler) UploadByLink(c *gin.Context) {
	if _, err := h.issuer.Validate(c.Request.Context(), models.TokenKindEventUpload, c.Param("token")); err != nil {
		h.rejectLink(c, err)
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := &models.Event{}
	if err := req.apply(e); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// Link-created events carry no creator account.
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event by link failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// rejectLink answers every token failure identically so the public caller
// cannot tell a never-issued token from an expired one.
func (h *LinkHandler) rejectLink(c *gin.Context, err error) {
	if !errors.Is(err, tokens.ErrNotFound) && !errors.Is(err, tokens.ErrExpired) {
		h.logger.Error("upload link validation failed", zap.Error(err))
		response.Internal(c, "failed to validate link")
		return
	}
	response.NotFound(c, "invalid or expired link")
}
