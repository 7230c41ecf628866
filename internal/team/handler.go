// Package team manages the chapter's department rosters and the join-by-link
// flow: an authenticated member mints a 12-hour invite link scoped to one
// department, and anyone holding the link can add themselves to that roster
// until it expires.
package team

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexus-chapter/backend/internal/models"
	"github.com/nexus-chapter/backend/internal/tokens"
	"github.com/nexus-chapter/backend/pkg/response"
)

// Departments lists the chapter's rostered departments.
var Departments = []string{"Technical", "Design", "Marketing", "Content", "Events"}

// ValidDepartment reports whether s names a rostered department.
func ValidDepartment(s string) bool {
	for _, d := range Departments {
		if d == s {
			return true
		}
	}
	return false
}

// InviteRequest is the body for POST /team/invite-link.
type InviteRequest struct {
	Department string `json:"department" binding:"required"`
}

// JoinRequest is the body for POST /team/join/:token.
type JoinRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	RollNo      string `json:"roll_no"`
	LinkedinURL string `json:"linkedin_url"`
}

// AddMemberRequest is the body for POST /team (organizer direct add).
type AddMemberRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Department  string `json:"department" binding:"required"`
	RollNo      string `json:"roll_no"`
	LinkedinURL string `json:"linkedin_url"`
}

// MemberStore persists roster entries. Implemented by Repository.
type MemberStore interface {
	AddMember(ctx context.Context, m *models.TeamMember) error
	ListByDepartment(ctx context.Context, department string) ([]models.TeamMember, error)
}

// Handler handles team HTTP endpoints.
type Handler struct {
	repo    MemberStore
	issuer  *tokens.Issuer
	baseURL string
	logger  *zap.Logger
}

// NewHandler creates a team handler.
func NewHandler(repo MemberStore, issuer *tokens.Issuer, baseURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, issuer: issuer, baseURL: baseURL, logger: logger}
}

// CreateInviteLink handles POST /team/invite-link (authenticated): mints a
// 12-hour multi-use join link scoped to one department.
func (h *Handler) CreateInviteLink(c *gin.Context) {
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !ValidDepartment(req.Department) {
		response.BadRequest(c, "unknown department: "+req.Department)
		return
	}
	t, err := h.issuer.Mint(c.Request.Context(), models.TokenKindTeamJoin, req.Department, tokens.LinkTTL)
	if err != nil {
		h.logger.Error("mint invite link failed", zap.Error(err))
		response.Internal(c, "failed to create invite link")
		return
	}
	response.Created(c, gin.H{
		"token":      t.Token,
		"department": t.Scope,
		"join_url":   h.baseURL + "/team/join/" + t.Token,
		"expires_at": t.ExpiresAt,
	})
}

// ValidateInvite handles GET /team/join/:token: public pre-flight that tells
// the join form which department the link opens.
func (h *Handler) ValidateInvite(c *gin.Context) {
	t, err := h.issuer.Validate(c.Request.Context(), models.TokenKindTeamJoin, c.Param("token"))
	if err != nil {
		h.rejectLink(c, err)
		return
	}
	response.OK(c, gin.H{"valid": true, "department": t.Scope, "expires_at": t.ExpiresAt})
}

// Join handles POST /team/join/:token: validates the link and adds the caller
// to the roster of the department the token is scoped to. The link stays
// usable for others until it expires.
func (h *Handler) Join(c *gin.Context) {
	t, err := h.issuer.Validate(c.Request.Context(), models.TokenKindTeamJoin, c.Param("token"))
	if err != nil {
		h.rejectLink(c, err)
		return
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m := &models.TeamMember{
		FullName:    req.FullName,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Department:  t.Scope,
		RollNo:      req.RollNo,
		LinkedinURL: req.LinkedinURL,
	}
	if err := h.repo.AddMember(c.Request.Context(), m); err != nil {
		h.logger.Error("join by link failed", zap.Error(err), zap.String("department", t.Scope))
		response.Internal(c, "failed to join team")
		return
	}
	response.Created(c, m)
}

// List handles GET /team?department= (authenticated).
func (h *Handler) List(c *gin.Context) {
	department := c.Query("department")
	if department != "" && !ValidDepartment(department) {
		response.BadRequest(c, "unknown department: "+department)
		return
	}
	list, err := h.repo.ListByDepartment(c.Request.Context(), department)
	if err != nil {
		h.logger.Error("list team failed", zap.Error(err))
		response.Internal(c, "failed to list team")
		return
	}
	response.OK(c, list)
}

// AddMember handles POST /team (organizer roles): direct roster add without a
// link.
func (h *Handler) AddMember(c *gin.Context) {
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !ValidDepartment(req.Department) {
		response.BadRequest(c, "unknown department: "+req.Department)
		return
	}
	m := &models.TeamMember{
		FullName:    req.FullName,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Department:  req.Department,
		RollNo:      req.RollNo,
		LinkedinURL: req.LinkedinURL,
	}
	if err := h.repo.AddMember(c.Request.Context(), m); err != nil {
		h.logger.Error("add member failed", zap.Error(err))
		response.Internal(c, "failed to add member")
		return
	}
	response.Created(c, m)
}

// rejectLink answers every token failure identically so the public caller
// cannot tell a never-issued token from an expired one.
func (h *Handler) rejectLink(c *gin.Context, err error) {
	if !errors.Is(err, tokens.ErrNotFound) && !errors.Is(err, tokens.ErrExpired) {
		h.logger.Error("invite link validation failed", zap.Error(err))
		response.Internal(c, "failed to validate link")
		return
	}
	response.NotFound(c, "invalid or expired link")
}
