package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-chapter/backend/internal/models"
	"github.com/nexus-chapter/backend/pkg/response"
	"github.com/nexus-chapter/backend/pkg/utils"
)

// CodeChecker verifies a submitted OTP code against the most recent challenge
// for an email; satisfied by verification.Repository.
type CodeChecker interface {
	CheckCode(ctx context.Context, email, code string) (bool, error)
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
	Code     string `json:"code" binding:"required"` // OTP from /auth/sendotp
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	codes  CodeChecker
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, codes CodeChecker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, codes: codes, logger: logger}
}

// Signup handles POST /auth/signup. The email must have completed OTP
// verification: the submitted code is checked against the most recent
// challenge for that address.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ok, err := h.codes.CheckCode(c.Request.Context(), email, req.Code)
	if err != nil {
		h.logger.Error("otp check failed", zap.Error(err))
		response.Internal(c, "failed to verify code")
		return
	}
	if !ok {
		response.BadRequest(c, "invalid verification code")
		return
	}

	if _, err := h.repo.GetByEmail(c.Request.Context(), email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), email, hash, req.FullName, models.RoleMember)
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create account")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// List handles GET /users (admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// UpdateRoleRequest is the body for PATCH /users/:id/role.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateRole handles PATCH /users/:id/role (admin only). Roles feed the
// capability registry, so this is how office bearers are appointed.
func (h *Handler) UpdateRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidRole(req.Role) {
		response.BadRequest(c, "unknown role: "+req.Role)
		return
	}
	if err := h.repo.UpdateRole(c.Request.Context(), id, models.Role(req.Role)); err != nil {
		h.logger.Error("update role failed", zap.Error(err), zap.String("user_id", id.String()))
		response.Internal(c, "failed to update role")
		return
	}
	response.OK(c, gin.H{"updated": true})
}
