package permissions

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexus-chapter/backend/internal/middleware"
	"github.com/nexus-chapter/backend/internal/models"
	"github.com/nexus-chapter/backend/pkg/response"
)

// GrantRequest is the body for granting an extra role.
type GrantRequest struct {
	Role string `json:"role" binding:"required"`
}

// Handler exposes registry CRUD per capability. Mutations are gated on the
// capability's own manager role list, which is narrower than the capability
// itself.
type Handler struct {
	registry *Registry
	logger   *zap.Logger
}

// NewHandler creates a permissions handler.
func NewHandler(registry *Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, logger: logger}
}

// List handles GET for a capability's access list. Readable by any role that
// may manage the list.
func (h *Handler) List(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.requireManager(c, capability) {
			return
		}
		core, extra, err := h.registry.ListAuthorized(c.Request.Context(), capability)
		if err != nil {
			h.logger.Error("list authorized failed", zap.Error(err), zap.String("capability", string(capability)))
			response.Internal(c, "failed to load access list")
			return
		}
		response.OK(c, gin.H{
			"capability":  capability,
			"core_roles":  core,
			"extra_roles": extra,
		})
	}
}

// Add handles POST: grant an extra role for a capability.
func (h *Handler) Add(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.requireManager(c, capability) {
			return
		}
		var req GrantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		if !models.ValidRole(req.Role) {
			response.BadRequest(c, "unknown role: "+req.Role)
			return
		}
		if err := h.registry.AddExtraRole(c.Request.Context(), capability, req.Role); err != nil {
			if errors.Is(err, ErrInvalidRole) {
				response.BadRequest(c, fmt.Sprintf("%s is a core %s role and is always authorized", req.Role, capability))
				return
			}
			h.logger.Error("grant role failed", zap.Error(err), zap.String("capability", string(capability)), zap.String("role", req.Role))
			response.Internal(c, "failed to grant role")
			return
		}
		response.OK(c, gin.H{"capability": capability, "role": req.Role, "granted": true})
	}
}

// Remove handles DELETE /:role, revoking an extra role for a capability.
func (h *Handler) Remove(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.requireManager(c, capability) {
			return
		}
		role := c.Param("role")
		if err := h.registry.RemoveExtraRole(c.Request.Context(), capability, role); err != nil {
			if errors.Is(err, ErrInvalidRole) {
				response.BadRequest(c, fmt.Sprintf("%s is a core %s role and cannot be revoked", role, capability))
				return
			}
			h.logger.Error("revoke role failed", zap.Error(err), zap.String("capability", string(capability)), zap.String("role", role))
			response.Internal(c, "failed to revoke role")
			return
		}
		response.OK(c, gin.H{"capability": capability, "role": role, "granted": false})
	}
}

func (h *Handler) requireManager(c *gin.Context, capability models.Capability) bool {
	roleVal, ok := c.Get(middleware.ContextUserRole)
	if !ok {
		response.Unauthorized(c, "missing user context")
		c.Abort()
		return false
	}
	role, _ := roleVal.(string)
	if !h.registry.CanManage(capability, role) {
		response.Forbidden(c, fmt.Sprintf("only %v may manage %s access", h.registry.ManagerRoles(capability), capability))
		c.Abort()
		return false
	}
	return true
}
