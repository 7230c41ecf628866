package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nexus-chapter/backend/internal/models"
	"github.com/nexus-chapter/backend/pkg/response"
)

// CapabilityChecker answers capability checks; satisfied by permissions.Registry.
type CapabilityChecker interface {
	IsAuthorized(ctx context.Context, capability models.Capability, role string) (bool, error)
}

// RequireCapability returns a middleware that allows only roles currently
// authorized for the capability, core or granted.
func RequireCapability(checker CapabilityChecker, capability models.Capability, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		authorized, err := checker.IsAuthorized(c.Request.Context(), capability, role)
		if err != nil {
			logger.Error("capability check failed", zap.Error(err), zap.String("capability", string(capability)))
			response.Internal(c, "authorization check failed")
			c.Abort()
			return
		}
		if !authorized {
			response.Forbidden(c, fmt.Sprintf("role %s is not authorized for %s", role, capability))
			c.Abort()
			return
		}
		c.Next()
	}
}
