package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/authz"
)

// Authorize gates a route on the declarative (role, resource, action)
// permission table. It runs after AuthMiddleware, so the user is already in
// the context. Denials are 403: the caller proved who they are, their role
// just may not perform this operation. Ownership scoping stays with the
// handlers and services.
func Authorize(enforcer *authz.Enforcer, logger *zap.Logger, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := RequireAuth(c)
		if !ok {
			return
		}
		allowed, err := enforcer.Can(user.Role, resource, action)
		if err != nil {
			logger.Error("authorize",
				zap.String("role", string(user.Role)),
				zap.String("resource", resource),
				zap.String("action", action),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "forbidden"})
			return
		}
		c.Next()
	}
}
