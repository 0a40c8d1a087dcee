package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/atelier/internal/auth"
	"github.com/atelierhq/atelier/internal/models"
)

const userContextName = "user"

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_token"

// AuthMiddleware validates session tokens and sets the user in the Gin context.
// Every protected route resolves {userId, role} through this middleware; no
// handler accepts anonymous access.
func AuthMiddleware(authService *auth.Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := GetSessionTokenFromContext(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}

		user, err := authService.ValidateSession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}

		c.Set(userContextName, user)
		c.Next()
	}
}

// GetUserFromContext retrieves the user from the Gin context
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	val, ok := c.Get(userContextName)
	if !ok {
		return nil, false
	}
	user, ok := val.(*models.User)
	return user, ok
}

// RequireAuth is a helper that checks if user is authenticated, writing error response if not
func RequireAuth(c *gin.Context) (*models.User, bool) {
	user, ok := GetUserFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return nil, false
	}
	return user, true
}

// GetSessionTokenFromContext extracts the session token from the session
// cookie or the Authorization header.
func GetSessionTokenFromContext(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
