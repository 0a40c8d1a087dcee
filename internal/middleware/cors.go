package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsMethods covers every verb the API registers, including the PATCH
// aliases for partial updates.
const corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// CORSMiddleware allows browser calls from the configured frontend origin.
// The session cookie makes this a credentialed exchange, so the origin is
// echoed exactly, never wildcarded. Content-Disposition is exposed so file
// downloads keep their attachment names.
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		c.Header("Vary", "Origin")
		if origin != "" && origin == allowedOrigin {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Expose-Headers", "Content-Disposition")
		}

		if c.Request.Method == http.MethodOptions {
			if origin == allowedOrigin {
				c.Header("Access-Control-Allow-Methods", corsMethods)
				c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
				c.Header("Access-Control-Max-Age", "600")
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
