package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/authz"
	"github.com/atelierhq/atelier/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withUser(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(userContextName, &models.User{ID: primitive.NewObjectID(), Role: role, IsActive: true})
		c.Next()
	}
}

func TestAuthorize(t *testing.T) {
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)
	logger := zap.NewNop()

	r := gin.New()
	r.POST("/projects",
		withUser(models.RoleProjectManager),
		Authorize(enforcer, logger, authz.ResourceProject, authz.ActionCreate),
		func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/projects",
		withUser(models.RoleProjectManager),
		Authorize(enforcer, logger, authz.ResourceProject, authz.ActionList),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/unauthenticated",
		Authorize(enforcer, logger, authz.ResourceProject, authz.ActionList),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	// project_manager may list but not create projects.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects", nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	// No user in context means 401, not 403.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unauthenticated", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetSessionTokenFromContext(t *testing.T) {
	var token string
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		token = GetSessionTokenFromContext(c)
		c.Status(http.StatusOK)
	})

	// Cookie wins over the Authorization header.
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "cookie-token", token)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "header-token", token)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "", token)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("http://localhost:5173"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	require.Equal(t, "Content-Disposition", w.Header().Get("Access-Control-Expose-Headers"))

	// Unknown origins get no allow headers, credentialed or otherwise.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(60, 2))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
