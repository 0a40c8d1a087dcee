package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atelierhq/atelier/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser injects an authenticated user the way the auth middleware does.
func asUser(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", &models.User{ID: primitive.NewObjectID(), Role: role, IsActive: true})
		c.Next()
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestParsePageDefaultsAndClamping(t *testing.T) {
	var got models.PageRequest
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		got = parsePage(c)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		query string
		want  models.PageRequest
	}{
		{"", models.PageRequest{Page: 1, Limit: 20}},
		{"?page=3&limit=50", models.PageRequest{Page: 3, Limit: 50}},
		{"?page=0&limit=1000", models.PageRequest{Page: 1, Limit: 100}},
		{"?page=abc&limit=-2", models.PageRequest{Page: 1, Limit: 20}},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
		r.ServeHTTP(w, req)
		require.Equal(t, tt.want, got, "query %q", tt.query)
	}
}

func TestParseIDParamRejectsMalformedIDs(t *testing.T) {
	r := gin.New()
	r.GET("/items/:id", func(c *gin.Context) {
		if _, ok := parseIDParam(c, "id"); !ok {
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/not-a-hex-id", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, false, body["success"])
	fields := body["fields"].(map[string]interface{})
	require.Contains(t, fields, "id")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+primitive.NewObjectID().Hex(), nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCurrentScopeWithoutUser(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if _, _, ok := currentScope(c); !ok {
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjectCreateValidation(t *testing.T) {
	// Validation failures never reach the service, so a nil service is safe.
	h := NewProjectHandler(nil, nil)
	r := gin.New()
	r.POST("/projects", asUser(models.RoleSuperAdmin), h.Create)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"malformed json", "{", http.StatusBadRequest, ""},
		{"missing title", `{"clientId":"` + primitive.NewObjectID().Hex() + `"}`, http.StatusBadRequest, "title"},
		{"bad clientId", `{"title":"Penthouse","clientId":"nope"}`, http.StatusBadRequest, "clientId"},
		{"bad priority", `{"title":"Penthouse","clientId":"` + primitive.NewObjectID().Hex() + `","priority":"urgent-ish"}`, http.StatusBadRequest, "priority"},
		{"bad manager id", `{"title":"Penthouse","clientId":"` + primitive.NewObjectID().Hex() + `","managers":["x"]}`, http.StatusBadRequest, "managers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantField != "" {
				body := decodeBody(t, w)
				fields := body["fields"].(map[string]interface{})
				require.Contains(t, fields, tt.wantField)
			}
		})
	}
}

func TestTaskCreateValidation(t *testing.T) {
	h := NewTaskHandler(nil, nil)
	r := gin.New()
	r.POST("/tasks", asUser(models.RoleProjectManager), h.Create)

	body := `{"title":"","projectId":"bad","priority":"nope"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decodeBody(t, w)["fields"].(map[string]interface{})
	require.Contains(t, fields, "title")
	require.Contains(t, fields, "projectId")
	require.Contains(t, fields, "priority")
}

func TestMessageSendValidation(t *testing.T) {
	h := NewMessageHandler(nil, nil)
	r := gin.New()
	r.POST("/messages", asUser(models.RoleClient), h.Send)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"recipientId":"zzz","body":""}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decodeBody(t, w)["fields"].(map[string]interface{})
	require.Contains(t, fields, "recipientId")
	require.Contains(t, fields, "body")
}

func TestCalendarListWindowValidation(t *testing.T) {
	h := NewCalendarHandler(nil, nil)
	r := gin.New()
	r.GET("/calendar", asUser(models.RoleClient), h.List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar?from=yesterday", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/calendar?from=2026-09-10T00:00:00Z&to=2026-09-01T00:00:00Z", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decodeBody(t, w)["fields"].(map[string]interface{})
	require.Contains(t, fields, "to")
}
