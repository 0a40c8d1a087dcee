package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/middleware"
	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/scope"
	"github.com/atelierhq/atelier/internal/services"
)

// Every endpoint answers with the same envelope:
// {success, data?, error?, message?}; paginated responses additionally carry
// {page, limit, total, totalPages, hasNext, hasPrev}.

// respondOK writes a success envelope with data.
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondMessage writes a success envelope with a human message only.
func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// respondPage writes a success envelope with a paginated window.
func respondPage(c *gin.Context, data interface{}, meta models.PageMeta) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       data,
		"page":       meta.Page,
		"limit":      meta.Limit,
		"total":      meta.Total,
		"totalPages": meta.TotalPages,
		"hasNext":    meta.HasNext,
		"hasPrev":    meta.HasPrev,
	})
}

// respondError writes a failure envelope.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// respondValidation writes a 400 with per-field messages.
func respondValidation(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "validation failed",
		"fields":  fields,
	})
}

// respondServiceError maps service errors onto the error taxonomy. Anything
// unexpected is logged server-side and surfaced as a generic 500.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrForbidden):
		respondError(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrConflict):
		respondError(c, http.StatusConflict, "already exists")
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

// currentScope resolves the authenticated caller's scope. The auth middleware
// guarantees a user is present on protected routes.
func currentScope(c *gin.Context) (scope.Scope, *models.User, bool) {
	user, ok := middleware.RequireAuth(c)
	if !ok {
		return scope.Scope{}, nil, false
	}
	return scope.ForUser(user), user, true
}

// parseIDParam parses an ObjectID path parameter, writing a validation error
// on malformed input.
func parseIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		respondValidation(c, map[string]string{name: "must be a valid id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// parsePage reads page/limit query parameters with defaults.
func parsePage(c *gin.Context) models.PageRequest {
	page := models.PageRequest{Page: queryInt(c, "page", 1), Limit: queryInt(c, "limit", 20)}
	return page.Normalize()
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n := 0
	for _, ch := range v {
		if ch < '0' || ch > '9' {
			return fallback
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
