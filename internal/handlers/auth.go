package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/auth"
	"github.com/atelierhq/atelier/internal/middleware"
)

// AuthHandler handles login, logout and the current-user endpoints.
type AuthHandler struct {
	authService  *auth.Auth
	logger       *zap.Logger
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *auth.Auth, logger *zap.Logger, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger, cookieSecure: cookieSecure}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	fields := map[string]string{}
	if req.Email == "" {
		fields["email"] = "email is required"
	}
	if req.Password == "" {
		fields["password"] = "password is required"
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "invalid email or password")
			return
		}
		respondServiceError(c, h.logger, err)
		return
	}

	c.SetCookie(middleware.SessionCookieName, token,
		int(auth.SessionDuration.Seconds()), "/", "", h.cookieSecure, true)
	respondOK(c, http.StatusOK, gin.H{"user": user.ToResponse(), "token": token})
}

// Logout deletes the session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.GetSessionTokenFromContext(c)
	if token != "" {
		if err := h.authService.Logout(c.Request.Context(), token); err != nil {
			respondServiceError(c, h.logger, err)
			return
		}
	}
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.cookieSecure, true)
	respondMessage(c, "logged out")
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	_, user, ok := currentScope(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, user.ToResponse())
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword verifies the current password and replaces it.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	_, user, ok := currentScope(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	fields := map[string]string{}
	if req.CurrentPassword == "" {
		fields["currentPassword"] = "current password is required"
	}
	if len(req.NewPassword) < 8 {
		fields["newPassword"] = "new password must be at least 8 characters"
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(c, http.StatusForbidden, "current password is incorrect")
			return
		}
		respondServiceError(c, h.logger, err)
		return
	}
	respondMessage(c, "password updated")
}
