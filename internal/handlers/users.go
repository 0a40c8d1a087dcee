package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/services"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userService *services.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// List returns users, optionally filtered by role.
func (h *UserHandler) List(c *gin.Context) {
	if _, _, ok := currentScope(c); !ok {
		return
	}

	role := c.Query("role")
	if role != "" && !models.ValidRole(role) {
		respondValidation(c, map[string]string{"role": "unknown role"})
		return
	}

	users, meta, err := h.userService.List(c.Request.Context(), role, parsePage(c))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondPage(c, users, meta)
}

// Get retrieves one user by id.
func (h *UserHandler) Get(c *gin.Context) {
	if _, _, ok := currentScope(c); !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, user.ToResponse())
}

// CreateUserRequest represents a user creation request
type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create registers a new user account. Route-gated to super_admin.
func (h *UserHandler) Create(c *gin.Context) {
	if _, _, ok := currentScope(c); !ok {
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fields["email"] = "a valid email is required"
	}
	if req.Name == "" || len(req.Name) > 100 {
		fields["name"] = "name is required and must be at most 100 characters"
	}
	if len(req.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if !models.ValidRole(req.Role) {
		fields["role"] = "unknown role"
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), req.Email, req.Name, req.Phone, req.Password, models.Role(req.Role))
	if err != nil {
		if err == services.ErrConflict {
			respondError(c, http.StatusConflict, "email already in use")
			return
		}
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, user.ToResponse())
}

// UpdateProfileRequest represents a profile update
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Update changes a user's profile. Permitted for the user themselves or a
// super admin.
func (h *UserHandler) Update(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if id != sc.UserID && !sc.IsAdmin() {
		respondError(c, http.StatusForbidden, "forbidden")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || len(req.Name) > 100 {
		respondValidation(c, map[string]string{"name": "name is required and must be at most 100 characters"})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), id, req.Name, req.Phone)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, user.ToResponse())
}

// ActiveStateRequest toggles an account's active flag.
type ActiveStateRequest struct {
	Active *bool `json:"active"`
}

// SetActive activates or deactivates an account. Deactivation blocks login
// and invalidates existing sessions on their next use. Route-gated to
// super_admin.
func (h *UserHandler) SetActive(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ActiveStateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		respondValidation(c, map[string]string{"active": "active is required"})
		return
	}
	if id == sc.UserID && !*req.Active {
		respondValidation(c, map[string]string{"active": "cannot deactivate your own account"})
		return
	}

	user, err := h.userService.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, user.ToResponse())
}
