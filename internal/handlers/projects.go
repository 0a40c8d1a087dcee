package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/services"
)

// ProjectHandler handles project endpoints
type ProjectHandler struct {
	projectService *services.ProjectService
	logger         *zap.Logger
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projectService *services.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, logger: logger}
}

// List returns the caller-visible projects, filtered, sorted and paginated.
func (h *ProjectHandler) List(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	filter := services.ProjectListFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
	}
	if filter.Status != "" && !models.ValidProjectStatus(filter.Status) {
		respondValidation(c, map[string]string{"status": "unknown status"})
		return
	}
	if filter.Priority != "" && !models.ValidPriority(filter.Priority) {
		respondValidation(c, map[string]string{"priority": "unknown priority"})
		return
	}

	projects, meta, err := h.projectService.List(c.Request.Context(), sc, filter,
		c.Query("sortBy"), c.Query("order") != "asc", parsePage(c))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondPage(c, projects, meta)
}

// Get retrieves one visible project by id.
func (h *ProjectHandler) Get(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), sc, id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, project)
}

// CreateProjectRequest represents a project creation request
type CreateProjectRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ClientID    string     `json:"clientId"`
	Managers    []string   `json:"managers"`
	Priority    string     `json:"priority"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Budget      float64    `json:"budget"`
	Tags        []string   `json:"tags"`
}

// Create creates a new project. Route-gated to super_admin.
func (h *ProjectHandler) Create(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	if req.Title == "" || len(req.Title) > 200 {
		fields["title"] = "title is required and must be at most 200 characters"
	}
	if req.Priority == "" {
		req.Priority = string(models.PriorityMedium)
	} else if !models.ValidPriority(req.Priority) {
		fields["priority"] = "unknown priority"
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		fields["clientId"] = "must be a valid user id"
	}
	managers := make([]primitive.ObjectID, 0, len(req.Managers))
	for _, m := range req.Managers {
		id, err := primitive.ObjectIDFromHex(m)
		if err != nil {
			fields["managers"] = "must be a list of valid user ids"
			break
		}
		managers = append(managers, id)
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), sc, services.CreateProjectParams{
		Title:       req.Title,
		Description: req.Description,
		ClientID:    clientID,
		Managers:    managers,
		Priority:    models.Priority(req.Priority),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
		Tags:        req.Tags,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, project)
}

// UpdateProjectRequest represents a partial project update
type UpdateProjectRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Budget      *float64   `json:"budget"`
	Tags        []string   `json:"tags"`
	Managers    []string   `json:"managers"`
}

// Update applies a partial update to a project the caller manages.
func (h *ProjectHandler) Update(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	params := services.UpdateProjectParams{
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
		Tags:        req.Tags,
	}
	if req.Title != nil {
		if *req.Title == "" || len(*req.Title) > 200 {
			fields["title"] = "title must be 1-200 characters"
		}
		params.Title = req.Title
	}
	if req.Status != nil {
		if !models.ValidProjectStatus(*req.Status) {
			fields["status"] = "unknown status"
		}
		status := models.ProjectStatus(*req.Status)
		params.Status = &status
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			fields["priority"] = "unknown priority"
		}
		priority := models.Priority(*req.Priority)
		params.Priority = &priority
	}
	if req.Managers != nil {
		managers := make([]primitive.ObjectID, 0, len(req.Managers))
		for _, m := range req.Managers {
			mid, err := primitive.ObjectIDFromHex(m)
			if err != nil {
				fields["managers"] = "must be a list of valid user ids"
				break
			}
			managers = append(managers, mid)
		}
		params.Managers = managers
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), sc, id, params)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, project)
}

// Delete removes a project and everything referencing it. Route-gated to
// super_admin.
func (h *ProjectHandler) Delete(c *gin.Context) {
	if _, _, ok := currentScope(c); !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondMessage(c, "project deleted")
}
