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

// MilestoneHandler handles milestone endpoints
type MilestoneHandler struct {
	milestoneService *services.MilestoneService
	logger           *zap.Logger
}

// NewMilestoneHandler creates a new MilestoneHandler
func NewMilestoneHandler(milestoneService *services.MilestoneService, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{milestoneService: milestoneService, logger: logger}
}

// List returns caller-visible milestones ordered by due date.
func (h *MilestoneHandler) List(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	var projectID *primitive.ObjectID
	if raw := c.Query("projectId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respondValidation(c, map[string]string{"projectId": "must be a valid project id"})
			return
		}
		projectID = &id
	}

	milestones, meta, err := h.milestoneService.List(c.Request.Context(), sc, projectID, parsePage(c))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondPage(c, milestones, meta)
}

// CreateMilestoneRequest represents a milestone creation request
type CreateMilestoneRequest struct {
	ProjectID string     `json:"projectId"`
	Title     string     `json:"title"`
	Phase     string     `json:"phase"`
	DueDate   *time.Time `json:"dueDate"`
}

// Create adds a milestone to a project the caller manages.
func (h *MilestoneHandler) Create(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	var req CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	if req.Title == "" || len(req.Title) > 200 {
		fields["title"] = "title is required and must be at most 200 characters"
	}
	if !models.ValidMilestonePhase(req.Phase) {
		fields["phase"] = "unknown phase"
	}
	projectID, err := primitive.ObjectIDFromHex(req.ProjectID)
	if err != nil {
		fields["projectId"] = "must be a valid project id"
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	milestone, err := h.milestoneService.Create(c.Request.Context(), sc, services.CreateMilestoneParams{
		ProjectID: projectID,
		Title:     req.Title,
		Phase:     models.MilestonePhase(req.Phase),
		DueDate:   req.DueDate,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, milestone)
}

// UpdateMilestoneRequest represents a partial milestone update
type UpdateMilestoneRequest struct {
	Title   *string    `json:"title"`
	Phase   *string    `json:"phase"`
	Status  *string    `json:"status"`
	DueDate *time.Time `json:"dueDate"`
}

// Update applies a partial update to a milestone.
func (h *MilestoneHandler) Update(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	params := services.UpdateMilestoneParams{
		Title:   req.Title,
		DueDate: req.DueDate,
	}
	if req.Title != nil && (*req.Title == "" || len(*req.Title) > 200) {
		fields["title"] = "title must be 1-200 characters"
	}
	if req.Phase != nil {
		if !models.ValidMilestonePhase(*req.Phase) {
			fields["phase"] = "unknown phase"
		}
		phase := models.MilestonePhase(*req.Phase)
		params.Phase = &phase
	}
	if req.Status != nil {
		if !models.ValidMilestoneStatus(*req.Status) {
			fields["status"] = "unknown status"
		}
		status := models.MilestoneStatus(*req.Status)
		params.Status = &status
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	milestone, err := h.milestoneService.Update(c.Request.Context(), sc, id, params)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, milestone)
}
