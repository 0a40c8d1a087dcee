package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/services"
)

// RiskHandler handles risk-register endpoints
type RiskHandler struct {
	riskService *services.RiskService
	logger      *zap.Logger
}

// NewRiskHandler creates a new RiskHandler
func NewRiskHandler(riskService *services.RiskService, logger *zap.Logger) *RiskHandler {
	return &RiskHandler{riskService: riskService, logger: logger}
}

// List returns caller-visible risks ordered by score, highest first.
func (h *RiskHandler) List(c *gin.Context) {
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

	risks, meta, err := h.riskService.List(c.Request.Context(), sc, projectID, parsePage(c))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondPage(c, risks, meta)
}

// CreateRiskRequest represents a risk creation request
type CreateRiskRequest struct {
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Probability string `json:"probability"`
	Impact      string `json:"impact"`
	OwnerID     string `json:"ownerId"`
}

// Create adds a risk to a project the caller manages.
func (h *RiskHandler) Create(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	var req CreateRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	if req.Title == "" || len(req.Title) > 200 {
		fields["title"] = "title is required and must be at most 200 characters"
	}
	if !models.ValidRiskRating(req.Probability) {
		fields["probability"] = "unknown rating"
	}
	if !models.ValidRiskRating(req.Impact) {
		fields["impact"] = "unknown rating"
	}
	projectID, err := primitive.ObjectIDFromHex(req.ProjectID)
	if err != nil {
		fields["projectId"] = "must be a valid project id"
	}
	var ownerID *primitive.ObjectID
	if req.OwnerID != "" {
		id, err := primitive.ObjectIDFromHex(req.OwnerID)
		if err != nil {
			fields["ownerId"] = "must be a valid user id"
		}
		ownerID = &id
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	risk, err := h.riskService.Create(c.Request.Context(), sc, services.CreateRiskParams{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Probability: models.RiskRating(req.Probability),
		Impact:      models.RiskRating(req.Impact),
		OwnerID:     ownerID,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, risk)
}

// UpdateRiskRequest represents a partial risk update
type UpdateRiskRequest struct {
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	Probability         *string `json:"probability"`
	Impact              *string `json:"impact"`
	ResidualProbability *string `json:"residualProbability"`
	ResidualImpact      *string `json:"residualImpact"`
	OwnerID             *string `json:"ownerId"`
	Status              *string `json:"status"`
}

// Update applies a partial update to a risk and recomputes its scores.
func (h *RiskHandler) Update(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	params := services.UpdateRiskParams{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Title != nil && (*req.Title == "" || len(*req.Title) > 200) {
		fields["title"] = "title must be 1-200 characters"
	}
	rating := func(name string, raw *string) *models.RiskRating {
		if raw == nil {
			return nil
		}
		if !models.ValidRiskRating(*raw) {
			fields[name] = "unknown rating"
		}
		r := models.RiskRating(*raw)
		return &r
	}
	params.Probability = rating("probability", req.Probability)
	params.Impact = rating("impact", req.Impact)
	params.ResidualProbability = rating("residualProbability", req.ResidualProbability)
	params.ResidualImpact = rating("residualImpact", req.ResidualImpact)
	if req.Status != nil {
		if !models.ValidRiskStatus(*req.Status) {
			fields["status"] = "unknown status"
		}
		status := models.RiskStatus(*req.Status)
		params.Status = &status
	}
	if req.OwnerID != nil {
		ownerID, err := primitive.ObjectIDFromHex(*req.OwnerID)
		if err != nil {
			fields["ownerId"] = "must be a valid user id"
		}
		params.OwnerID = &ownerID
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	risk, err := h.riskService.Update(c.Request.Context(), sc, id, params)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, risk)
}

// Delete removes a risk entry. Route-gated to super_admin.
func (h *RiskHandler) Delete(c *gin.Context) {
	if _, _, ok := currentScope(c); !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.riskService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondMessage(c, "risk deleted")
}
