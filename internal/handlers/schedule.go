package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/services"
)

// ScheduleHandler handles site-schedule endpoints
type ScheduleHandler struct {
	scheduleService *services.ScheduleService
	logger          *zap.Logger
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(scheduleService *services.ScheduleService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService, logger: logger}
}

// Get returns a project's schedule tree.
func (h *ScheduleHandler) Get(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	schedule, err := h.scheduleService.Get(c.Request.Context(), sc, projectID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, schedule)
}

// Replace overwrites the whole schedule tree for a managed project.
func (h *ScheduleHandler) Replace(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var schedule models.Schedule
	if err := c.ShouldBindJSON(&schedule); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, phase := range schedule.Phases {
		for _, week := range phase.Weeks {
			for _, act := range week.Activities {
				if act.Title == "" {
					respondValidation(c, map[string]string{"phases": "every activity needs a title"})
					return
				}
				if act.Status != "" && !models.ValidActivityStatus(string(act.Status)) {
					respondValidation(c, map[string]string{"phases": "unknown activity status"})
					return
				}
			}
		}
	}

	project, err := h.scheduleService.Replace(c.Request.Context(), sc, projectID, schedule)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"schedule": project.Schedule, "progress": project.Progress})
}

// UpdateActivityRequest represents a partial activity update
type UpdateActivityRequest struct {
	Title      *string    `json:"title"`
	Contractor *string    `json:"contractor"`
	Supervisor *string    `json:"supervisor"`
	StartDate  *time.Time `json:"startDate"`
	EndDate    *time.Time `json:"endDate"`
	Status     *string    `json:"status"`
	Priority   *string    `json:"priority"`
	Category   *string    `json:"category"`
}

// UpdateActivity patches a single activity within the schedule tree.
func (h *ScheduleHandler) UpdateActivity(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	activityID, ok := parseIDParam(c, "activityId")
	if !ok {
		return
	}

	var req UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	upd := services.ActivityUpdate{
		Title:      req.Title,
		Contractor: req.Contractor,
		Supervisor: req.Supervisor,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Category:   req.Category,
	}
	if req.Title != nil && *req.Title == "" {
		fields["title"] = "title must not be empty"
	}
	if req.Status != nil {
		if !models.ValidActivityStatus(*req.Status) {
			fields["status"] = "unknown status"
		}
		status := models.ActivityStatus(*req.Status)
		upd.Status = &status
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			fields["priority"] = "unknown priority"
		}
		priority := models.Priority(*req.Priority)
		upd.Priority = &priority
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	project, err := h.scheduleService.UpdateActivity(c.Request.Context(), sc, projectID, activityID, upd)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"schedule": project.Schedule, "progress": project.Progress})
}

// ActivityCommentRequest carries an activity comment.
type ActivityCommentRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// AddActivityComment appends a comment to an activity.
func (h *ScheduleHandler) AddActivityComment(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	activityID, ok := parseIDParam(c, "activityId")
	if !ok {
		return
	}

	var req ActivityCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Body == "" || len(req.Body) > 2000 {
		respondValidation(c, map[string]string{"body": "body is required and must be at most 2000 characters"})
		return
	}

	project, err := h.scheduleService.AddActivityComment(c.Request.Context(), sc, projectID, activityID, req.Body, req.Internal)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"schedule": project.Schedule})
}

// DeleteActivity removes an activity and recomputes progress.
func (h *ScheduleHandler) DeleteActivity(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	activityID, ok := parseIDParam(c, "activityId")
	if !ok {
		return
	}

	project, err := h.scheduleService.DeleteActivity(c.Request.Context(), sc, projectID, activityID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"schedule": project.Schedule, "progress": project.Progress})
}
