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

// TaskHandler handles task endpoints
type TaskHandler struct {
	taskService *services.TaskService
	logger      *zap.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{taskService: taskService, logger: logger}
}

// List returns the caller-visible tasks, newest first.
func (h *TaskHandler) List(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	var filter services.TaskListFilter
	if raw := c.Query("projectId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respondValidation(c, map[string]string{"projectId": "must be a valid project id"})
			return
		}
		filter.ProjectID = &id
	}
	if raw := c.Query("assigneeId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respondValidation(c, map[string]string{"assigneeId": "must be a valid user id"})
			return
		}
		filter.AssigneeID = &id
	}
	if filter.Status = c.Query("status"); filter.Status != "" && !models.ValidTaskStatus(filter.Status) {
		respondValidation(c, map[string]string{"status": "unknown status"})
		return
	}

	tasks, meta, err := h.taskService.List(c.Request.Context(), sc, filter, parsePage(c))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondPage(c, tasks, meta)
}

// Get retrieves one visible task by id.
func (h *TaskHandler) Get(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), sc, id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, task)
}

// CreateTaskRequest represents a task creation request
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ProjectID   string     `json:"projectId"`
	AssigneeID  string     `json:"assigneeId"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	DependsOn   []string   `json:"dependsOn"`
}

// Create creates a task inside a project the caller manages.
func (h *TaskHandler) Create(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	if req.Title == "" || len(req.Title) > 200 {
		fields["title"] = "title is required and must be at most 200 characters"
	}
	projectID, err := primitive.ObjectIDFromHex(req.ProjectID)
	if err != nil {
		fields["projectId"] = "must be a valid project id"
	}
	var assigneeID primitive.ObjectID
	if req.AssigneeID != "" {
		if assigneeID, err = primitive.ObjectIDFromHex(req.AssigneeID); err != nil {
			fields["assigneeId"] = "must be a valid user id"
		}
	}
	if req.Priority == "" {
		req.Priority = string(models.PriorityMedium)
	} else if !models.ValidPriority(req.Priority) {
		fields["priority"] = "unknown priority"
	}
	dependsOn := make([]primitive.ObjectID, 0, len(req.DependsOn))
	for _, d := range req.DependsOn {
		id, err := primitive.ObjectIDFromHex(d)
		if err != nil {
			fields["dependsOn"] = "must be a list of valid task ids"
			break
		}
		dependsOn = append(dependsOn, id)
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), sc, services.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   projectID,
		AssigneeID:  assigneeID,
		Priority:    models.Priority(req.Priority),
		Deadline:    req.Deadline,
		DependsOn:   dependsOn,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, task)
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	Progress    *int       `json:"progress"`
	AssigneeID  *string    `json:"assigneeId"`
}

// Update applies a partial update to a task the caller may mutate.
func (h *TaskHandler) Update(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	params := services.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
	}
	if req.Title != nil && (*req.Title == "" || len(*req.Title) > 200) {
		fields["title"] = "title must be 1-200 characters"
	}
	if req.Status != nil {
		if !models.ValidTaskStatus(*req.Status) {
			fields["status"] = "unknown status"
		}
		status := models.TaskStatus(*req.Status)
		params.Status = &status
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			fields["priority"] = "unknown priority"
		}
		priority := models.Priority(*req.Priority)
		params.Priority = &priority
	}
	if req.Progress != nil {
		if *req.Progress < 0 || *req.Progress > 100 {
			fields["progress"] = "must be between 0 and 100"
		}
		params.Progress = req.Progress
	}
	if req.AssigneeID != nil {
		assigneeID, err := primitive.ObjectIDFromHex(*req.AssigneeID)
		if err != nil {
			fields["assigneeId"] = "must be a valid user id"
		}
		params.AssigneeID = &assigneeID
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), sc, id, params)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, task)
}

// CommentRequest carries a comment body.
type CommentRequest struct {
	Body string `json:"body"`
}

// AddComment appends a comment to a visible task.
func (h *TaskHandler) AddComment(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Body == "" || len(req.Body) > 2000 {
		respondValidation(c, map[string]string{"body": "body is required and must be at most 2000 characters"})
		return
	}

	task, err := h.taskService.AddComment(c.Request.Context(), sc, id, req.Body)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, task)
}
