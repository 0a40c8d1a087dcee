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

// CalendarHandler handles calendar endpoints
type CalendarHandler struct {
	calendarService *services.CalendarService
	logger          *zap.Logger
}

// NewCalendarHandler creates a new CalendarHandler
func NewCalendarHandler(calendarService *services.CalendarService, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService, logger: logger}
}

// List returns stored events plus entries derived from project, task and
// milestone dates, merged and ordered by start time. The window defaults to
// the current month.
func (h *CalendarHandler) List(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondValidation(c, map[string]string{"from": "must be an RFC 3339 timestamp"})
			return
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondValidation(c, map[string]string{"to": "must be an RFC 3339 timestamp"})
			return
		}
		to = t
	}
	if !to.After(from) {
		respondValidation(c, map[string]string{"to": "must be after from"})
		return
	}

	events, err := h.calendarService.List(c.Request.Context(), sc, from, to)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, events)
}

// CreateEventRequest represents a calendar event creation request
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	AllDay      bool      `json:"allDay"`
	ProjectID   string    `json:"projectId"`
	Attendees   []string  `json:"attendees"`
	Recurrence  string    `json:"recurrence"`
}

// Create stores an explicit calendar event owned by the caller.
func (h *CalendarHandler) Create(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	if req.Title == "" || len(req.Title) > 200 {
		fields["title"] = "title is required and must be at most 200 characters"
	}
	if req.StartsAt.IsZero() {
		fields["startsAt"] = "startsAt is required"
	}
	if req.EndsAt.IsZero() {
		req.EndsAt = req.StartsAt
	} else if req.EndsAt.Before(req.StartsAt) {
		fields["endsAt"] = "must not be before startsAt"
	}
	if req.Recurrence == "" {
		req.Recurrence = string(models.RecurrenceNone)
	} else if !models.ValidRecurrence(req.Recurrence) {
		fields["recurrence"] = "unknown recurrence"
	}
	var projectID *primitive.ObjectID
	if req.ProjectID != "" {
		id, err := primitive.ObjectIDFromHex(req.ProjectID)
		if err != nil {
			fields["projectId"] = "must be a valid project id"
		}
		projectID = &id
	}
	attendees := make([]primitive.ObjectID, 0, len(req.Attendees))
	for _, a := range req.Attendees {
		id, err := primitive.ObjectIDFromHex(a)
		if err != nil {
			fields["attendees"] = "must be a list of valid user ids"
			break
		}
		attendees = append(attendees, id)
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	event, err := h.calendarService.Create(c.Request.Context(), sc, services.CreateEventParams{
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		AllDay:      req.AllDay,
		ProjectID:   projectID,
		Attendees:   attendees,
		Recurrence:  models.Recurrence(req.Recurrence),
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, event)
}
