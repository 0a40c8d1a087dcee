package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/services"
)

// NotificationHandler handles notification endpoints
type NotificationHandler struct {
	notificationService *services.NotificationService
	logger              *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *services.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, logger: logger}
}

// List returns the caller's notifications, newest first, with the unread
// count alongside the page metadata.
func (h *NotificationHandler) List(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, meta, unread, err := h.notificationService.List(c.Request.Context(), sc, unreadOnly, parsePage(c))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"data":        notifications,
		"unreadCount": unread,
		"page":        meta.Page,
		"limit":       meta.Limit,
		"total":       meta.Total,
		"totalPages":  meta.TotalPages,
		"hasNext":     meta.HasNext,
		"hasPrev":     meta.HasPrev,
	})
}

// CreateNotificationRequest represents a manual notification send
type CreateNotificationRequest struct {
	RecipientID string `json:"recipientId"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
}

// Create queues a notification for another user. Route-gated to staff.
func (h *NotificationHandler) Create(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	recipientID, err := primitive.ObjectIDFromHex(req.RecipientID)
	if err != nil {
		fields["recipientId"] = "must be a valid user id"
	}
	if req.Type == "" {
		req.Type = string(models.NotificationSystem)
	} else if !models.ValidNotificationType(req.Type) {
		fields["type"] = "unknown notification type"
	}
	if req.Title == "" || len(req.Title) > 200 {
		fields["title"] = "title is required and must be at most 200 characters"
	}
	if req.Message == "" || len(req.Message) > 1000 {
		fields["message"] = "message is required and must be at most 1000 characters"
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	err = h.notificationService.Create(c.Request.Context(), sc, recipientID,
		models.NotificationType(req.Type), req.Title, req.Message, nil)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondMessage(c, "notification queued")
}

// MarkRead marks one of the caller's notifications as read. Idempotent.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	h.setRead(c, true)
}

// MarkUnread marks one of the caller's notifications as unread. Idempotent.
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	h.setRead(c, false)
}

func (h *NotificationHandler) setRead(c *gin.Context, read bool) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.SetRead(c.Request.Context(), sc, id, read); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondMessage(c, "notification updated")
}

// MarkAllRead marks every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), sc)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"updated": updated})
}

// Delete removes one of the caller's notifications.
func (h *NotificationHandler) Delete(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), sc, id); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondMessage(c, "notification deleted")
}
