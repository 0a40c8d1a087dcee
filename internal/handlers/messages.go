package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/services"
)

// MessageHandler handles direct-messaging endpoints
type MessageHandler struct {
	messageService *services.MessageService
	logger         *zap.Logger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService *services.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messageService: messageService, logger: logger}
}

// Conversations lists the caller's conversations with last message and
// unread count, most recent first.
func (h *MessageHandler) Conversations(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	conversations, err := h.messageService.Conversations(c.Request.Context(), sc)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, conversations)
}

// Thread returns the message history between the caller and another user,
// newest first.
func (h *MessageHandler) Thread(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	otherID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	messages, meta, err := h.messageService.Thread(c.Request.Context(), sc, otherID, parsePage(c))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondPage(c, messages, meta)
}

// SendMessageRequest represents a message send request
type SendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	ProjectID   string `json:"projectId"`
	Body        string `json:"body"`
}

// Send delivers a message to another user and queues a notification.
func (h *MessageHandler) Send(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := map[string]string{}
	if req.Body == "" || len(req.Body) > 5000 {
		fields["body"] = "body is required and must be at most 5000 characters"
	}
	recipientID, err := primitive.ObjectIDFromHex(req.RecipientID)
	if err != nil {
		fields["recipientId"] = "must be a valid user id"
	}
	if recipientID == sc.UserID {
		fields["recipientId"] = "cannot message yourself"
	}
	var projectID *primitive.ObjectID
	if req.ProjectID != "" {
		id, err := primitive.ObjectIDFromHex(req.ProjectID)
		if err != nil {
			fields["projectId"] = "must be a valid project id"
		}
		projectID = &id
	}
	if len(fields) > 0 {
		respondValidation(c, fields)
		return
	}

	message, err := h.messageService.Send(c.Request.Context(), sc, recipientID, projectID, req.Body)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, message)
}

// MarkRead marks a received message as read. Repeating the call is a no-op.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.messageService.MarkRead(c.Request.Context(), sc, id); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondMessage(c, "message marked read")
}

// Delete soft-deletes a message the caller sent.
func (h *MessageHandler) Delete(c *gin.Context) {
	sc, _, ok := currentScope(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.messageService.Delete(c.Request.Context(), sc, id); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	respondMessage(c, "message deleted")
}
