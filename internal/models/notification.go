package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType names the state transition a notification reports.
type NotificationType string

const (
	NotificationTaskAssigned       NotificationType = "task_assigned"
	NotificationTaskCompleted      NotificationType = "task_completed"
	NotificationMessageReceived    NotificationType = "message_received"
	NotificationProjectCreated     NotificationType = "project_created"
	NotificationProjectProgress    NotificationType = "project_progress"
	NotificationMilestoneCompleted NotificationType = "milestone_completed"
	NotificationSystem             NotificationType = "system"
)

// ValidNotificationType reports whether s is a known notification type.
func ValidNotificationType(s string) bool {
	switch NotificationType(s) {
	case NotificationTaskAssigned, NotificationTaskCompleted, NotificationMessageReceived,
		NotificationProjectCreated, NotificationProjectProgress, NotificationMilestoneCompleted,
		NotificationSystem:
		return true
	}
	return false
}

// Notification is a per-recipient record of something that happened.
// Data carries related entity ids (projectId, taskId, ...) as an open bag.
type Notification struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RecipientID primitive.ObjectID  `bson:"recipientId" json:"recipientId"`
	SenderID    *primitive.ObjectID `bson:"senderId,omitempty" json:"senderId,omitempty"`
	Type        NotificationType    `bson:"type" json:"type"`
	Title       string              `bson:"title" json:"title"`
	Message     string              `bson:"message" json:"message"`
	IsRead      bool                `bson:"isRead" json:"isRead"`
	ReadAt      *time.Time          `bson:"readAt,omitempty" json:"readAt,omitempty"`
	Data        bson.M              `bson:"data,omitempty" json:"data,omitempty"`
	ExpiresAt   *time.Time          `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"created_at"`
}
