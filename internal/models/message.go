package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a direct message between two users, optionally tied to a project.
// Deleted messages are soft-deleted and kept out of reads.
type Message struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SenderID    primitive.ObjectID  `bson:"senderId" json:"senderId"`
	RecipientID primitive.ObjectID  `bson:"recipientId" json:"recipientId"`
	ProjectID   *primitive.ObjectID `bson:"projectId,omitempty" json:"projectId,omitempty"`
	Body        string              `bson:"body" json:"body"`
	IsRead      bool                `bson:"isRead" json:"isRead"`
	ReadAt      *time.Time          `bson:"readAt,omitempty" json:"readAt,omitempty"`
	Attachments []FileRef           `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Deleted     bool                `bson:"deleted" json:"-"`
	CreatedAt   time.Time           `bson:"createdAt" json:"created_at"`
}

// MessageWithRefs is the joined message shape with sender/recipient summaries.
type MessageWithRefs struct {
	Message   `bson:",inline"`
	Sender    *UserSummary `bson:"sender,omitempty" json:"sender,omitempty"`
	Recipient *UserSummary `bson:"recipient,omitempty" json:"recipient,omitempty"`
}

// Conversation is one entry of the conversation list: the counterpart user,
// the latest message and the caller's unread count.
type Conversation struct {
	User        UserSummary `bson:"user" json:"user"`
	LastMessage Message     `bson:"lastMessage" json:"lastMessage"`
	UnreadCount int         `bson:"unreadCount" json:"unreadCount"`
}
