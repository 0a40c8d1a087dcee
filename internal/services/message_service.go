package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/outbox"
	"github.com/atelierhq/atelier/internal/scope"
)

// MessageService handles direct messages and conversation listings.
type MessageService struct {
	db     *database.DB
	outbox *outbox.Outbox
}

// NewMessageService creates a new MessageService
func NewMessageService(db *database.DB, ob *outbox.Outbox) *MessageService {
	return &MessageService{db: db, outbox: ob}
}

// Conversations groups the caller's messages by counterpart and returns one
// entry per counterpart: their user summary, the latest message and the
// unread count, most recent conversation first.
func (s *MessageService) Conversations(ctx context.Context, sc scope.Scope) ([]models.Conversation, error) {
	pipeline := []bson.D{
		{{Key: "$match", Value: sc.MessageFilter()}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$addFields", Value: bson.M{
			"counterpart": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$senderId", sc.UserID}},
				"$recipientId",
				"$senderId",
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$counterpart",
			"lastMessage": bson.M{"$first": "$$ROOT"},
			"unreadCount": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$recipientId", sc.UserID}},
					bson.M{"$eq": bson.A{"$isRead", false}},
				}},
				1,
				0,
			}}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         database.ColUsers,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$addFields", Value: bson.M{"user": bson.M{"$arrayElemAt": bson.A{"$user", 0}}}}},
		{{Key: "$project", Value: bson.M{
			"user.passwordHash":       0,
			"user.phone":              0,
			"user.isActive":           0,
			"user.createdAt":          0,
			"user.updatedAt":          0,
			"lastMessage.counterpart": 0,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "lastMessage.createdAt", Value: -1}}}},
	}

	cursor, err := s.db.Collection(database.ColMessages).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	results := make([]models.Conversation, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return results, nil
}

// Thread returns the message history between the caller and another user,
// newest first, paginated.
func (s *MessageService) Thread(ctx context.Context, sc scope.Scope, otherID primitive.ObjectID, page models.PageRequest) ([]models.Message, models.PageMeta, error) {
	match := bson.M{
		"deleted": bson.M{"$ne": true},
		"$or": bson.A{
			bson.M{"senderId": sc.UserID, "recipientId": otherID},
			bson.M{"senderId": otherID, "recipientId": sc.UserID},
		},
	}

	col := s.db.Collection(database.ColMessages)
	total, err := col.CountDocuments(ctx, match)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("count messages: %w", err)
	}

	cursor, err := col.Find(ctx, match, optionsFindPage(page, bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list messages: %w", err)
	}
	results := make([]models.Message, 0, page.Limit)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("decode messages: %w", err)
	}
	return results, models.NewPageMeta(page, total), nil
}

// Send delivers a message and queues a message_received notification for the
// recipient. The recipient must be an active user.
func (s *MessageService) Send(ctx context.Context, sc scope.Scope, recipientID primitive.ObjectID, projectID *primitive.ObjectID, body string) (*models.Message, error) {
	count, err := s.db.Collection(database.ColUsers).CountDocuments(ctx,
		bson.M{"_id": recipientID, "isActive": true})
	if err != nil {
		return nil, fmt.Errorf("check recipient: %w", err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	msg := models.Message{
		SenderID:    sc.UserID,
		RecipientID: recipientID,
		ProjectID:   projectID,
		Body:        body,
		IsRead:      false,
		CreatedAt:   time.Now(),
	}
	res, err := s.db.Collection(database.ColMessages).InsertOne(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	msg.ID, _ = res.InsertedID.(primitive.ObjectID)

	sender := sc.UserID
	data := bson.M{"messageId": msg.ID, "senderId": sc.UserID}
	if projectID != nil {
		data["projectId"] = *projectID
	}
	s.outbox.Append(ctx, outbox.Event{
		Type:       models.NotificationMessageReceived,
		Recipients: []primitive.ObjectID{recipientID},
		SenderID:   &sender,
		Title:      "New message",
		Message:    "You have received a new message",
		Data:       data,
	})
	return &msg, nil
}

// MarkRead marks a message read. Idempotent: re-marking a read message keeps
// isRead true and does not error. Only the recipient's mark counts; the id
// must resolve inside the caller's conversations.
func (s *MessageService) MarkRead(ctx context.Context, sc scope.Scope, id primitive.ObjectID) error {
	match := bson.M{"_id": id, "recipientId": sc.UserID, "deleted": bson.M{"$ne": true}}

	count, err := s.db.Collection(database.ColMessages).CountDocuments(ctx, match)
	if err != nil {
		return fmt.Errorf("find message: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}

	now := time.Now()
	_, err = s.db.Collection(database.ColMessages).UpdateOne(ctx,
		scope.Merge(match, bson.M{"isRead": false}),
		bson.M{"$set": bson.M{"isRead": true, "readAt": now}})
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

// Delete soft-deletes a message. Sender only.
func (s *MessageService) Delete(ctx context.Context, sc scope.Scope, id primitive.ObjectID) error {
	res, err := s.db.Collection(database.ColMessages).UpdateOne(ctx,
		bson.M{"_id": id, "senderId": sc.UserID},
		bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
