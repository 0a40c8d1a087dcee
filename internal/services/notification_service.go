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

// NotificationService handles per-recipient notification reads and the few
// direct notification mutations. Fan-out creation goes through the outbox.
type NotificationService struct {
	db     *database.DB
	outbox *outbox.Outbox
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(db *database.DB, ob *outbox.Outbox) *NotificationService {
	return &NotificationService{db: db, outbox: ob}
}

// List returns the caller's notifications newest first, excluding expired
// ones, plus the unread count over the full filtered set.
func (s *NotificationService) List(ctx context.Context, sc scope.Scope, unreadOnly bool, page models.PageRequest) ([]models.Notification, models.PageMeta, int64, error) {
	now := time.Now()
	match := scope.Merge(sc.NotificationFilter(), bson.M{"$or": bson.A{
		bson.M{"expiresAt": bson.M{"$exists": false}},
		bson.M{"expiresAt": nil},
		bson.M{"expiresAt": bson.M{"$gt": now}},
	}})
	if unreadOnly {
		match = scope.Merge(match, bson.M{"isRead": false})
	}

	col := s.db.Collection(database.ColNotifications)
	total, err := col.CountDocuments(ctx, match)
	if err != nil {
		return nil, models.PageMeta{}, 0, fmt.Errorf("count notifications: %w", err)
	}
	unread, err := col.CountDocuments(ctx, scope.Merge(sc.NotificationFilter(), bson.M{"isRead": false}))
	if err != nil {
		return nil, models.PageMeta{}, 0, fmt.Errorf("count unread notifications: %w", err)
	}

	cursor, err := col.Find(ctx, match, optionsFindPage(page, bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, models.PageMeta{}, 0, fmt.Errorf("list notifications: %w", err)
	}
	results := make([]models.Notification, 0, page.Limit)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, models.PageMeta{}, 0, fmt.Errorf("decode notifications: %w", err)
	}
	return results, models.NewPageMeta(page, total), unread, nil
}

// Create queues a manually composed notification for a recipient
// (admin/manager announcement).
func (s *NotificationService) Create(ctx context.Context, sc scope.Scope, recipientID primitive.ObjectID, typ models.NotificationType, title, message string, data bson.M) error {
	count, err := s.db.Collection(database.ColUsers).CountDocuments(ctx,
		bson.M{"_id": recipientID, "isActive": true})
	if err != nil {
		return fmt.Errorf("check recipient: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}

	sender := sc.UserID
	s.outbox.Append(ctx, outbox.Event{
		Type:       typ,
		Recipients: []primitive.ObjectID{recipientID},
		SenderID:   &sender,
		Title:      title,
		Message:    message,
		Data:       data,
	})
	return nil
}

// SetRead marks one of the caller's notifications read or unread.
// Idempotent in both directions.
func (s *NotificationService) SetRead(ctx context.Context, sc scope.Scope, id primitive.ObjectID, read bool) error {
	match := scope.Merge(sc.NotificationFilter(), bson.M{"_id": id})
	count, err := s.db.Collection(database.ColNotifications).CountDocuments(ctx, match)
	if err != nil {
		return fmt.Errorf("find notification: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}

	set := bson.M{"isRead": read}
	if read {
		set["readAt"] = time.Now()
	} else {
		set["readAt"] = nil
	}
	_, err = s.db.Collection(database.ColNotifications).UpdateOne(ctx, match, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("set notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller read.
// Returns the number of notifications flipped.
func (s *NotificationService) MarkAllRead(ctx context.Context, sc scope.Scope) (int64, error) {
	res, err := s.db.Collection(database.ColNotifications).UpdateMany(ctx,
		scope.Merge(sc.NotificationFilter(), bson.M{"isRead": false}),
		bson.M{"$set": bson.M{"isRead": true, "readAt": time.Now()}})
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.ModifiedCount, nil
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, sc scope.Scope, id primitive.ObjectID) error {
	res, err := s.db.Collection(database.ColNotifications).DeleteOne(ctx,
		scope.Merge(sc.NotificationFilter(), bson.M{"_id": id}))
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
