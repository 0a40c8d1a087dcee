//go:build integration
// +build integration

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/outbox"
	"github.com/atelierhq/atelier/internal/scope"
)

func seedNotification(t *testing.T, db *database.DB, recipient primitive.ObjectID) *models.Notification {
	t.Helper()
	n := models.Notification{
		RecipientID: recipient,
		Type:        models.NotificationSystem,
		Title:       "Welcome",
		Message:     "Your account is ready",
		CreatedAt:   time.Now(),
	}
	res, err := db.Collection(database.ColNotifications).InsertOne(context.Background(), n)
	require.NoError(t, err)
	n.ID = res.InsertedID.(primitive.ObjectID)
	return &n
}

func TestNotificationService_SetReadIdempotent(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer closeTestDB(t, db)

	ctx := context.Background()
	svc := NewNotificationService(db, outbox.New(db, zap.NewNop()))

	owner := seedUser(t, db, "owner", models.RoleClient)
	other := seedUser(t, db, "other", models.RoleClient)
	n := seedNotification(t, db, owner.ID)
	ownerScope := scope.ForUser(owner)

	reload := func() models.Notification {
		var got models.Notification
		err := db.Collection(database.ColNotifications).
			FindOne(ctx, bson.M{"_id": n.ID}).Decode(&got)
		require.NoError(t, err)
		return got
	}

	require.NoError(t, svc.SetRead(ctx, ownerScope, n.ID, true))
	got := reload()
	require.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)

	// Marking an already-read notification read again succeeds and keeps it
	// read.
	require.NoError(t, svc.SetRead(ctx, ownerScope, n.ID, true))
	got = reload()
	require.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)

	require.NoError(t, svc.SetRead(ctx, ownerScope, n.ID, false))
	got = reload()
	require.False(t, got.IsRead)
	require.Nil(t, got.ReadAt)

	// Another recipient's notification is out of scope even for its id.
	err := svc.SetRead(ctx, scope.ForUser(other), n.ID, true)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestNotificationService_ListCountsUnread(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer closeTestDB(t, db)

	ctx := context.Background()
	svc := NewNotificationService(db, outbox.New(db, zap.NewNop()))

	owner := seedUser(t, db, "owner", models.RoleClient)
	other := seedUser(t, db, "other", models.RoleClient)
	first := seedNotification(t, db, owner.ID)
	seedNotification(t, db, owner.ID)
	seedNotification(t, db, other.ID)
	ownerScope := scope.ForUser(owner)

	got, meta, unread, err := svc.List(ctx, ownerScope, false, models.PageRequest{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.EqualValues(t, 2, meta.Total)
	require.EqualValues(t, 2, unread)

	require.NoError(t, svc.SetRead(ctx, ownerScope, first.ID, true))
	got, _, unread, err = svc.List(ctx, ownerScope, true, models.PageRequest{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.EqualValues(t, 1, unread)
}
