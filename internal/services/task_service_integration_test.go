//go:build integration
// +build integration

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/outbox"
	"github.com/atelierhq/atelier/internal/scope"
)

func TestTaskService_CompletionPinsProgressAndNotifiesManagers(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer closeTestDB(t, db)

	ctx := context.Background()
	svc := NewTaskService(db, outbox.New(db, zap.NewNop()))

	lead := seedUser(t, db, "lead", models.RoleProjectManager)
	second := seedUser(t, db, "second", models.RoleProjectManager)
	client := seedUser(t, db, "client", models.RoleClient)
	project := seedProject(t, db, "loft", client.ID,
		[]primitive.ObjectID{lead.ID, second.ID}, models.Schedule{})

	leadScope := scope.ForUser(lead)
	task, err := svc.Create(ctx, leadScope, CreateTaskParams{
		Title:     "order fixtures",
		ProjectID: project.ID,
		Priority:  models.PriorityMedium,
	})
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusPending, task.Status)

	status := models.TaskStatusCompleted
	progress := 40 // overridden by the completion transition
	updated, err := svc.Update(ctx, leadScope, task.ID, UpdateTaskParams{
		Status:   &status,
		Progress: &progress,
	})
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, updated.Status)
	require.Equal(t, 100, updated.Progress)
	require.NotNil(t, updated.CompletedAt)

	// The completion queues exactly one pending event for the other managers,
	// never echoing back to the actor.
	cursor, err := db.Collection(database.ColOutbox).Find(ctx,
		bson.M{"type": models.NotificationTaskCompleted})
	require.NoError(t, err)
	var events []outbox.Event
	require.NoError(t, cursor.All(ctx, &events))
	require.Len(t, events, 1)
	require.Equal(t, outbox.StatusPending, events[0].Status)
	require.Equal(t, []primitive.ObjectID{second.ID}, events[0].Recipients)
	require.Equal(t, lead.ID, *events[0].SenderID)
}
