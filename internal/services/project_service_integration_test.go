//go:build integration
// +build integration

package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/outbox"
	"github.com/atelierhq/atelier/internal/scope"
	"github.com/atelierhq/atelier/internal/storage"
)

// getTestDB connects to the test Mongo instance and starts from an empty
// database. Tests are skipped when no instance is reachable.
func getTestDB(t *testing.T) *database.DB {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	name := os.Getenv("TEST_MONGO_DB")
	if name == "" {
		name = "atelier_test"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := database.Connect(ctx, uri, name)
	if err != nil {
		t.Skipf("skipping integration test: cannot connect to mongo: %v", err)
		return nil
	}
	if err := db.Database().Drop(ctx); err != nil {
		t.Fatalf("drop test database: %v", err)
	}
	return db
}

func closeTestDB(t *testing.T, db *database.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = db.Close(ctx)
}

func seedUser(t *testing.T, db *database.DB, name string, role models.Role) *models.User {
	t.Helper()
	now := time.Now()
	u := models.User{
		Email:        name + "@example.com",
		Name:         name,
		PasswordHash: "not-a-real-hash",
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := db.Collection(database.ColUsers).InsertOne(context.Background(), u)
	require.NoError(t, err)
	u.ID = res.InsertedID.(primitive.ObjectID)
	return &u
}

func seedProject(t *testing.T, db *database.DB, title string, clientID primitive.ObjectID, managers []primitive.ObjectID, schedule models.Schedule) *models.Project {
	t.Helper()
	now := time.Now()
	createdBy := clientID
	if len(managers) > 0 {
		createdBy = managers[0]
	}
	p := models.Project{
		Title:     title,
		ClientID:  clientID,
		Managers:  managers,
		Status:    models.ProjectStatusPlanning,
		Priority:  models.PriorityMedium,
		Schedule:  schedule,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := db.Collection(database.ColProjects).InsertOne(context.Background(), p)
	require.NoError(t, err)
	p.ID = res.InsertedID.(primitive.ObjectID)
	return &p
}

func newTestProjectService(db *database.DB) *ProjectService {
	logger := zap.NewNop()
	st, _ := storage.NewClient(storage.Config{})
	return NewProjectService(db, outbox.New(db, logger), st, logger)
}

func TestProjectService_ListScopesByRole(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer closeTestDB(t, db)

	ctx := context.Background()
	svc := newTestProjectService(db)

	admin := seedUser(t, db, "admin", models.RoleSuperAdmin)
	manager := seedUser(t, db, "manager", models.RoleProjectManager)
	clientA := seedUser(t, db, "client-a", models.RoleClient)
	clientB := seedUser(t, db, "client-b", models.RoleClient)

	seedProject(t, db, "loft", clientA.ID, []primitive.ObjectID{manager.ID}, models.Schedule{})
	seedProject(t, db, "villa", clientA.ID, nil, models.Schedule{})
	seedProject(t, db, "office", clientB.ID, nil, models.Schedule{})

	page := models.PageRequest{Page: 1, Limit: 20}

	got, meta, err := svc.List(ctx, scope.ForUser(clientA), ProjectListFilter{}, "", true, page)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.EqualValues(t, 2, meta.Total)
	for _, p := range got {
		require.Equal(t, clientA.ID, p.ClientID)
	}

	got, _, err = svc.List(ctx, scope.ForUser(clientB), ProjectListFilter{}, "", true, page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "office", got[0].Title)

	got, _, err = svc.List(ctx, scope.ForUser(manager), ProjectListFilter{}, "", true, page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "loft", got[0].Title)

	got, meta, err = svc.List(ctx, scope.ForUser(admin), ProjectListFilter{}, "", true, page)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.EqualValues(t, 3, meta.Total)
}

func TestProjectService_GetOutOfScopeIsNotFound(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer closeTestDB(t, db)

	ctx := context.Background()
	svc := newTestProjectService(db)

	clientA := seedUser(t, db, "client-a", models.RoleClient)
	clientB := seedUser(t, db, "client-b", models.RoleClient)
	p := seedProject(t, db, "loft", clientA.ID, nil, models.Schedule{})

	// An existing id outside the caller's visible set reads as absent, so the
	// response does not confirm the id exists.
	_, err := svc.Get(ctx, scope.ForUser(clientB), p.ID)
	require.True(t, errors.Is(err, ErrNotFound))
	require.False(t, errors.Is(err, ErrForbidden))

	got, err := svc.Get(ctx, scope.ForUser(clientA), p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
}

func TestProjectService_ListStripsInternalCommentsForClient(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer closeTestDB(t, db)

	ctx := context.Background()
	svc := newTestProjectService(db)

	manager := seedUser(t, db, "manager", models.RoleProjectManager)
	client := seedUser(t, db, "client", models.RoleClient)

	schedule := models.Schedule{Phases: []models.Phase{{
		Title: "Construction",
		Weeks: []models.Week{{
			Label: "Week 1",
			Activities: []models.Activity{{
				Title:  "Demolition",
				Status: models.ActivityStatusInProgress,
				Comments: []models.ActivityComment{
					{AuthorID: manager.ID, Body: "progress photo sent to client", CreatedAt: time.Now()},
					{AuthorID: manager.ID, Body: "contractor invoice disputed", Internal: true, CreatedAt: time.Now()},
				},
			}},
		}},
	}}}
	seedProject(t, db, "loft", client.ID, []primitive.ObjectID{manager.ID}, schedule)

	page := models.PageRequest{Page: 1, Limit: 20}

	got, _, err := svc.List(ctx, scope.ForUser(client), ProjectListFilter{}, "", true, page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	comments := got[0].Schedule.Phases[0].Weeks[0].Activities[0].Comments
	require.Len(t, comments, 1)
	require.Equal(t, "progress photo sent to client", comments[0].Body)
	require.False(t, comments[0].Internal)

	got, _, err = svc.List(ctx, scope.ForUser(manager), ProjectListFilter{}, "", true, page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Schedule.Phases[0].Weeks[0].Activities[0].Comments, 2)

	one, err := svc.Get(ctx, scope.ForUser(client), got[0].ID)
	require.NoError(t, err)
	require.Len(t, one.Schedule.Phases[0].Weeks[0].Activities[0].Comments, 1)
}

func TestProjectService_ListPagination(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer closeTestDB(t, db)

	ctx := context.Background()
	svc := newTestProjectService(db)

	admin := seedUser(t, db, "admin", models.RoleSuperAdmin)
	client := seedUser(t, db, "client", models.RoleClient)
	for _, title := range []string{"p1", "p2", "p3", "p4", "p5"} {
		seedProject(t, db, title, client.ID, nil, models.Schedule{})
	}

	got, meta, err := svc.List(ctx, scope.ForUser(admin), ProjectListFilter{}, "title", false, models.PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.EqualValues(t, 5, meta.Total)
	require.Equal(t, 3, meta.TotalPages)
	require.True(t, meta.HasNext)
	require.False(t, meta.HasPrev)
	require.Equal(t, "p1", got[0].Title)

	got, meta, err = svc.List(ctx, scope.ForUser(admin), ProjectListFilter{}, "title", false, models.PageRequest{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "p5", got[0].Title)
	require.False(t, meta.HasNext)
	require.True(t, meta.HasPrev)
}
