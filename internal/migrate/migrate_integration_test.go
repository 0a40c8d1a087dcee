//go:build integration
// +build integration

package migrate

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/database"
)

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

func seedLegacyProject(t *testing.T, db *database.DB) primitive.ObjectID {
	t.Helper()
	now := time.Now()
	res, err := db.Collection(database.ColProjects).InsertOne(context.Background(), bson.M{
		"title":       "legacy loft",
		"clientId":    primitive.NewObjectID(),
		"manager":     primitive.NewObjectID(),
		"plannedDate": now,
		"status":      "planning",
		"milestones": bson.A{
			bson.M{"title": "Design sign-off", "phase": "installation", "status": "completed"},
			bson.M{"title": "Handover", "phase": "not-a-phase", "status": "bogus"},
		},
		"createdAt": now,
		"updatedAt": now,
	})
	require.NoError(t, err)
	return res.InsertedID.(primitive.ObjectID)
}

func TestRunReshapesLegacyLayout(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	ctx := context.Background()
	id := seedLegacyProject(t, db)

	require.NoError(t, Run(ctx, db, zap.NewNop()))

	var doc bson.M
	require.NoError(t, db.Collection(database.ColProjects).
		FindOne(ctx, bson.M{"_id": id}).Decode(&doc))
	require.NotContains(t, doc, "manager")
	require.NotContains(t, doc, "plannedDate")
	require.NotContains(t, doc, "milestones")
	require.Len(t, doc["managers"], 1)
	require.NotNil(t, doc["startDate"])

	count, err := db.Collection(database.ColMilestones).
		CountDocuments(ctx, bson.M{"projectId": id})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	// Unknown enum values fall back to safe defaults during the lift.
	var lifted bson.M
	require.NoError(t, db.Collection(database.ColMilestones).
		FindOne(ctx, bson.M{"projectId": id, "title": "Handover"}).Decode(&lifted))
	require.Equal(t, "construction", lifted["phase"])
	require.Equal(t, "pending", lifted["status"])
}

func TestRunRerunDoesNotDuplicateMilestones(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	ctx := context.Background()
	id := seedLegacyProject(t, db)

	require.NoError(t, Run(ctx, db, zap.NewNop()))
	require.NoError(t, Run(ctx, db, zap.NewNop()))

	count, err := db.Collection(database.ColMilestones).
		CountDocuments(ctx, bson.M{"projectId": id})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestEmbeddedMilestonesResumesPartialLift(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	ctx := context.Background()
	id := seedLegacyProject(t, db)

	// Pretend an earlier run crashed between the insert and the $unset: one
	// milestone already sits in the collection while the embedded array
	// survives on the project.
	_, err := db.Collection(database.ColMilestones).InsertOne(ctx, bson.M{
		"projectId": id,
		"title":     "Design sign-off",
		"phase":     "installation",
		"status":    "completed",
		"createdAt": time.Now(),
		"updatedAt": time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, Run(ctx, db, zap.NewNop()))

	count, err := db.Collection(database.ColMilestones).
		CountDocuments(ctx, bson.M{"projectId": id, "title": "Design sign-off"})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = db.Collection(database.ColMilestones).
		CountDocuments(ctx, bson.M{"projectId": id})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}
