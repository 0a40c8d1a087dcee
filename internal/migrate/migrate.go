// Package migrate reshapes documents written by earlier deployments into the
// canonical layout the services read. Every step is idempotent, so running
// the migration repeatedly is safe.
package migrate

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
)

// Run applies all document reshapes in order.
func Run(ctx context.Context, db *database.DB, logger *zap.Logger) error {
	steps := []struct {
		name string
		fn   func(context.Context, *database.DB, *zap.Logger) error
	}{
		{"single manager to managers array", managerToManagers},
		{"plannedDate to startDate/endDate", plannedDateToRange},
		{"embedded milestones to collection", embeddedMilestones},
	}
	for _, step := range steps {
		if err := step.fn(ctx, db, logger); err != nil {
			return fmt.Errorf("migrate %s: %w", step.name, err)
		}
		logger.Info("migration step done", zap.String("step", step.name))
	}
	return nil
}

// managerToManagers wraps the legacy single manager field into the managers
// array the access filters key off.
func managerToManagers(ctx context.Context, db *database.DB, _ *zap.Logger) error {
	_, err := db.Collection(database.ColProjects).UpdateMany(ctx,
		bson.M{"manager": bson.M{"$exists": true}},
		pipeline(
			bson.M{"$set": bson.M{"managers": bson.A{"$manager"}}},
			bson.M{"$unset": "manager"},
		),
	)
	return err
}

// plannedDateToRange moves the legacy single plannedDate into startDate,
// leaving endDate unset for the owner to fill in.
func plannedDateToRange(ctx context.Context, db *database.DB, _ *zap.Logger) error {
	_, err := db.Collection(database.ColProjects).UpdateMany(ctx,
		bson.M{"plannedDate": bson.M{"$exists": true}, "startDate": bson.M{"$exists": false}},
		pipeline(
			bson.M{"$set": bson.M{"startDate": "$plannedDate"}},
			bson.M{"$unset": "plannedDate"},
		),
	)
	if err != nil {
		return err
	}
	// Projects that already had a startDate just lose the stale field.
	_, err = db.Collection(database.ColProjects).UpdateMany(ctx,
		bson.M{"plannedDate": bson.M{"$exists": true}},
		pipeline(bson.M{"$unset": "plannedDate"}),
	)
	return err
}

// embeddedMilestones lifts milestone arrays embedded on project documents
// into the milestones collection, then drops the embedded copies.
func embeddedMilestones(ctx context.Context, db *database.DB, logger *zap.Logger) error {
	cur, err := db.Collection(database.ColProjects).Find(ctx,
		bson.M{"milestones": bson.M{"$exists": true, "$type": "array"}})
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	type embedded struct {
		Title       string     `bson:"title"`
		Phase       string     `bson:"phase"`
		Status      string     `bson:"status"`
		DueDate     *time.Time `bson:"dueDate"`
		CompletedAt *time.Time `bson:"completedAt"`
	}
	type projectDoc struct {
		ID         primitive.ObjectID `bson:"_id"`
		Milestones []embedded         `bson:"milestones"`
	}

	for cur.Next(ctx) {
		var p projectDoc
		if err := cur.Decode(&p); err != nil {
			return err
		}

		// A crash between the insert and the $unset leaves the embedded copy
		// behind; skip titles already lifted so the re-run cannot duplicate.
		lifted, err := liftedTitles(ctx, db, p.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		docs := make([]interface{}, 0, len(p.Milestones))
		for _, m := range p.Milestones {
			if lifted[m.Title] {
				continue
			}
			status := models.MilestoneStatus(m.Status)
			if !models.ValidMilestoneStatus(m.Status) {
				status = models.MilestoneStatusPending
			}
			phase := models.MilestonePhase(m.Phase)
			if !models.ValidMilestonePhase(m.Phase) {
				phase = models.MilestonePhaseConstruction
			}
			docs = append(docs, models.Milestone{
				ProjectID:   p.ID,
				Title:       m.Title,
				Phase:       phase,
				Status:      status,
				DueDate:     m.DueDate,
				CompletedAt: m.CompletedAt,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		if len(docs) > 0 {
			if _, err := db.Collection(database.ColMilestones).InsertMany(ctx, docs); err != nil {
				return err
			}
		}
		if _, err := db.Collection(database.ColProjects).UpdateOne(ctx,
			bson.M{"_id": p.ID},
			bson.M{"$unset": bson.M{"milestones": ""}},
		); err != nil {
			return err
		}
		logger.Info("lifted embedded milestones",
			zap.String("projectId", p.ID.Hex()),
			zap.Int("count", len(docs)))
	}
	return cur.Err()
}

// liftedTitles returns the milestone titles already present in the milestones
// collection for a project.
func liftedTitles(ctx context.Context, db *database.DB, projectID primitive.ObjectID) (map[string]bool, error) {
	cur, err := db.Collection(database.ColMilestones).Find(ctx,
		bson.M{"projectId": projectID},
		options.Find().SetProjection(bson.M{"title": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	titles := make(map[string]bool)
	for cur.Next(ctx) {
		var doc struct {
			Title string `bson:"title"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		titles[doc.Title] = true
	}
	return titles, cur.Err()
}

// pipeline builds an aggregation-pipeline update document.
func pipeline(stages ...bson.M) mongo.Pipeline {
	out := make(mongo.Pipeline, 0, len(stages))
	for _, s := range stages {
		d := bson.D{}
		for k, v := range s {
			d = append(d, bson.E{Key: k, Value: v})
		}
		out = append(out, d)
	}
	return out
}
