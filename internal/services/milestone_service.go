package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/outbox"
	"github.com/atelierhq/atelier/internal/scope"
)

// MilestoneService handles milestone operations.
type MilestoneService struct {
	db     *database.DB
	tasks  *TaskService
	outbox *outbox.Outbox
}

// NewMilestoneService creates a new MilestoneService
func NewMilestoneService(db *database.DB, tasks *TaskService, ob *outbox.Outbox) *MilestoneService {
	return &MilestoneService{db: db, tasks: tasks, outbox: ob}
}

// List returns caller-visible milestones, optionally narrowed to one project,
// due date ascending.
func (s *MilestoneService) List(ctx context.Context, sc scope.Scope, projectID *primitive.ObjectID, page models.PageRequest) ([]models.MilestoneWithRefs, models.PageMeta, error) {
	visible, err := scope.VisibleProjectIDs(ctx, s.db, sc)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	match := sc.SubEntityFilter(visible)
	if projectID != nil {
		match = scope.Merge(match, bson.M{"projectId": *projectID})
	}

	col := s.db.Collection(database.ColMilestones)
	total, err := col.CountDocuments(ctx, match)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("count milestones: %w", err)
	}

	pipeline := []bson.D{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "dueDate", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: int64(page.Limit)}},
		{{Key: "$lookup", Value: bson.M{
			"from":         database.ColProjects,
			"localField":   "projectId",
			"foreignField": "_id",
			"as":           "milestoneProject",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"projectTitle": bson.M{"$arrayElemAt": bson.A{"$milestoneProject.title", 0}},
		}}},
		{{Key: "$project", Value: bson.M{"milestoneProject": 0}}},
	}

	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list milestones: %w", err)
	}
	results := make([]models.MilestoneWithRefs, 0, page.Limit)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("decode milestones: %w", err)
	}
	return results, models.NewPageMeta(page, total), nil
}

// CreateMilestoneParams holds the validated fields for a new milestone.
type CreateMilestoneParams struct {
	ProjectID primitive.ObjectID
	Title     string
	Phase     models.MilestonePhase
	DueDate   *time.Time
}

// Create inserts a milestone into a project the caller manages.
func (s *MilestoneService) Create(ctx context.Context, sc scope.Scope, params CreateMilestoneParams) (*models.Milestone, error) {
	if err := s.tasks.checkManagedProject(ctx, sc, params.ProjectID); err != nil {
		return nil, err
	}

	now := time.Now()
	milestone := models.Milestone{
		ProjectID: params.ProjectID,
		Title:     params.Title,
		Phase:     params.Phase,
		Status:    models.MilestoneStatusPending,
		DueDate:   params.DueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := s.db.Collection(database.ColMilestones).InsertOne(ctx, milestone)
	if err != nil {
		return nil, fmt.Errorf("create milestone: %w", err)
	}
	milestone.ID, _ = res.InsertedID.(primitive.ObjectID)
	return &milestone, nil
}

// UpdateMilestoneParams holds the optional fields of a milestone update.
type UpdateMilestoneParams struct {
	Title   *string
	Phase   *models.MilestonePhase
	Status  *models.MilestoneStatus
	DueDate *time.Time
}

// Update applies a partial update to a milestone in a project the caller
// manages. A transition to completed stamps completedAt/completedBy and
// queues a milestone_completed notification for the project's client.
func (s *MilestoneService) Update(ctx context.Context, sc scope.Scope, id primitive.ObjectID, params UpdateMilestoneParams) (*models.Milestone, error) {
	var milestone models.Milestone
	err := s.db.Collection(database.ColMilestones).FindOne(ctx, bson.M{"_id": id}).Decode(&milestone)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get milestone: %w", err)
	}
	if err := s.tasks.checkManagedProject(ctx, sc, milestone.ProjectID); err != nil {
		return nil, err
	}

	now := time.Now()
	set := bson.M{"updatedAt": now}
	if params.Title != nil {
		set["title"] = *params.Title
	}
	if params.Phase != nil {
		set["phase"] = *params.Phase
	}
	if params.DueDate != nil {
		set["dueDate"] = *params.DueDate
	}

	completed := false
	if params.Status != nil && *params.Status != milestone.Status {
		set["status"] = *params.Status
		if *params.Status == models.MilestoneStatusCompleted {
			completed = true
			set["completedAt"] = now
			set["completedBy"] = sc.UserID
		}
	}

	_, err = s.db.Collection(database.ColMilestones).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update milestone: %w", err)
	}

	if completed {
		var project models.Project
		if err := s.db.Collection(database.ColProjects).FindOne(ctx, bson.M{"_id": milestone.ProjectID}).Decode(&project); err == nil {
			sender := sc.UserID
			s.outbox.Append(ctx, outbox.Event{
				Type:       models.NotificationMilestoneCompleted,
				Recipients: []primitive.ObjectID{project.ClientID},
				SenderID:   &sender,
				Title:      "Milestone reached",
				Message:    fmt.Sprintf("%q has been completed on %q", milestone.Title, project.Title),
				Data:       bson.M{"milestoneId": milestone.ID, "projectId": milestone.ProjectID},
			})
		}
	}

	if err := s.db.Collection(database.ColMilestones).FindOne(ctx, bson.M{"_id": id}).Decode(&milestone); err != nil {
		return nil, fmt.Errorf("reload milestone: %w", err)
	}
	return &milestone, nil
}
