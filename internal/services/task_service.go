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

// TaskService handles task operations.
type TaskService struct {
	db     *database.DB
	outbox *outbox.Outbox
}

// NewTaskService creates a new TaskService
func NewTaskService(db *database.DB, ob *outbox.Outbox) *TaskService {
	return &TaskService{db: db, outbox: ob}
}

// TaskListFilter narrows the task list beyond the caller's scope.
type TaskListFilter struct {
	ProjectID  *primitive.ObjectID
	AssigneeID *primitive.ObjectID
	Status     string
}

// taskRefStages joins the assignee summary and the project title onto each
// task document.
func taskRefStages() []bson.D {
	stages := lookupUserStages("assigneeId", "assignee")
	stages = append(stages,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         database.ColProjects,
			"localField":   "projectId",
			"foreignField": "_id",
			"as":           "taskProject",
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"assignee":     bson.M{"$arrayElemAt": bson.A{"$assignee", 0}},
			"projectTitle": bson.M{"$arrayElemAt": bson.A{"$taskProject.title", 0}},
		}}},
		bson.D{{Key: "$project", Value: bson.M{"taskProject": 0}}},
	)
	return stages
}

// List returns the caller-visible tasks, newest first.
func (s *TaskService) List(ctx context.Context, sc scope.Scope, filter TaskListFilter, page models.PageRequest) ([]models.TaskWithRefs, models.PageMeta, error) {
	visible, err := scope.VisibleProjectIDs(ctx, s.db, sc)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	match := sc.SubEntityFilter(visible)
	extra := bson.M{}
	if filter.ProjectID != nil {
		extra["projectId"] = *filter.ProjectID
	}
	if filter.AssigneeID != nil {
		extra["assigneeId"] = *filter.AssigneeID
	}
	if filter.Status != "" {
		extra["status"] = filter.Status
	}
	match = scope.Merge(match, extra)

	col := s.db.Collection(database.ColTasks)
	total, err := col.CountDocuments(ctx, match)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("count tasks: %w", err)
	}

	pipeline := []bson.D{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: int64(page.Limit)}},
	}
	pipeline = append(pipeline, taskRefStages()...)

	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list tasks: %w", err)
	}
	results := make([]models.TaskWithRefs, 0, page.Limit)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("decode tasks: %w", err)
	}
	return results, models.NewPageMeta(page, total), nil
}

// Get returns one visible task with joined references.
func (s *TaskService) Get(ctx context.Context, sc scope.Scope, id primitive.ObjectID) (*models.TaskWithRefs, error) {
	visible, err := scope.VisibleProjectIDs(ctx, s.db, sc)
	if err != nil {
		return nil, err
	}
	match := scope.Merge(sc.SubEntityFilter(visible), bson.M{"_id": id})

	pipeline := []bson.D{{{Key: "$match", Value: match}}}
	pipeline = append(pipeline, taskRefStages()...)

	cursor, err := s.db.Collection(database.ColTasks).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	var results []models.TaskWithRefs
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return &results[0], nil
}

// CreateTaskParams holds the validated fields for a new task.
type CreateTaskParams struct {
	Title       string
	Description string
	ProjectID   primitive.ObjectID
	AssigneeID  primitive.ObjectID
	Priority    models.Priority
	Deadline    *time.Time
	DependsOn   []primitive.ObjectID
}

// Create inserts a task into a project the caller manages and queues a
// task_assigned notification for the assignee.
func (s *TaskService) Create(ctx context.Context, sc scope.Scope, params CreateTaskParams) (*models.Task, error) {
	if err := s.checkManagedProject(ctx, sc, params.ProjectID); err != nil {
		return nil, err
	}

	now := time.Now()
	task := models.Task{
		Title:       params.Title,
		Description: params.Description,
		ProjectID:   params.ProjectID,
		AssigneeID:  params.AssigneeID,
		CreatedBy:   sc.UserID,
		Status:      models.TaskStatusPending,
		Priority:    params.Priority,
		Deadline:    params.Deadline,
		DependsOn:   params.DependsOn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := s.db.Collection(database.ColTasks).InsertOne(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	task.ID, _ = res.InsertedID.(primitive.ObjectID)

	if !params.AssigneeID.IsZero() && params.AssigneeID != sc.UserID {
		sender := sc.UserID
		s.outbox.Append(ctx, outbox.Event{
			Type:       models.NotificationTaskAssigned,
			Recipients: []primitive.ObjectID{params.AssigneeID},
			SenderID:   &sender,
			Title:      "Task assigned",
			Message:    fmt.Sprintf("You have been assigned %q", task.Title),
			Data:       bson.M{"taskId": task.ID, "projectId": task.ProjectID},
		})
	}
	return &task, nil
}

// UpdateTaskParams holds the optional fields of a task update.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.Priority
	Deadline    *time.Time
	Progress    *int
	AssigneeID  *primitive.ObjectID
}

// Update applies a partial update. Permitted for the assignee, the creator,
// a manager of the task's project, or a super admin. A transition to
// completed pins progress to 100, stamps completedAt and queues a
// task_completed notification for the project's managers.
func (s *TaskService) Update(ctx context.Context, sc scope.Scope, id primitive.ObjectID, params UpdateTaskParams) (*models.Task, error) {
	var task models.Task
	err := s.db.Collection(database.ColTasks).FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	var project models.Project
	err = s.db.Collection(database.ColProjects).FindOne(ctx, bson.M{"_id": task.ProjectID}).Decode(&project)
	if err != nil {
		return nil, fmt.Errorf("get task project: %w", err)
	}

	// Visibility first: a caller outside the project's scope gets not-found,
	// not forbidden.
	if !s.visibleTo(sc, &project) {
		return nil, ErrNotFound
	}
	if !s.mayMutate(sc, &task, &project) {
		return nil, ErrForbidden
	}

	now := time.Now()
	set := bson.M{"updatedAt": now}
	if params.Title != nil {
		set["title"] = *params.Title
	}
	if params.Description != nil {
		set["description"] = *params.Description
	}
	if params.Priority != nil {
		set["priority"] = *params.Priority
	}
	if params.Deadline != nil {
		set["deadline"] = *params.Deadline
	}
	if params.Progress != nil {
		set["progress"] = *params.Progress
	}

	completed := false
	if params.AssigneeID != nil && *params.AssigneeID != task.AssigneeID {
		if !sc.IsStaff() {
			return nil, ErrForbidden
		}
		set["assigneeId"] = *params.AssigneeID
	}
	if params.Status != nil && *params.Status != task.Status {
		set["status"] = *params.Status
		if *params.Status == models.TaskStatusCompleted {
			completed = true
			set["progress"] = 100
			set["completedAt"] = now
		}
	}

	_, err = s.db.Collection(database.ColTasks).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	if completed {
		recipients := make([]primitive.ObjectID, 0, len(project.Managers))
		for _, m := range project.Managers {
			if m != sc.UserID {
				recipients = append(recipients, m)
			}
		}
		sender := sc.UserID
		s.outbox.Append(ctx, outbox.Event{
			Type:       models.NotificationTaskCompleted,
			Recipients: recipients,
			SenderID:   &sender,
			Title:      "Task completed",
			Message:    fmt.Sprintf("%q has been completed", task.Title),
			Data:       bson.M{"taskId": task.ID, "projectId": task.ProjectID},
		})
	}

	err = s.db.Collection(database.ColTasks).FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}
	return &task, nil
}

// AddComment appends a comment to a visible task.
func (s *TaskService) AddComment(ctx context.Context, sc scope.Scope, id primitive.ObjectID, body string) (*models.Task, error) {
	visible, err := scope.VisibleProjectIDs(ctx, s.db, sc)
	if err != nil {
		return nil, err
	}
	match := scope.Merge(sc.SubEntityFilter(visible), bson.M{"_id": id})

	comment := models.TaskComment{
		ID:        primitive.NewObjectID(),
		AuthorID:  sc.UserID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	res, err := s.db.Collection(database.ColTasks).UpdateOne(ctx, match, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return nil, fmt.Errorf("add task comment: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	var task models.Task
	if err := s.db.Collection(database.ColTasks).FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}
	return &task, nil
}

// visibleTo mirrors the read scope for a loaded project document.
func (s *TaskService) visibleTo(sc scope.Scope, project *models.Project) bool {
	switch sc.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleProjectManager:
		for _, m := range project.Managers {
			if m == sc.UserID {
				return true
			}
		}
		return false
	default:
		return project.ClientID == sc.UserID
	}
}

// mayMutate reports whether the caller can modify the task: assignee,
// creator, a manager of its project, or a super admin.
func (s *TaskService) mayMutate(sc scope.Scope, task *models.Task, project *models.Project) bool {
	if sc.IsAdmin() || task.AssigneeID == sc.UserID || task.CreatedBy == sc.UserID {
		return true
	}
	if sc.Role == models.RoleProjectManager {
		for _, m := range project.Managers {
			if m == sc.UserID {
				return true
			}
		}
	}
	return false
}

// checkManagedProject verifies the caller manages (or administers) the
// target project.
func (s *TaskService) checkManagedProject(ctx context.Context, sc scope.Scope, projectID primitive.ObjectID) error {
	var ownership bson.M
	switch sc.Role {
	case models.RoleSuperAdmin:
		ownership = bson.M{}
	case models.RoleProjectManager:
		ownership = bson.M{"managers": sc.UserID}
	default:
		return ErrForbidden
	}
	count, err := s.db.Collection(database.ColProjects).CountDocuments(ctx,
		scope.Merge(ownership, bson.M{"_id": projectID}))
	if err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
