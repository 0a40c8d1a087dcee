package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/outbox"
	"github.com/atelierhq/atelier/internal/scope"
	"github.com/atelierhq/atelier/internal/storage"
)

// ProjectService handles project operations: role-scoped reads with joined
// user references, mutations, and the delete cascade.
type ProjectService struct {
	db      *database.DB
	outbox  *outbox.Outbox
	storage *storage.Client
	logger  *zap.Logger
}

// NewProjectService creates a new ProjectService
func NewProjectService(db *database.DB, ob *outbox.Outbox, st *storage.Client, logger *zap.Logger) *ProjectService {
	return &ProjectService{db: db, outbox: ob, storage: st, logger: logger}
}

// ProjectListFilter narrows the project list beyond the caller's scope.
type ProjectListFilter struct {
	Status   string
	Priority string
	Search   string
}

// projectSortFields is the allowlist of caller-specified sort fields.
var projectSortFields = map[string]string{
	"createdAt": "createdAt",
	"title":     "title",
	"status":    "status",
	"priority":  "priority",
	"progress":  "progress",
	"endDate":   "endDate",
}

// lookupUserPipeline joins a single user reference and strips credential
// fields database-side, before anything reaches the response shaping.
func lookupUserStages(localField, as string) []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.M{
			"from":         database.ColUsers,
			"localField":   localField,
			"foreignField": "_id",
			"as":           as,
		}}},
		{{Key: "$project", Value: bson.M{
			as + ".passwordHash": 0,
			as + ".phone":        0,
			as + ".isActive":     0,
			as + ".createdAt":    0,
			as + ".updatedAt":    0,
		}}},
	}
}

// List returns the caller-visible projects, joined with client and manager
// summaries, sorted and paginated.
func (s *ProjectService) List(ctx context.Context, sc scope.Scope, filter ProjectListFilter, sortBy string, desc bool, page models.PageRequest) ([]models.ProjectWithRefs, models.PageMeta, error) {
	match := sc.ProjectFilter()
	extra := bson.M{}
	if filter.Status != "" {
		extra["status"] = filter.Status
	}
	if filter.Priority != "" {
		extra["priority"] = filter.Priority
	}
	if filter.Search != "" {
		extra["title"] = bson.M{"$regex": filter.Search, "$options": "i"}
	}
	match = scope.Merge(match, extra)

	col := s.db.Collection(database.ColProjects)
	total, err := col.CountDocuments(ctx, match)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("count projects: %w", err)
	}

	sortField, ok := projectSortFields[sortBy]
	if !ok {
		sortField, desc = "createdAt", true
	}
	dir := 1
	if desc {
		dir = -1
	}

	pipeline := []bson.D{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: sortField, Value: dir}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: int64(page.Limit)}},
	}
	pipeline = append(pipeline, lookupUserStages("clientId", "client")...)
	pipeline = append(pipeline, lookupUserStages("managers", "managerRefs")...)
	pipeline = append(pipeline,
		bson.D{{Key: "$addFields", Value: bson.M{
			"client": bson.M{"$arrayElemAt": bson.A{"$client", 0}},
		}}},
	)

	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list projects: %w", err)
	}
	results := make([]models.ProjectWithRefs, 0, page.Limit)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("decode projects: %w", err)
	}
	if sc.Role == models.RoleClient {
		for i := range results {
			results[i].Schedule = results[i].Schedule.StripInternalComments()
		}
	}
	return results, models.NewPageMeta(page, total), nil
}

// Get returns one visible project with joined references. The scope predicate
// rides in the match stage, so an id outside the caller's set is not found.
func (s *ProjectService) Get(ctx context.Context, sc scope.Scope, id primitive.ObjectID) (*models.ProjectWithRefs, error) {
	match := scope.Merge(sc.ProjectFilter(), bson.M{"_id": id})
	pipeline := []bson.D{{{Key: "$match", Value: match}}}
	pipeline = append(pipeline, lookupUserStages("clientId", "client")...)
	pipeline = append(pipeline, lookupUserStages("managers", "managerRefs")...)
	pipeline = append(pipeline,
		bson.D{{Key: "$addFields", Value: bson.M{
			"client": bson.M{"$arrayElemAt": bson.A{"$client", 0}},
		}}},
	)

	cursor, err := s.db.Collection(database.ColProjects).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	var results []models.ProjectWithRefs
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	p := results[0]
	if sc.Role == models.RoleClient {
		p.Schedule = p.Schedule.StripInternalComments()
	}
	return &p, nil
}

// getOwned loads the raw project document if the caller may mutate it:
// an assigned manager or a super admin. Misses surface as ErrNotFound.
func (s *ProjectService) getOwned(ctx context.Context, sc scope.Scope, id primitive.ObjectID) (*models.Project, error) {
	var ownership bson.M
	switch sc.Role {
	case models.RoleSuperAdmin:
		ownership = bson.M{}
	case models.RoleProjectManager:
		ownership = bson.M{"managers": sc.UserID}
	default:
		return nil, ErrForbidden
	}
	var project models.Project
	err := s.db.Collection(database.ColProjects).
		FindOne(ctx, scope.Merge(ownership, bson.M{"_id": id})).
		Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &project, nil
}

// CreateProjectParams holds the validated fields for a new project.
type CreateProjectParams struct {
	Title       string
	Description string
	ClientID    primitive.ObjectID
	Managers    []primitive.ObjectID
	Priority    models.Priority
	StartDate   *time.Time
	EndDate     *time.Time
	Budget      float64
	Tags        []string
}

// Create inserts a new project and queues project_created notifications for
// the client and every assigned manager.
func (s *ProjectService) Create(ctx context.Context, sc scope.Scope, params CreateProjectParams) (*models.Project, error) {
	if err := s.checkUserRole(ctx, params.ClientID, models.RoleClient); err != nil {
		return nil, err
	}
	for _, m := range params.Managers {
		if err := s.checkUserRole(ctx, m, models.RoleProjectManager); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	project := models.Project{
		Title:       params.Title,
		Description: params.Description,
		ClientID:    params.ClientID,
		Managers:    params.Managers,
		Status:      models.ProjectStatusPlanning,
		Priority:    params.Priority,
		Progress:    0,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		Budget:      params.Budget,
		Tags:        params.Tags,
		CreatedBy:   sc.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := s.db.Collection(database.ColProjects).InsertOne(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	project.ID, _ = res.InsertedID.(primitive.ObjectID)

	sender := sc.UserID
	s.outbox.Append(ctx, outbox.Event{
		Type:       models.NotificationProjectCreated,
		Recipients: append([]primitive.ObjectID{params.ClientID}, params.Managers...),
		SenderID:   &sender,
		Title:      "New project",
		Message:    fmt.Sprintf("Project %q has been created", project.Title),
		Data:       bson.M{"projectId": project.ID},
	})
	return &project, nil
}

// UpdateProjectParams holds the optional fields of a project update.
// Nil pointers leave the stored value untouched.
type UpdateProjectParams struct {
	Title       *string
	Description *string
	Status      *models.ProjectStatus
	Priority    *models.Priority
	StartDate   *time.Time
	EndDate     *time.Time
	Budget      *float64
	Tags        []string
	Managers    []primitive.ObjectID
}

// Update applies a partial update. Only an assigned manager or a super admin
// may update; reassigning managers is super_admin only.
func (s *ProjectService) Update(ctx context.Context, sc scope.Scope, id primitive.ObjectID, params UpdateProjectParams) (*models.Project, error) {
	if _, err := s.getOwned(ctx, sc, id); err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now()}
	if params.Title != nil {
		set["title"] = *params.Title
	}
	if params.Description != nil {
		set["description"] = *params.Description
	}
	if params.Status != nil {
		set["status"] = *params.Status
	}
	if params.Priority != nil {
		set["priority"] = *params.Priority
	}
	if params.StartDate != nil {
		set["startDate"] = *params.StartDate
	}
	if params.EndDate != nil {
		set["endDate"] = *params.EndDate
	}
	if params.Budget != nil {
		set["budget"] = *params.Budget
	}
	if params.Tags != nil {
		set["tags"] = params.Tags
	}
	if params.Managers != nil {
		if !sc.IsAdmin() {
			return nil, ErrForbidden
		}
		for _, m := range params.Managers {
			if err := s.checkUserRole(ctx, m, models.RoleProjectManager); err != nil {
				return nil, err
			}
		}
		set["managers"] = params.Managers
	}

	_, err := s.db.Collection(database.ColProjects).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return s.getRaw(ctx, id)
}

// Delete removes a project and cascades to everything referencing it:
// tasks, milestones, risks, messages, calendar events, notifications and
// stored file objects. Caller gating (super_admin) happens in the handler.
func (s *ProjectService) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection(database.ColProjects).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	byProject := bson.M{"projectId": id}
	for _, col := range []string{
		database.ColTasks,
		database.ColMilestones,
		database.ColRisks,
		database.ColMessages,
		database.ColEvents,
	} {
		if _, err := s.db.Collection(col).DeleteMany(ctx, byProject); err != nil {
			return fmt.Errorf("cascade delete %s: %w", col, err)
		}
	}
	if _, err := s.db.Collection(database.ColNotifications).DeleteMany(ctx,
		bson.M{"data.projectId": id}); err != nil {
		return fmt.Errorf("cascade delete notifications: %w", err)
	}

	// Stored bytes are best-effort: an unreachable object store must not
	// resurrect the project.
	if s.storage.Enabled() {
		if err := s.storage.DeleteProjectObjects(ctx, id.Hex()); err != nil {
			s.logger.Warn("delete project objects", zap.String("project_id", id.Hex()), zap.Error(err))
		}
	}
	return nil
}

// AddFileRef appends an uploaded file reference to a project the caller
// manages.
func (s *ProjectService) AddFileRef(ctx context.Context, sc scope.Scope, id primitive.ObjectID, ref models.FileRef) error {
	if _, err := s.getOwned(ctx, sc, id); err != nil {
		return err
	}
	_, err := s.db.Collection(database.ColProjects).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"files": ref},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
	if err != nil {
		return fmt.Errorf("add file ref: %w", err)
	}
	return nil
}

// RemoveFileRef drops a file reference by key from a project the caller
// manages. Returns ErrNotFound when the key is not attached.
func (s *ProjectService) RemoveFileRef(ctx context.Context, sc scope.Scope, id primitive.ObjectID, key string) error {
	if _, err := s.getOwned(ctx, sc, id); err != nil {
		return err
	}
	res, err := s.db.Collection(database.ColProjects).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$pull": bson.M{"files": bson.M{"key": key}},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
	if err != nil {
		return fmt.Errorf("remove file ref: %w", err)
	}
	if res.ModifiedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ProjectService) getRaw(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	err := s.db.Collection(database.ColProjects).FindOne(ctx, bson.M{"_id": id}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &project, nil
}

// checkUserRole verifies a referenced user exists, is active and carries the
// expected role.
func (s *ProjectService) checkUserRole(ctx context.Context, id primitive.ObjectID, role models.Role) error {
	count, err := s.db.Collection(database.ColUsers).CountDocuments(ctx,
		bson.M{"_id": id, "role": role, "isActive": true})
	if err != nil {
		return fmt.Errorf("check user role: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: no active %s with id %s", ErrNotFound, role, id.Hex())
	}
	return nil
}
