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

// ScheduleService handles the nested site-schedule tree of a project.
// Every save recomputes the project's derived progress percentage.
type ScheduleService struct {
	projects *ProjectService
	db       *database.DB
	outbox   *outbox.Outbox
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(db *database.DB, projects *ProjectService, ob *outbox.Outbox) *ScheduleService {
	return &ScheduleService{projects: projects, db: db, outbox: ob}
}

// Get returns the schedule tree of a visible project. Internal activity
// comments are stripped for client-role callers.
func (s *ScheduleService) Get(ctx context.Context, sc scope.Scope, projectID primitive.ObjectID) (*models.Schedule, error) {
	p, err := s.projects.Get(ctx, sc, projectID)
	if err != nil {
		return nil, err
	}
	return &p.Schedule, nil
}

// Replace overwrites the whole schedule tree. Activities without an id get
// one assigned. The project's progress is recomputed from the new tree and a
// project_progress notification is queued for the client when the percentage
// changed.
func (s *ScheduleService) Replace(ctx context.Context, sc scope.Scope, projectID primitive.ObjectID, schedule models.Schedule) (*models.Project, error) {
	project, err := s.projects.getOwned(ctx, sc, projectID)
	if err != nil {
		return nil, err
	}

	ensureIDs(&schedule)
	oldProgress := project.Progress
	project.Schedule = schedule
	project.RecomputeProgress()

	return s.save(ctx, sc, project, oldProgress)
}

// ActivityUpdate holds the optional fields of an activity update.
type ActivityUpdate struct {
	Title      *string
	Contractor *string
	Supervisor *string
	StartDate  *time.Time
	EndDate    *time.Time
	Status     *models.ActivityStatus
	Priority   *models.Priority
	Category   *string
}

// UpdateActivity patches one activity in place and recomputes progress.
func (s *ScheduleService) UpdateActivity(ctx context.Context, sc scope.Scope, projectID, activityID primitive.ObjectID, upd ActivityUpdate) (*models.Project, error) {
	project, err := s.projects.getOwned(ctx, sc, projectID)
	if err != nil {
		return nil, err
	}

	act := project.Schedule.FindActivity(activityID)
	if act == nil {
		return nil, ErrNotFound
	}
	if upd.Title != nil {
		act.Title = *upd.Title
	}
	if upd.Contractor != nil {
		act.Contractor = *upd.Contractor
	}
	if upd.Supervisor != nil {
		act.Supervisor = *upd.Supervisor
	}
	if upd.StartDate != nil {
		act.StartDate = upd.StartDate
	}
	if upd.EndDate != nil {
		act.EndDate = upd.EndDate
	}
	if upd.Status != nil {
		act.Status = *upd.Status
	}
	if upd.Priority != nil {
		act.Priority = *upd.Priority
	}
	if upd.Category != nil {
		act.Category = *upd.Category
	}

	oldProgress := project.Progress
	project.RecomputeProgress()
	return s.save(ctx, sc, project, oldProgress)
}

// AddActivityComment appends a comment to an activity. Managers may mark a
// comment internal to keep it off client reads.
func (s *ScheduleService) AddActivityComment(ctx context.Context, sc scope.Scope, projectID, activityID primitive.ObjectID, body string, internal bool) (*models.Project, error) {
	project, err := s.projects.getOwned(ctx, sc, projectID)
	if err != nil {
		return nil, err
	}
	act := project.Schedule.FindActivity(activityID)
	if act == nil {
		return nil, ErrNotFound
	}
	act.Comments = append(act.Comments, models.ActivityComment{
		ID:        primitive.NewObjectID(),
		AuthorID:  sc.UserID,
		Body:      body,
		Internal:  internal,
		CreatedAt: time.Now(),
	})
	return s.save(ctx, sc, project, project.Progress)
}

// DeleteActivity removes one activity from the tree and recomputes progress.
func (s *ScheduleService) DeleteActivity(ctx context.Context, sc scope.Scope, projectID, activityID primitive.ObjectID) (*models.Project, error) {
	project, err := s.projects.getOwned(ctx, sc, projectID)
	if err != nil {
		return nil, err
	}
	if !project.Schedule.RemoveActivity(activityID) {
		return nil, ErrNotFound
	}
	oldProgress := project.Progress
	project.RecomputeProgress()
	return s.save(ctx, sc, project, oldProgress)
}

// save persists the schedule and progress, queueing a project_progress
// notification for the client when the percentage moved.
func (s *ScheduleService) save(ctx context.Context, sc scope.Scope, project *models.Project, oldProgress int) (*models.Project, error) {
	_, err := s.db.Collection(database.ColProjects).UpdateOne(ctx,
		bson.M{"_id": project.ID},
		bson.M{"$set": bson.M{
			"schedule":  project.Schedule,
			"progress":  project.Progress,
			"updatedAt": time.Now(),
		}})
	if err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}

	if project.Progress != oldProgress {
		sender := sc.UserID
		s.outbox.Append(ctx, outbox.Event{
			Type:       models.NotificationProjectProgress,
			Recipients: []primitive.ObjectID{project.ClientID},
			SenderID:   &sender,
			Title:      "Project progress updated",
			Message:    fmt.Sprintf("%q is now %d%% complete", project.Title, project.Progress),
			Data:       bson.M{"projectId": project.ID, "progress": project.Progress},
		})
	}
	return project, nil
}

// ensureIDs assigns ObjectIDs to schedule nodes that arrived without one.
func ensureIDs(s *models.Schedule) {
	for i := range s.Phases {
		if s.Phases[i].ID.IsZero() {
			s.Phases[i].ID = primitive.NewObjectID()
		}
		for j := range s.Phases[i].Weeks {
			if s.Phases[i].Weeks[j].ID.IsZero() {
				s.Phases[i].Weeks[j].ID = primitive.NewObjectID()
			}
			for k := range s.Phases[i].Weeks[j].Activities {
				act := &s.Phases[i].Weeks[j].Activities[k]
				if act.ID.IsZero() {
					act.ID = primitive.NewObjectID()
				}
				if act.Status == "" {
					act.Status = models.ActivityStatusToDo
				}
			}
		}
	}
}
