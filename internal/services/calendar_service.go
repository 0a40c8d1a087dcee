package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/scope"
)

// CalendarService merges explicitly created events with deadline entries
// synthesized at read time from the caller's visible projects, tasks and
// milestones. Synthesized entries are never persisted.
type CalendarService struct {
	db *database.DB
}

// NewCalendarService creates a new CalendarService
func NewCalendarService(db *database.DB) *CalendarService {
	return &CalendarService{db: db}
}

// List returns all calendar entries in [from, to): stored events the caller
// created or attends, plus derived deadline entries, sorted by start time.
func (s *CalendarService) List(ctx context.Context, sc scope.Scope, from, to time.Time) ([]models.CalendarEvent, error) {
	window := bson.M{"startsAt": bson.M{"$gte": from, "$lt": to}}

	cursor, err := s.db.Collection(database.ColEvents).Find(ctx,
		scope.Merge(sc.EventFilter(), window),
		options.Find().SetSort(bson.D{{Key: "startsAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]models.CalendarEvent, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	for i := range events {
		events[i].Source = models.EventSourceUser
	}

	derived, err := s.deriveWindow(ctx, sc, from, to)
	if err != nil {
		return nil, err
	}
	events = append(events, derived...)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
	return events, nil
}

// deriveWindow loads the caller-visible documents with dated deadlines and
// projects them into calendar entries inside the window.
func (s *CalendarService) deriveWindow(ctx context.Context, sc scope.Scope, from, to time.Time) ([]models.CalendarEvent, error) {
	projCursor, err := s.db.Collection(database.ColProjects).Find(ctx,
		scope.Merge(sc.ProjectFilter(), bson.M{"endDate": bson.M{"$gte": from, "$lt": to}}))
	if err != nil {
		return nil, fmt.Errorf("list deadline projects: %w", err)
	}
	var projects []models.Project
	if err := projCursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("decode deadline projects: %w", err)
	}

	visible, err := scope.VisibleProjectIDs(ctx, s.db, sc)
	if err != nil {
		return nil, err
	}
	subFilter := sc.SubEntityFilter(visible)

	taskCursor, err := s.db.Collection(database.ColTasks).Find(ctx,
		scope.Merge(subFilter, bson.M{"deadline": bson.M{"$gte": from, "$lt": to}}))
	if err != nil {
		return nil, fmt.Errorf("list deadline tasks: %w", err)
	}
	var tasks []models.Task
	if err := taskCursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode deadline tasks: %w", err)
	}

	msCursor, err := s.db.Collection(database.ColMilestones).Find(ctx,
		scope.Merge(subFilter, bson.M{"dueDate": bson.M{"$gte": from, "$lt": to}}))
	if err != nil {
		return nil, fmt.Errorf("list due milestones: %w", err)
	}
	var milestones []models.Milestone
	if err := msCursor.All(ctx, &milestones); err != nil {
		return nil, fmt.Errorf("decode due milestones: %w", err)
	}

	return models.DeriveEvents(projects, tasks, milestones), nil
}

// CreateEventParams holds the validated fields for a new calendar event.
type CreateEventParams struct {
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	AllDay      bool
	ProjectID   *primitive.ObjectID
	Attendees   []primitive.ObjectID
	Recurrence  models.Recurrence
}

// Create stores an explicit calendar event owned by the caller.
func (s *CalendarService) Create(ctx context.Context, sc scope.Scope, params CreateEventParams) (*models.CalendarEvent, error) {
	ev := models.CalendarEvent{
		Title:       params.Title,
		Description: params.Description,
		StartsAt:    params.StartsAt,
		EndsAt:      params.EndsAt,
		AllDay:      params.AllDay,
		ProjectID:   params.ProjectID,
		CreatedBy:   sc.UserID,
		Attendees:   params.Attendees,
		Recurrence:  params.Recurrence,
		Source:      models.EventSourceUser,
		CreatedAt:   time.Now(),
	}
	res, err := s.db.Collection(database.ColEvents).InsertOne(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	ev.ID, _ = res.InsertedID.(primitive.ObjectID)
	return &ev, nil
}
