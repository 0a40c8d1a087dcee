package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recurrence is the repeat rule of an explicitly created calendar event.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// ValidRecurrence reports whether s is a known recurrence rule.
func ValidRecurrence(s string) bool {
	switch Recurrence(s) {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// EventSource distinguishes persisted events from read-time projections.
type EventSource string

const (
	EventSourceUser      EventSource = "event"
	EventSourceProject   EventSource = "project_deadline"
	EventSourceTask      EventSource = "task_deadline"
	EventSourceMilestone EventSource = "milestone"
)

// CalendarEvent is an explicitly created event. Deadline entries synthesized
// from projects/tasks/milestones share this shape on the wire but are never
// persisted (Source != EventSourceUser).
type CalendarEvent struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	StartsAt    time.Time            `bson:"startsAt" json:"startsAt"`
	EndsAt      time.Time            `bson:"endsAt" json:"endsAt"`
	AllDay      bool                 `bson:"allDay,omitempty" json:"allDay,omitempty"`
	ProjectID   *primitive.ObjectID  `bson:"projectId,omitempty" json:"projectId,omitempty"`
	CreatedBy   primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	Attendees   []primitive.ObjectID `bson:"attendees,omitempty" json:"attendees,omitempty"`
	Recurrence  Recurrence           `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
	Source      EventSource          `bson:"-" json:"source"`
	CreatedAt   time.Time            `bson:"createdAt" json:"created_at"`
}

// DeriveEvents synthesizes calendar entries from project end dates, task
// deadlines and milestone due dates. Pure projection: no persisted row exists
// for these, and they are merged with stored events only at the response
// boundary.
func DeriveEvents(projects []Project, tasks []Task, milestones []Milestone) []CalendarEvent {
	var out []CalendarEvent
	for _, p := range projects {
		if p.EndDate == nil {
			continue
		}
		pid := p.ID
		out = append(out, CalendarEvent{
			ID:        p.ID,
			Title:     p.Title + " deadline",
			StartsAt:  *p.EndDate,
			EndsAt:    *p.EndDate,
			AllDay:    true,
			ProjectID: &pid,
			Source:    EventSourceProject,
		})
	}
	for _, t := range tasks {
		if t.Deadline == nil {
			continue
		}
		pid := t.ProjectID
		out = append(out, CalendarEvent{
			ID:        t.ID,
			Title:     t.Title,
			StartsAt:  *t.Deadline,
			EndsAt:    *t.Deadline,
			AllDay:    true,
			ProjectID: &pid,
			Source:    EventSourceTask,
		})
	}
	for _, m := range milestones {
		if m.DueDate == nil {
			continue
		}
		pid := m.ProjectID
		out = append(out, CalendarEvent{
			ID:        m.ID,
			Title:     m.Title,
			StartsAt:  *m.DueDate,
			EndsAt:    *m.DueDate,
			AllDay:    true,
			ProjectID: &pid,
			Source:    EventSourceMilestone,
		})
	}
	return out
}
