package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityStatus is the state of a single site-schedule activity.
type ActivityStatus string

const (
	ActivityStatusToDo       ActivityStatus = "to_do"
	ActivityStatusPending    ActivityStatus = "pending"
	ActivityStatusInProgress ActivityStatus = "in_progress"
	ActivityStatusCompleted  ActivityStatus = "completed"
)

// ValidActivityStatus reports whether s is a known activity status.
func ValidActivityStatus(s string) bool {
	switch ActivityStatus(s) {
	case ActivityStatusToDo, ActivityStatusPending, ActivityStatusInProgress, ActivityStatusCompleted:
		return true
	}
	return false
}

// Schedule is the nested site-schedule tree embedded in a project:
// phases -> weeks -> activities.
type Schedule struct {
	Phases []Phase `bson:"phases,omitempty" json:"phases"`
}

// Phase groups schedule weeks under a construction phase heading.
type Phase struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title string             `bson:"title" json:"title"`
	Weeks []Week             `bson:"weeks,omitempty" json:"weeks"`
}

// Week groups activities under a week label.
type Week struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Label      string             `bson:"label" json:"label"`
	Activities []Activity         `bson:"activities,omitempty" json:"activities"`
}

// Activity is a single scheduled item of site work.
type Activity struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title      string             `bson:"title" json:"title"`
	Contractor string             `bson:"contractor,omitempty" json:"contractor,omitempty"`
	Supervisor string             `bson:"supervisor,omitempty" json:"supervisor,omitempty"`
	StartDate  *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate    *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Status     ActivityStatus     `bson:"status" json:"status"`
	Priority   Priority           `bson:"priority,omitempty" json:"priority,omitempty"`
	Category   string             `bson:"category,omitempty" json:"category,omitempty"`
	Comments   []ActivityComment  `bson:"comments,omitempty" json:"comments,omitempty"`
	Images     []string           `bson:"images,omitempty" json:"images,omitempty"`
}

// ActivityComment is a note on an activity. Internal comments are stripped
// from responses for client-role callers.
type ActivityComment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID  primitive.ObjectID `bson:"authorId" json:"authorId"`
	Body      string             `bson:"body" json:"body"`
	Internal  bool               `bson:"internal,omitempty" json:"internal,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// StripInternalComments returns a copy of the schedule with internal activity
// comments removed. Used before serving the tree to client-role callers.
func (s Schedule) StripInternalComments() Schedule {
	out := Schedule{Phases: make([]Phase, len(s.Phases))}
	for i, phase := range s.Phases {
		out.Phases[i] = phase
		out.Phases[i].Weeks = make([]Week, len(phase.Weeks))
		for j, week := range phase.Weeks {
			out.Phases[i].Weeks[j] = week
			out.Phases[i].Weeks[j].Activities = make([]Activity, len(week.Activities))
			for k, act := range week.Activities {
				out.Phases[i].Weeks[j].Activities[k] = act
				var visible []ActivityComment
				for _, c := range act.Comments {
					if !c.Internal {
						visible = append(visible, c)
					}
				}
				out.Phases[i].Weeks[j].Activities[k].Comments = visible
			}
		}
	}
	return out
}

// FindActivity locates an activity by id inside the tree. Returns nil when
// the id is not present.
func (s *Schedule) FindActivity(id primitive.ObjectID) *Activity {
	for i := range s.Phases {
		for j := range s.Phases[i].Weeks {
			for k := range s.Phases[i].Weeks[j].Activities {
				if s.Phases[i].Weeks[j].Activities[k].ID == id {
					return &s.Phases[i].Weeks[j].Activities[k]
				}
			}
		}
	}
	return nil
}

// RemoveActivity deletes an activity by id. Returns false when not found.
func (s *Schedule) RemoveActivity(id primitive.ObjectID) bool {
	for i := range s.Phases {
		for j := range s.Phases[i].Weeks {
			acts := s.Phases[i].Weeks[j].Activities
			for k := range acts {
				if acts[k].ID == id {
					s.Phases[i].Weeks[j].Activities = append(acts[:k], acts[k+1:]...)
					return true
				}
			}
		}
	}
	return false
}
