package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	switch ProjectStatus(s) {
	case ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusOnHold,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// Priority is shared by projects, tasks and schedule activities.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether s is a known priority.
func ValidPriority(s string) bool {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// FileRef points at uploaded file bytes held in object storage.
type FileRef struct {
	Key         string             `bson:"key" json:"key"`
	Name        string             `bson:"name" json:"name"`
	Size        int64              `bson:"size" json:"size"`
	ContentType string             `bson:"contentType" json:"contentType"`
	UploadedBy  primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

// Project represents an interior-design project.
// References are resolved via $lookup at read time; clientId and managers are
// the ownership fields every access filter keys off.
type Project struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	ClientID    primitive.ObjectID   `bson:"clientId" json:"clientId"`
	Managers    []primitive.ObjectID `bson:"managers" json:"managers"`
	Status      ProjectStatus        `bson:"status" json:"status"`
	Priority    Priority             `bson:"priority" json:"priority"`
	Progress    int                  `bson:"progress" json:"progress"` // derived, 0-100
	StartDate   *time.Time           `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate     *time.Time           `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Budget      float64              `bson:"budget,omitempty" json:"budget,omitempty"`
	Tags        []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	Files       []FileRef            `bson:"files,omitempty" json:"files,omitempty"`
	Schedule    Schedule             `bson:"schedule" json:"schedule"`
	CreatedBy   primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time            `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updated_at"`
}

// ProjectWithRefs is the joined project shape returned by list/get endpoints.
type ProjectWithRefs struct {
	Project  `bson:",inline"`
	Client   *UserSummary  `bson:"client,omitempty" json:"client,omitempty"`
	Managers []UserSummary `bson:"managerRefs,omitempty" json:"managerRefs,omitempty"`
}

// RecomputeProgress sets Progress from the current activity tree.
// round(100 * completed / total); 0 when the tree holds no activities.
func (p *Project) RecomputeProgress() {
	p.Progress = p.Schedule.Progress()
}

// Progress computes the completion percentage of the schedule tree.
func (s Schedule) Progress() int {
	total, completed := 0, 0
	for _, phase := range s.Phases {
		for _, week := range phase.Weeks {
			for _, act := range week.Activities {
				total++
				if act.Status == ActivityStatusCompleted {
					completed++
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
