package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusBlocked:
		return true
	}
	return false
}

// TaskComment is an embedded comment on a task.
type TaskComment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID  primitive.ObjectID `bson:"authorId" json:"authorId"`
	Body      string             `bson:"body" json:"body"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// Task represents a unit of work inside a project.
type Task struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	ProjectID   primitive.ObjectID   `bson:"projectId" json:"projectId"`
	AssigneeID  primitive.ObjectID   `bson:"assigneeId,omitempty" json:"assigneeId,omitempty"`
	CreatedBy   primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	Status      TaskStatus           `bson:"status" json:"status"`
	Priority    Priority             `bson:"priority" json:"priority"`
	Deadline    *time.Time           `bson:"deadline,omitempty" json:"deadline,omitempty"`
	Progress    int                  `bson:"progress" json:"progress"`
	DependsOn   []primitive.ObjectID `bson:"dependsOn,omitempty" json:"dependsOn,omitempty"`
	Comments    []TaskComment        `bson:"comments,omitempty" json:"comments,omitempty"`
	Attachments []FileRef            `bson:"attachments,omitempty" json:"attachments,omitempty"`
	CompletedAt *time.Time           `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updated_at"`
}

// TaskWithRefs is the joined task shape: assignee summary plus project title.
type TaskWithRefs struct {
	Task         `bson:",inline"`
	Assignee     *UserSummary `bson:"assignee,omitempty" json:"assignee,omitempty"`
	ProjectTitle string       `bson:"projectTitle,omitempty" json:"projectTitle,omitempty"`
}
