package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MilestonePhase tags a milestone with the project phase it closes.
type MilestonePhase string

const (
	MilestonePhaseConstruction MilestonePhase = "construction"
	MilestonePhaseInstallation MilestonePhase = "installation"
	MilestonePhaseStyling      MilestonePhase = "styling"
)

// ValidMilestonePhase reports whether s is a known milestone phase.
func ValidMilestonePhase(s string) bool {
	switch MilestonePhase(s) {
	case MilestonePhaseConstruction, MilestonePhaseInstallation, MilestonePhaseStyling:
		return true
	}
	return false
}

// MilestoneStatus is the lifecycle state of a milestone.
type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusCompleted  MilestoneStatus = "completed"
)

// ValidMilestoneStatus reports whether s is a known milestone status.
func ValidMilestoneStatus(s string) bool {
	switch MilestoneStatus(s) {
	case MilestoneStatusPending, MilestoneStatusInProgress, MilestoneStatusCompleted:
		return true
	}
	return false
}

// Milestone is a dated delivery checkpoint of a project. Stored as its own
// collection with a project back-reference.
type Milestone struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProjectID   primitive.ObjectID  `bson:"projectId" json:"projectId"`
	Title       string              `bson:"title" json:"title"`
	Phase       MilestonePhase      `bson:"phase,omitempty" json:"phase,omitempty"`
	Status      MilestoneStatus     `bson:"status" json:"status"`
	DueDate     *time.Time          `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	CompletedAt *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CompletedBy *primitive.ObjectID `bson:"completedBy,omitempty" json:"completedBy,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updated_at"`
}

// MilestoneWithRefs is the joined milestone shape with the project title.
type MilestoneWithRefs struct {
	Milestone    `bson:",inline"`
	ProjectTitle string `bson:"projectTitle,omitempty" json:"projectTitle,omitempty"`
}
