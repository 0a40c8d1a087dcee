package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RiskRating is a probability or impact estimate on the five-point scale.
type RiskRating string

const (
	RiskVeryLow  RiskRating = "very_low"
	RiskLow      RiskRating = "low"
	RiskMedium   RiskRating = "medium"
	RiskHigh     RiskRating = "high"
	RiskVeryHigh RiskRating = "very_high"
)

// ValidRiskRating reports whether s is a known risk rating.
func ValidRiskRating(s string) bool {
	_, ok := riskRatingScores[RiskRating(s)]
	return ok
}

var riskRatingScores = map[RiskRating]int{
	RiskVeryLow:  1,
	RiskLow:      2,
	RiskMedium:   3,
	RiskHigh:     4,
	RiskVeryHigh: 5,
}

// Score maps the rating to its 1..5 numeric value; 0 for an unknown rating.
func (r RiskRating) Score() int {
	return riskRatingScores[r]
}

// RiskScore is probability x impact on the 1..5 scale (1..25).
// Returns 0 when either rating is unknown or empty.
func RiskScore(probability, impact RiskRating) int {
	p, i := probability.Score(), impact.Score()
	if p == 0 || i == 0 {
		return 0
	}
	return p * i
}

// RiskStatus is the lifecycle state of a risk register entry.
type RiskStatus string

const (
	RiskStatusOpen       RiskStatus = "open"
	RiskStatusMitigating RiskStatus = "mitigating"
	RiskStatusClosed     RiskStatus = "closed"
	RiskStatusAccepted   RiskStatus = "accepted"
)

// ValidRiskStatus reports whether s is a known risk status.
func ValidRiskStatus(s string) bool {
	switch RiskStatus(s) {
	case RiskStatusOpen, RiskStatusMitigating, RiskStatusClosed, RiskStatusAccepted:
		return true
	}
	return false
}

// Risk is a risk-register entry for a project. RiskScore and ResidualScore
// are derived fields, recomputed whenever their inputs change.
type Risk struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProjectID           primitive.ObjectID  `bson:"projectId" json:"projectId"`
	Title               string              `bson:"title" json:"title"`
	Description         string              `bson:"description,omitempty" json:"description,omitempty"`
	Probability         RiskRating          `bson:"probability" json:"probability"`
	Impact              RiskRating          `bson:"impact" json:"impact"`
	RiskScore           int                 `bson:"riskScore" json:"riskScore"`
	ResidualProbability RiskRating          `bson:"residualProbability,omitempty" json:"residualProbability,omitempty"`
	ResidualImpact      RiskRating          `bson:"residualImpact,omitempty" json:"residualImpact,omitempty"`
	ResidualScore       int                 `bson:"residualScore,omitempty" json:"residualScore,omitempty"`
	OwnerID             *primitive.ObjectID `bson:"ownerId,omitempty" json:"ownerId,omitempty"`
	Status              RiskStatus          `bson:"status" json:"status"`
	CreatedAt           time.Time           `bson:"createdAt" json:"created_at"`
	UpdatedAt           time.Time           `bson:"updatedAt" json:"updated_at"`
}

// RecomputeScores refreshes RiskScore and ResidualScore from the current
// ratings. ResidualScore stays 0 until both residual ratings are present.
func (r *Risk) RecomputeScores() {
	r.RiskScore = RiskScore(r.Probability, r.Impact)
	r.ResidualScore = RiskScore(r.ResidualProbability, r.ResidualImpact)
}
