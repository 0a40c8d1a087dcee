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
	"github.com/atelierhq/atelier/internal/scope"
)

// RiskService handles the project risk register. Risk scores are derived:
// recomputed on every write that touches a rating.
type RiskService struct {
	db    *database.DB
	tasks *TaskService
}

// NewRiskService creates a new RiskService
func NewRiskService(db *database.DB, tasks *TaskService) *RiskService {
	return &RiskService{db: db, tasks: tasks}
}

// List returns caller-visible risks, highest score first.
func (s *RiskService) List(ctx context.Context, sc scope.Scope, projectID *primitive.ObjectID, page models.PageRequest) ([]models.Risk, models.PageMeta, error) {
	visible, err := scope.VisibleProjectIDs(ctx, s.db, sc)
	if err != nil {
		return nil, models.PageMeta{}, err
	}
	match := sc.SubEntityFilter(visible)
	if projectID != nil {
		match = scope.Merge(match, bson.M{"projectId": *projectID})
	}

	col := s.db.Collection(database.ColRisks)
	total, err := col.CountDocuments(ctx, match)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("count risks: %w", err)
	}

	cursor, err := col.Find(ctx, match, optionsFindPage(page, bson.D{{Key: "riskScore", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list risks: %w", err)
	}
	results := make([]models.Risk, 0, page.Limit)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("decode risks: %w", err)
	}
	return results, models.NewPageMeta(page, total), nil
}

// CreateRiskParams holds the validated fields for a new risk entry.
type CreateRiskParams struct {
	ProjectID   primitive.ObjectID
	Title       string
	Description string
	Probability models.RiskRating
	Impact      models.RiskRating
	OwnerID     *primitive.ObjectID
}

// Create inserts a risk into a project the caller manages.
func (s *RiskService) Create(ctx context.Context, sc scope.Scope, params CreateRiskParams) (*models.Risk, error) {
	if err := s.tasks.checkManagedProject(ctx, sc, params.ProjectID); err != nil {
		return nil, err
	}

	now := time.Now()
	risk := models.Risk{
		ProjectID:   params.ProjectID,
		Title:       params.Title,
		Description: params.Description,
		Probability: params.Probability,
		Impact:      params.Impact,
		OwnerID:     params.OwnerID,
		Status:      models.RiskStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	risk.RecomputeScores()

	res, err := s.db.Collection(database.ColRisks).InsertOne(ctx, risk)
	if err != nil {
		return nil, fmt.Errorf("create risk: %w", err)
	}
	risk.ID, _ = res.InsertedID.(primitive.ObjectID)
	return &risk, nil
}

// UpdateRiskParams holds the optional fields of a risk update.
type UpdateRiskParams struct {
	Title               *string
	Description         *string
	Probability         *models.RiskRating
	Impact              *models.RiskRating
	ResidualProbability *models.RiskRating
	ResidualImpact      *models.RiskRating
	OwnerID             *primitive.ObjectID
	Status              *models.RiskStatus
}

// Update applies a partial update to a risk in a project the caller manages,
// then recomputes the derived scores from the resulting ratings.
func (s *RiskService) Update(ctx context.Context, sc scope.Scope, id primitive.ObjectID, params UpdateRiskParams) (*models.Risk, error) {
	var risk models.Risk
	err := s.db.Collection(database.ColRisks).FindOne(ctx, bson.M{"_id": id}).Decode(&risk)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get risk: %w", err)
	}
	if err := s.tasks.checkManagedProject(ctx, sc, risk.ProjectID); err != nil {
		return nil, err
	}

	if params.Title != nil {
		risk.Title = *params.Title
	}
	if params.Description != nil {
		risk.Description = *params.Description
	}
	if params.Probability != nil {
		risk.Probability = *params.Probability
	}
	if params.Impact != nil {
		risk.Impact = *params.Impact
	}
	if params.ResidualProbability != nil {
		risk.ResidualProbability = *params.ResidualProbability
	}
	if params.ResidualImpact != nil {
		risk.ResidualImpact = *params.ResidualImpact
	}
	if params.OwnerID != nil {
		risk.OwnerID = params.OwnerID
	}
	if params.Status != nil {
		risk.Status = *params.Status
	}
	risk.RecomputeScores()
	risk.UpdatedAt = time.Now()

	_, err = s.db.Collection(database.ColRisks).ReplaceOne(ctx, bson.M{"_id": id}, risk)
	if err != nil {
		return nil, fmt.Errorf("update risk: %w", err)
	}
	return &risk, nil
}

// Delete removes a risk. Role gating (super_admin only) happens in the
// handler; the id must still resolve inside the caller's visible set.
func (s *RiskService) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.Collection(database.ColRisks).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete risk: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
