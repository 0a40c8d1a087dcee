package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelierhq/atelier/internal/auth"
	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
)

// UserService handles user account operations.
type UserService struct {
	db *database.DB
}

// NewUserService creates a new UserService
func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

// List returns users, optionally filtered by role, newest first.
func (s *UserService) List(ctx context.Context, roleFilter string, page models.PageRequest) ([]*models.UserResponse, models.PageMeta, error) {
	filter := bson.M{}
	if roleFilter != "" {
		filter["role"] = roleFilter
	}

	col := s.db.Collection(database.ColUsers)
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("count users: %w", err)
	}

	cursor, err := col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit)))
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("list users: %w", err)
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("decode users: %w", err)
	}

	out := make([]*models.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return out, models.NewPageMeta(page, total), nil
}

// GetByID retrieves a user by id.
func (s *UserService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(database.ColUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Create registers a new account with the given role. Emails are unique.
func (s *UserService) Create(ctx context.Context, email, name, phone, password string, role models.Role) (*models.User, error) {
	col := s.db.Collection(database.ColUsers)

	count, err := col.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if count > 0 {
		return nil, ErrConflict
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := models.User{
		Email:        email,
		Name:         name,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := col.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.ID, _ = res.InsertedID.(primitive.ObjectID)
	return &user, nil
}

// UpdateProfile changes a user's name and phone.
func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, phone string) (*models.User, error) {
	res, err := s.db.Collection(database.ColUsers).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"name": name, "phone": phone, "updatedAt": time.Now()}},
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// SetActive toggles the active flag. Deactivated users keep their documents;
// accounts are never hard-deleted.
func (s *UserService) SetActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.User, error) {
	res, err := s.db.Collection(database.ColUsers).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now()}},
	)
	if err != nil {
		return nil, fmt.Errorf("set user active: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}
