package auth

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
)

// ErrInvalidCredentials is returned for a bad email/password pair and for a
// deactivated account, without distinguishing the two.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidSession is returned when a session token is unknown or expired.
var ErrInvalidSession = errors.New("invalid session")

// Auth handles login sessions and credential checks over Mongo.
type Auth struct {
	db *database.DB
}

// NewAuth creates a new Auth instance
func NewAuth(db *database.DB) *Auth {
	return &Auth{db: db}
}

// Login authenticates a user and creates a session.
func (a *Auth) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	var user models.User
	err := a.db.Collection(database.ColUsers).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive || !CheckPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session token: %w", err)
	}

	session := Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: CalculateExpiry(),
		CreatedAt: time.Now(),
	}
	if _, err := a.db.Collection(database.ColSessions).InsertOne(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}
	return &user, token, nil
}

// ValidateSession validates a session token and returns the user.
func (a *Auth) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	var session Session
	err := a.db.Collection(database.ColSessions).FindOne(ctx, bson.M{"token": token}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		// Expired sessions are removed lazily here and hourly by cleanup.
		_, _ = a.db.Collection(database.ColSessions).DeleteOne(ctx, bson.M{"token": token})
		return nil, ErrInvalidSession
	}

	var user models.User
	err = a.db.Collection(database.ColUsers).FindOne(ctx, bson.M{"_id": session.UserID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidSession
	}
	return &user, nil
}

// Logout deletes a session.
func (a *Auth) Logout(ctx context.Context, token string) error {
	if _, err := a.db.Collection(database.ColSessions).DeleteOne(ctx, bson.M{"token": token}); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password and stores a new hash.
func (a *Auth) ChangePassword(ctx context.Context, userID primitive.ObjectID, current, next string) error {
	var user models.User
	err := a.db.Collection(database.ColUsers).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !CheckPassword(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	_, err = a.db.Collection(database.ColUsers).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"passwordHash": hash, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions.
func (a *Auth) CleanupExpiredSessions(ctx context.Context) error {
	_, err := a.db.Collection(database.ColSessions).DeleteMany(ctx,
		bson.M{"expiresAt": bson.M{"$lt": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return nil
}
