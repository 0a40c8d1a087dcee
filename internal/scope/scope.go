// Package scope builds the per-role query predicates that narrow every
// collection read to the documents the caller may see. Handlers merge these
// filters into their queries, so an id fetched outside the caller's set is
// simply not found.
package scope

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
)

// Scope carries the resolved caller identity every filter keys off.
type Scope struct {
	UserID primitive.ObjectID
	Role   models.Role
}

// ForUser builds the scope for an authenticated user.
func ForUser(u *models.User) Scope {
	return Scope{UserID: u.ID, Role: u.Role}
}

// IsAdmin reports whether the scope is unrestricted.
func (s Scope) IsAdmin() bool {
	return s.Role == models.RoleSuperAdmin
}

// IsStaff reports whether the caller is a manager or super_admin.
func (s Scope) IsStaff() bool {
	return s.Role == models.RoleSuperAdmin || s.Role == models.RoleProjectManager
}

// ProjectFilter returns the predicate over the projects collection:
// super_admin sees everything, a manager sees projects listing them in
// managers, a client sees projects where they are the client.
func (s Scope) ProjectFilter() bson.M {
	switch s.Role {
	case models.RoleSuperAdmin:
		return bson.M{}
	case models.RoleProjectManager:
		return bson.M{"managers": s.UserID}
	default:
		return bson.M{"clientId": s.UserID}
	}
}

// VisibleProjectIDs resolves the ids of all projects the caller may see.
// Used to scope sub-entity collections transitively. Always returns a
// non-nil slice so an empty result marshals to an empty $in list, which
// matches nothing rather than everything.
func VisibleProjectIDs(ctx context.Context, db *database.DB, s Scope) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0)
	cursor, err := db.Collection(database.ColProjects).Find(ctx, s.ProjectFilter(),
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list visible projects: %w", err)
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode project id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate visible projects: %w", err)
	}
	return ids, nil
}

// SubEntityFilter returns the predicate for collections carrying a projectId
// back-reference (tasks, milestones, risks). Super admins are unrestricted;
// everyone else is narrowed to their visible project set. A caller with zero
// visible projects gets an explicit empty $in list: restricted to nothing.
func (s Scope) SubEntityFilter(visibleProjects []primitive.ObjectID) bson.M {
	if s.IsAdmin() {
		return bson.M{}
	}
	if visibleProjects == nil {
		visibleProjects = make([]primitive.ObjectID, 0)
	}
	return bson.M{"projectId": bson.M{"$in": visibleProjects}}
}

// MessageFilter narrows messages to conversations the caller participates in.
// Soft-deleted messages are excluded for everyone, admins included.
func (s Scope) MessageFilter() bson.M {
	return bson.M{
		"deleted": bson.M{"$ne": true},
		"$or": bson.A{
			bson.M{"senderId": s.UserID},
			bson.M{"recipientId": s.UserID},
		},
	}
}

// NotificationFilter narrows notifications to the caller as recipient.
// Recipient scoping applies to every role, super_admin included: another
// user's notifications are never visible.
func (s Scope) NotificationFilter() bson.M {
	return bson.M{"recipientId": s.UserID}
}

// EventFilter narrows calendar events to ones the caller created or attends.
func (s Scope) EventFilter() bson.M {
	if s.IsAdmin() {
		return bson.M{}
	}
	return bson.M{"$or": bson.A{
		bson.M{"createdBy": s.UserID},
		bson.M{"attendees": s.UserID},
	}}
}

// Merge combines an ownership filter with additional conditions. Conditions
// are ANDed; the ownership predicate always rides along so lookups outside
// the visible set miss instead of leaking existence.
func Merge(ownership bson.M, extra bson.M) bson.M {
	if len(ownership) == 0 {
		return extra
	}
	if len(extra) == 0 {
		return ownership
	}
	return bson.M{"$and": bson.A{ownership, extra}}
}
