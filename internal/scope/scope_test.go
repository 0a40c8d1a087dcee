package scope

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/atelierhq/atelier/internal/models"
)

func TestProjectFilterByRole(t *testing.T) {
	uid := primitive.NewObjectID()

	admin := Scope{UserID: uid, Role: models.RoleSuperAdmin}
	require.Equal(t, bson.M{}, admin.ProjectFilter())

	manager := Scope{UserID: uid, Role: models.RoleProjectManager}
	require.Equal(t, bson.M{"managers": uid}, manager.ProjectFilter())

	client := Scope{UserID: uid, Role: models.RoleClient}
	require.Equal(t, bson.M{"clientId": uid}, client.ProjectFilter())
}

func TestSubEntityFilter(t *testing.T) {
	uid := primitive.NewObjectID()
	pid := primitive.NewObjectID()

	admin := Scope{UserID: uid, Role: models.RoleSuperAdmin}
	require.Equal(t, bson.M{}, admin.SubEntityFilter(nil))

	manager := Scope{UserID: uid, Role: models.RoleProjectManager}
	got := manager.SubEntityFilter([]primitive.ObjectID{pid})
	require.Equal(t, bson.M{"projectId": bson.M{"$in": []primitive.ObjectID{pid}}}, got)
}

func TestSubEntityFilterEmptySetMatchesNothing(t *testing.T) {
	uid := primitive.NewObjectID()
	client := Scope{UserID: uid, Role: models.RoleClient}

	// A nil visible set must still produce an explicit empty $in list.
	got := client.SubEntityFilter(nil)
	in, ok := got["projectId"].(bson.M)["$in"].([]primitive.ObjectID)
	require.True(t, ok)
	require.NotNil(t, in)
	require.Empty(t, in)
}

func TestMessageFilter(t *testing.T) {
	uid := primitive.NewObjectID()
	s := Scope{UserID: uid, Role: models.RoleSuperAdmin}

	got := s.MessageFilter()
	require.Equal(t, bson.M{"$ne": true}, got["deleted"])
	require.Equal(t, bson.A{
		bson.M{"senderId": uid},
		bson.M{"recipientId": uid},
	}, got["$or"])
}

func TestNotificationFilterScopesAdminsToo(t *testing.T) {
	uid := primitive.NewObjectID()
	admin := Scope{UserID: uid, Role: models.RoleSuperAdmin}
	require.Equal(t, bson.M{"recipientId": uid}, admin.NotificationFilter())
}

func TestEventFilter(t *testing.T) {
	uid := primitive.NewObjectID()

	admin := Scope{UserID: uid, Role: models.RoleSuperAdmin}
	require.Equal(t, bson.M{}, admin.EventFilter())

	client := Scope{UserID: uid, Role: models.RoleClient}
	got := client.EventFilter()
	require.Equal(t, bson.A{
		bson.M{"createdBy": uid},
		bson.M{"attendees": uid},
	}, got["$or"])
}

func TestMerge(t *testing.T) {
	ownership := bson.M{"managers": primitive.NewObjectID()}
	extra := bson.M{"status": "in_progress"}

	require.Equal(t, extra, Merge(bson.M{}, extra))
	require.Equal(t, ownership, Merge(ownership, bson.M{}))

	merged := Merge(ownership, extra)
	require.Equal(t, bson.M{"$and": bson.A{ownership, extra}}, merged)
}

func TestScopeHelpers(t *testing.T) {
	u := &models.User{ID: primitive.NewObjectID(), Role: models.RoleProjectManager}
	s := ForUser(u)
	require.Equal(t, u.ID, s.UserID)
	require.False(t, s.IsAdmin())
	require.True(t, s.IsStaff())

	c := Scope{Role: models.RoleClient}
	require.False(t, c.IsStaff())
}
