package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/internal/models"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer()
	require.NoError(t, err)
	return e
}

func TestSuperAdminGrants(t *testing.T) {
	e := newTestEnforcer(t)

	grants := [][2]string{
		{ResourceProject, ActionCreate},
		{ResourceProject, ActionDelete},
		{ResourceRisk, ActionDelete},
		{ResourceUser, ActionCreate},
		{ResourceUser, ActionDelete},
		{ResourceFile, ActionDelete},
	}
	for _, g := range grants {
		ok, err := e.Can(models.RoleSuperAdmin, g[0], g[1])
		require.NoError(t, err)
		require.True(t, ok, "super_admin should be allowed %s:%s", g[0], g[1])
	}
}

func TestProjectManagerBoundaries(t *testing.T) {
	e := newTestEnforcer(t)

	allowed := [][2]string{
		{ResourceProject, ActionUpdate},
		{ResourceTask, ActionCreate},
		{ResourceMilestone, ActionCreate},
		{ResourceRisk, ActionCreate},
		{ResourceActivity, ActionDelete},
		{ResourceFile, ActionCreate},
	}
	for _, g := range allowed {
		ok, err := e.Can(models.RoleProjectManager, g[0], g[1])
		require.NoError(t, err)
		require.True(t, ok, "project_manager should be allowed %s:%s", g[0], g[1])
	}

	denied := [][2]string{
		{ResourceProject, ActionCreate},
		{ResourceProject, ActionDelete},
		{ResourceRisk, ActionDelete},
		{ResourceUser, ActionCreate},
		{ResourceUser, ActionDelete},
	}
	for _, g := range denied {
		ok, err := e.Can(models.RoleProjectManager, g[0], g[1])
		require.NoError(t, err)
		require.False(t, ok, "project_manager should be denied %s:%s", g[0], g[1])
	}
}

func TestClientBoundaries(t *testing.T) {
	e := newTestEnforcer(t)

	allowed := [][2]string{
		{ResourceProject, ActionList},
		{ResourceProject, ActionRead},
		{ResourceTask, ActionUpdate},
		{ResourceMessage, ActionCreate},
		{ResourceNotification, ActionUpdate},
		{ResourceEvent, ActionCreate},
		{ResourceFile, ActionRead},
	}
	for _, g := range allowed {
		ok, err := e.Can(models.RoleClient, g[0], g[1])
		require.NoError(t, err)
		require.True(t, ok, "client should be allowed %s:%s", g[0], g[1])
	}

	denied := [][2]string{
		{ResourceProject, ActionCreate},
		{ResourceProject, ActionUpdate},
		{ResourceTask, ActionCreate},
		{ResourceMilestone, ActionCreate},
		{ResourceRisk, ActionList},
		{ResourceActivity, ActionUpdate},
		{ResourceUser, ActionList},
		{ResourceFile, ActionCreate},
	}
	for _, g := range denied {
		ok, err := e.Can(models.RoleClient, g[0], g[1])
		require.NoError(t, err)
		require.False(t, ok, "client should be denied %s:%s", g[0], g[1])
	}
}

func TestUnknownRoleDeniedEverything(t *testing.T) {
	e := newTestEnforcer(t)
	ok, err := e.Can(models.Role("contractor"), ResourceProject, ActionList)
	require.NoError(t, err)
	require.False(t, ok)
}
