package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidRole(t *testing.T) {
	require.True(t, ValidRole("super_admin"))
	require.True(t, ValidRole("project_manager"))
	require.True(t, ValidRole("client"))
	require.False(t, ValidRole("admin"))
	require.False(t, ValidRole(""))
}

func TestUserSerializationHidesPasswordHash(t *testing.T) {
	u := User{
		ID:           primitive.NewObjectID(),
		Email:        "pm@example.com",
		Name:         "Jordan",
		PasswordHash: "$2a$10$secret",
		Role:         RoleProjectManager,
		IsActive:     true,
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	require.NotContains(t, string(data), "secret")
	require.NotContains(t, string(data), "passwordHash")

	resp := u.ToResponse()
	require.Equal(t, u.ID.Hex(), resp.ID)
	require.Equal(t, u.Email, resp.Email)
	require.Equal(t, RoleProjectManager, resp.Role)
}
