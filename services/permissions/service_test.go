package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authority/testutils"
)

func setupService(t *testing.T) *Service {
	db := testutils.SetupTestDB(t, Models()...)
	return NewService(db, nil)
}

func TestService_FetchRoles(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	require.NoError(t, svc.AssignRoles(ctx, 1, []string{"editor", "admin"}))
	require.NoError(t, svc.AssignRole(ctx, 2, "viewer"))

	t.Run("sorted roles of one user", func(t *testing.T) {
		roles, err := svc.FetchRoles(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"admin", "editor"}, roles)
	})

	t.Run("assigning twice is a no-op", func(t *testing.T) {
		require.NoError(t, svc.AssignRole(ctx, 1, "admin"))

		roles, err := svc.FetchRoles(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, roles, 2)
	})

	t.Run("unassign", func(t *testing.T) {
		require.NoError(t, svc.UnassignRole(ctx, 1, "editor"))

		roles, err := svc.FetchRoles(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, roles)
	})

	t.Run("user without roles", func(t *testing.T) {
		roles, err := svc.FetchRoles(ctx, 99)
		require.NoError(t, err)
		assert.Empty(t, roles)
	})

	t.Run("empty role name", func(t *testing.T) {
		assert.ErrorIs(t, svc.AssignRole(ctx, 1, ""), ErrEmptyName)
	})
}

func TestService_FetchPermissions(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	require.NoError(t, svc.GrantToUser(ctx, 1, "sessions.read"))
	require.NoError(t, svc.GrantManyToRole(ctx, "admin", []string{"users.delete", "sessions.read"}))
	require.NoError(t, svc.GrantToRole(ctx, "support", "users.read"))
	require.NoError(t, svc.AssignRole(ctx, 1, "admin"))
	require.NoError(t, svc.AssignRole(ctx, 2, "support"))

	t.Run("union of direct and role grants", func(t *testing.T) {
		perms, err := svc.FetchPermissions(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, []Permission{
			{Permission: "sessions.read", FromRole: ""},
			{Permission: "sessions.read", FromRole: "admin"},
			{Permission: "users.delete", FromRole: "admin"},
		}, perms)
	})

	t.Run("role grants only", func(t *testing.T) {
		perms, err := svc.FetchPermissions(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []Permission{{Permission: "users.read", FromRole: "support"}}, perms)
	})

	t.Run("role change is reflected on next fetch", func(t *testing.T) {
		require.NoError(t, svc.RevokeFromRole(ctx, "admin", "users.delete"))

		perms, err := svc.FetchPermissions(ctx, 1)
		require.NoError(t, err)
		assert.NotContains(t, perms, Permission{Permission: "users.delete", FromRole: "admin"})
	})

	t.Run("revoke all from role", func(t *testing.T) {
		require.NoError(t, svc.RevokeAllFromRole(ctx, "support"))

		perms, err := svc.FetchPermissions(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, perms)
	})

	t.Run("revoke direct grant", func(t *testing.T) {
		require.NoError(t, svc.RevokeFromUser(ctx, 1, "sessions.read"))

		perms, err := svc.FetchPermissions(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []Permission{{Permission: "sessions.read", FromRole: "admin"}}, perms)
	})
}

func TestService_DeleteAllForUser(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	require.NoError(t, svc.AssignRole(ctx, 1, "admin"))
	require.NoError(t, svc.GrantToUser(ctx, 1, "x"))

	require.NoError(t, svc.DeleteAllForUser(ctx, 1))

	roles, err := svc.FetchRoles(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, roles)

	perms, err := svc.FetchPermissions(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, perms)
}
