// Package storetest runs the behaviour every directory.Store must share
// against any backend.
package storetest

import (
	"context"
	"testing"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Cleanup is the factory's responsibility.
type Factory func(t *testing.T) directory.Store

func newUser(userID string, groups ...string) models.User {
	if groups == nil {
		groups = []string{}
	}
	return models.User{UserID: userID, FirstName: "Some", LastName: "User", Groups: groups}
}

// requireConsistent fails the test if either view of the relation disagrees.
func requireConsistent(t *testing.T, s directory.Store) {
	t.Helper()
	require.NoError(t, directory.CheckConsistency(context.Background(), s))
}

// Run executes the full conformance suite.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s directory.Store)
	}{
		{"CreateAndGetUser", testCreateAndGetUser},
		{"CreateUserAlreadyExists", testCreateUserAlreadyExists},
		{"CreateUserUnknownGroup", testCreateUserUnknownGroup},
		{"GetMissing", testGetMissing},
		{"UpdateUserReconciles", testUpdateUserReconciles},
		{"UpdateUserRejections", testUpdateUserRejections},
		{"DeleteUserCascades", testDeleteUserCascades},
		{"DeleteMissing", testDeleteMissing},
		{"CreateGroupWithMembers", testCreateGroupWithMembers},
		{"UpdateGroupReconciles", testUpdateGroupReconciles},
		{"UpdateGroupRejections", testUpdateGroupRejections},
		{"DeleteGroupCascades", testDeleteGroupCascades},
		{"EmptyGroup", testEmptyGroup},
		{"Scenario", testScenario},
		{"Exists", testExists},
		{"DuplicateEntries", testDuplicateEntries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := factory(t)
			tt.fn(t, s)
			requireConsistent(t, s)
		})
	}
}

func testCreateAndGetUser(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateGroup(ctx, "admins", nil))
	require.NoError(t, s.CreateGroup(ctx, "staff", nil))

	u := models.User{UserID: "jsmith", FirstName: "Joe", LastName: "Smith", Groups: []string{"staff", "admins"}}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUser(ctx, "jsmith")
	require.NoError(t, err)
	assert.Equal(t, "jsmith", got.UserID)
	assert.Equal(t, "Joe", got.FirstName)
	assert.Equal(t, "Smith", got.LastName)
	assert.ElementsMatch(t, u.Groups, got.Groups)

	g, err := s.GetGroup(ctx, "admins")
	require.NoError(t, err)
	assert.Equal(t, []string{"jsmith"}, g.Members)
}

func testCreateUserAlreadyExists(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, newUser("jsmith")))

	other := newUser("jsmith")
	other.FirstName = "Other"
	err := s.CreateUser(ctx, other)
	assert.ErrorIs(t, err, directory.ErrAlreadyExists)

	got, err := s.GetUser(ctx, "jsmith")
	require.NoError(t, err)
	assert.Equal(t, "Some", got.FirstName)
}

func testCreateUserUnknownGroup(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateGroup(ctx, "admins", nil))

	err := s.CreateUser(ctx, newUser("x", "admins", "nosuchgroup"))
	require.ErrorIs(t, err, directory.ErrUnknownGroup)
	assert.Contains(t, err.Error(), "nosuchgroup")

	var derr *directory.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "nosuchgroup", derr.ID)

	assert.False(t, s.UserExists(ctx, "x"))
	g, err := s.GetGroup(ctx, "admins")
	require.NoError(t, err)
	assert.Empty(t, g.Members)
}

func testGetMissing(t *testing.T, s directory.Store) {
	ctx := context.Background()

	_, err := s.GetUser(ctx, "nonexistent")
	assert.ErrorIs(t, err, directory.ErrNotFound)

	_, err = s.GetGroup(ctx, "nonexistent")
	assert.ErrorIs(t, err, directory.ErrNotFound)

	_, err = s.GetUsersForGroup(ctx, "nonexistent")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func testUpdateUserReconciles(t *testing.T, s directory.Store) {
	ctx := context.Background()
	for _, g := range []string{"A", "B", "C"} {
		require.NoError(t, s.CreateGroup(ctx, g, nil))
	}
	require.NoError(t, s.CreateUser(ctx, newUser("U", "A", "B")))

	updated := newUser("U", "B", "C")
	updated.LastName = "Renamed"
	require.NoError(t, s.UpdateUser(ctx, "U", updated))

	a, err := s.GetGroup(ctx, "A")
	require.NoError(t, err)
	assert.NotContains(t, a.Members, "U")

	for _, id := range []string{"B", "C"} {
		g, err := s.GetGroup(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"U"}, g.Members, "group %s", id)
	}

	got, err := s.GetUser(ctx, "U")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, got.Groups)
	assert.Equal(t, "Renamed", got.LastName)
}

func testUpdateUserRejections(t *testing.T, s directory.Store) {
	ctx := context.Background()
	for _, g := range []string{"A", "B"} {
		require.NoError(t, s.CreateGroup(ctx, g, nil))
	}
	require.NoError(t, s.CreateUser(ctx, newUser("U", "A", "B")))

	err := s.UpdateUser(ctx, "U", newUser("U", "B", "C"))
	require.ErrorIs(t, err, directory.ErrUnknownGroup)
	assert.Contains(t, err.Error(), "'C'")

	err = s.UpdateUser(ctx, "U", newUser("notU"))
	assert.ErrorIs(t, err, directory.ErrIdentityMismatch)

	err = s.UpdateUser(ctx, "ghost", newUser("ghost"))
	assert.ErrorIs(t, err, directory.ErrNotFound)

	got, err := s.GetUser(ctx, "U")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got.Groups)
	a, err := s.GetGroup(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"U"}, a.Members)
	assert.False(t, s.UserExists(ctx, "notU"))
}

func testDeleteUserCascades(t *testing.T, s directory.Store) {
	ctx := context.Background()
	for _, g := range []string{"G1", "G2"} {
		require.NoError(t, s.CreateGroup(ctx, g, nil))
	}
	require.NoError(t, s.CreateUser(ctx, newUser("U", "G1", "G2")))
	require.NoError(t, s.CreateUser(ctx, newUser("V", "G1")))

	require.NoError(t, s.DeleteUser(ctx, "U"))
	assert.False(t, s.UserExists(ctx, "U"))

	g1, err := s.GetGroup(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, []string{"V"}, g1.Members)

	g2, err := s.GetGroup(ctx, "G2")
	require.NoError(t, err)
	assert.Empty(t, g2.Members)
}

func testDeleteMissing(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, newUser("keep")))

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, s.DeleteUser(ctx, "nonexistent"), directory.ErrNotFound)
		assert.ErrorIs(t, s.DeleteGroup(ctx, "nonexistent"), directory.ErrNotFound)
	}

	require.NoError(t, s.DeleteUser(ctx, "keep"))
	assert.ErrorIs(t, s.DeleteUser(ctx, "keep"), directory.ErrNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func testCreateGroupWithMembers(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, newUser("u1")))
	require.NoError(t, s.CreateUser(ctx, newUser("u2")))

	require.NoError(t, s.CreateGroup(ctx, "ops", []string{"u2", "u1"}))
	u1, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ops"}, u1.Groups)

	assert.ErrorIs(t, s.CreateGroup(ctx, "ops", nil), directory.ErrAlreadyExists)

	err = s.CreateGroup(ctx, "devs", []string{"u1", "ghost"})
	require.ErrorIs(t, err, directory.ErrUnknownUser)
	assert.Contains(t, err.Error(), "ghost")
	assert.False(t, s.GroupExists(ctx, "devs"))

	u1, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ops"}, u1.Groups)
}

func testUpdateGroupReconciles(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateGroup(ctx, "other", nil))
	for _, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, s.CreateUser(ctx, newUser(id, "other")))
	}
	require.NoError(t, s.CreateGroup(ctx, "ops", []string{"u1", "u2"}))

	require.NoError(t, s.UpdateGroup(ctx, "ops", []string{"u2", "u3"}))

	u1, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, u1.Groups)
	u2, err := s.GetUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"ops", "other"}, u2.Groups)
	u3, err := s.GetUser(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, []string{"ops", "other"}, u3.Groups)

	users, err := s.GetUsersForGroup(ctx, "ops")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[0].UserID)
	assert.Equal(t, "u3", users[1].UserID)

	require.NoError(t, s.UpdateGroup(ctx, "ops", []string{}))
	g, err := s.GetGroup(ctx, "ops")
	require.NoError(t, err)
	assert.Empty(t, g.Members)
}

func testUpdateGroupRejections(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, newUser("u1")))
	require.NoError(t, s.CreateGroup(ctx, "ops", []string{"u1"}))

	err := s.UpdateGroup(ctx, "ops", []string{"ghost"})
	require.ErrorIs(t, err, directory.ErrUnknownUser)
	assert.Contains(t, err.Error(), "ghost")

	assert.ErrorIs(t, s.UpdateGroup(ctx, "missing", []string{"u1"}), directory.ErrNotFound)
	assert.False(t, s.GroupExists(ctx, "missing"))

	g, err := s.GetGroup(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, g.Members)
}

func testDeleteGroupCascades(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateGroup(ctx, "keep", nil))
	require.NoError(t, s.CreateUser(ctx, newUser("U1", "keep")))
	require.NoError(t, s.CreateUser(ctx, newUser("U2")))
	require.NoError(t, s.CreateGroup(ctx, "G", []string{"U1", "U2"}))

	require.NoError(t, s.DeleteGroup(ctx, "G"))

	u1, err := s.GetUser(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, u1.Groups)
	u2, err := s.GetUser(ctx, "U2")
	require.NoError(t, err)
	assert.Empty(t, u2.Groups)

	_, err = s.GetUsersForGroup(ctx, "G")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func testEmptyGroup(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateGroup(ctx, "empty", nil))

	users, err := s.GetUsersForGroup(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func testScenario(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, models.User{UserID: "jsmith", FirstName: "Joe", LastName: "Smith", Groups: []string{}}))
	require.NoError(t, s.CreateGroup(ctx, "admins", nil))
	requireConsistent(t, s)

	require.NoError(t, s.UpdateGroup(ctx, "admins", []string{"jsmith"}))
	requireConsistent(t, s)

	u, err := s.GetUser(ctx, "jsmith")
	require.NoError(t, err)
	assert.Equal(t, []string{"admins"}, u.Groups)

	users, err := s.GetUsersForGroup(ctx, "admins")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "jsmith", users[0].UserID)
	assert.Equal(t, []string{"admins"}, users[0].Groups)

	require.NoError(t, s.DeleteGroup(ctx, "admins"))
	requireConsistent(t, s)

	u, err = s.GetUser(ctx, "jsmith")
	require.NoError(t, err)
	assert.Empty(t, u.Groups)
	assert.NotNil(t, u.Groups)
}

func testExists(t *testing.T, s directory.Store) {
	ctx := context.Background()
	assert.False(t, s.UserExists(ctx, "u"))
	assert.False(t, s.GroupExists(ctx, "g"))

	require.NoError(t, s.CreateUser(ctx, newUser("u")))
	require.NoError(t, s.CreateGroup(ctx, "g", nil))

	assert.True(t, s.UserExists(ctx, "u"))
	assert.True(t, s.GroupExists(ctx, "g"))
	assert.False(t, s.UserExists(ctx, "g"))
	assert.False(t, s.GroupExists(ctx, "u"))
}

func testDuplicateEntries(t *testing.T, s directory.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateGroup(ctx, "g", nil))
	require.NoError(t, s.CreateUser(ctx, newUser("u", "g", "g")))

	g, err := s.GetGroup(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"u"}, g.Members)

	require.NoError(t, s.UpdateGroup(ctx, "g", []string{"u", "u"}))
	u, err := s.GetUser(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, u.Groups)

	require.NoError(t, s.UpdateUser(ctx, "u", newUser("u", "g", "g")))
	g, err = s.GetGroup(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"u"}, g.Members)
}
