package directory

import (
	"context"
	"testing"

	"github.com/openbiocard/openbiocard-backend/pkg/enums"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func newStore() *Store {
	return NewStore(storage.NewMemory())
}

func TestCheckUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "alice", Type: enums.AccountTypeUser, Email: strPtr("Alice@Example.com")}))

	err := s.CheckUniqueness(ctx, "alice", "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.Equal(t, "Username already exists", pkgerrors.As(err).Message())
	assert.Equal(t, map[string]any{"reason": "username"}, pkgerrors.As(err).Details())

	err = s.CheckUniqueness(ctx, "bob", "  ALICE@example.COM ")
	require.Error(t, err)
	assert.Equal(t, "Email already in use", pkgerrors.As(err).Message())
	assert.Equal(t, map[string]any{"reason": "email"}, pkgerrors.As(err).Details())

	require.NoError(t, s.CheckUniqueness(ctx, "bob", ""))
	require.NoError(t, s.CheckUniqueness(ctx, "bob", "bob@example.com"))
}

func TestEmptyEmailsNeverCollide(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "a"}))
	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "b", Email: strPtr("")}))
	require.NoError(t, s.CheckUniqueness(ctx, "c", ""))
}

func TestAddUserTwiceUpserts(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.AddUser(ctx, UpsertInput{
		Username: "alice", Type: enums.AccountTypeUser,
		Email: strPtr("alice@example.com"), EmailVerified: boolPtr(false),
		Avatar: "a.png", Bio: "hello",
	}))
	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "bob"}))

	require.NoError(t, s.AddUser(ctx, UpsertInput{
		Username: "alice", EmailVerified: boolPtr(true), Bio: "updated",
	}))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, Entry{
		Username:      "alice",
		Type:          enums.AccountTypeUser,
		Email:         "alice@example.com",
		EmailVerified: true,
		Avatar:        "a.png",
		Bio:           "updated",
	}, users[0])
	assert.Equal(t, "bob", users[1].Username)
	assert.Equal(t, enums.AccountTypeUser, users[1].Type)
	assert.False(t, users[1].EmailVerified)
}

func TestAddUserEmailCollisionWithAnotherUsername(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "alice", Email: strPtr("shared@example.com")}))

	err := s.AddUser(ctx, UpsertInput{Username: "bob", Email: strPtr("SHARED@example.com")})
	require.Error(t, err)
	assert.Equal(t, map[string]any{"reason": "email"}, pkgerrors.As(err).Details())

	// re-adding alice with her own email is fine
	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "alice", Email: strPtr("shared@example.com")}))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUpdateUserStatus(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	err := s.UpdateUserStatus(ctx, "ghost", true)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "alice", Bio: "b"}))
	require.NoError(t, s.UpdateUserStatus(ctx, "alice", true))
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.True(t, users[0].EmailVerified)
	assert.Equal(t, "b", users[0].Bio)
}

func TestSyncProfileIsTargeted(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.SyncProfile(ctx, "ghost", "x", "y"))
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "alice", Email: strPtr("a@example.com"), EmailVerified: boolPtr(true), Avatar: "old"}))
	require.NoError(t, s.SyncProfile(ctx, "alice", "new.png", "bio"))
	users, err = s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new.png", users[0].Avatar)
	assert.Equal(t, "bio", users[0].Bio)
	assert.True(t, users[0].EmailVerified)
	assert.Equal(t, "a@example.com", users[0].Email)
}

func TestRemoveUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "alice"}))
	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "bob"}))

	require.NoError(t, s.RemoveUser(ctx, "alice"))
	require.NoError(t, s.RemoveUser(ctx, "alice"))
	require.NoError(t, s.RemoveUser(ctx, "nobody"))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
}

func TestInitRootIfEmptyTwice(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	inserted, err := s.InitRootIfEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InitRootIfEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, inserted)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, Entry{Username: "admin", Type: enums.AccountTypeAdmin, EmailVerified: true}, users[0])
}

func TestInitRootSkipsNonEmptyDirectory(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.AddUser(ctx, UpsertInput{Username: "alice"}))
	inserted, err := s.InitRootIfEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestRootToken(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	ok, err := s.VerifyRootToken(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, ok, "unset token never verifies")

	ok, err = s.VerifyRootToken(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetRootToken(ctx, "root-secret"))
	ok, err = s.VerifyRootToken(ctx, "root-secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.VerifyRootToken(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetRootToken(ctx, ""))
	ok, err = s.VerifyRootToken(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{Title: "OpenBioCard"}, settings)

	require.NoError(t, s.UpdateSettings(ctx, Settings{Title: "Cards", Logo: "logo.png"}))
	settings, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, Settings{Title: "Cards", Logo: "logo.png"}, settings)

	require.NoError(t, s.UpdateSettings(ctx, Settings{Title: "Only title"}))
	settings, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings.Logo, "update is a full replace")
}

func TestEnsureRootTokenKeepsFirstValue(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	token, err := s.EnsureRootToken(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "first", token)

	token, err = s.EnsureRootToken(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "first", token)

	ok, err := s.VerifyRootToken(ctx, "first")
	require.NoError(t, err)
	assert.True(t, ok)
}
