package services

import (
	"context"
	"testing"

	"github.com/socialgraph/backend/internal/models"
	"github.com/socialgraph/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")

	_, err := env.userSvc.Create(context.Background(), "alice", "other@example.com", "hash")
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)
	_, err = env.userSvc.Create(context.Background(), "alice2", "alice@example.com", "hash")
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)
}

func TestGetByIDHidesPassword(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "alice")

	got, err := env.userSvc.GetByID(context.Background(), u.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, got.Password)

	withHash, err := env.userSvc.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", withHash.Password)
}

func TestGetByIDsIgnoresMalformed(t *testing.T) {
	env := newTestEnv(t)
	a, b := env.createUser(t, "a"), env.createUser(t, "b")
	env.createUser(t, "c")

	users, err := env.userSvc.GetByIDs(context.Background(), []string{a.ID.Hex(), "bogus", b.ID.Hex()})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = env.userSvc.GetByIDs(context.Background(), []string{"bogus"})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSuggestedExcludesSelfAndFollowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	me := env.createUser(t, "me")
	followed := env.createUser(t, "followed")
	stranger := env.createUser(t, "stranger")

	_, err := env.graph.Follow(ctx, me.ID.Hex(), followed.ID.Hex())
	require.NoError(t, err)

	users, err := env.userSvc.GetSuggested(ctx, me.ID.Hex())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, stranger.ID, users[0].ID)
}

func TestSuggestedIsCapped(t *testing.T) {
	env := newTestEnv(t)
	me := env.createUser(t, "me")
	for i := 0; i < SuggestedUsersLimit+3; i++ {
		env.createUser(t, "user"+string(rune('a'+i)))
	}

	users, err := env.userSvc.GetSuggested(context.Background(), me.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, users, SuggestedUsersLimit)
}

func TestUpdateProfileDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	a := env.createUser(t, "alice")
	env.createUser(t, "bob")

	_, err := env.userSvc.UpdateProfile(context.Background(), a.ID.Hex(), models.UpdateProfileRequest{Username: "bob"})
	assert.ErrorIs(t, err, repositories.ErrDuplicateKey)
}
