package membership_test

import (
	"context"
	"testing"
	"time"

	membership "github.com/goliatone/go-membership"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, env *testEnv, identity string) *membership.User {
	t.Helper()

	user, err := env.repo.Users().Create(context.Background(), &membership.User{
		Identity:     identity,
		Email:        identity + "@example.com",
		PasswordHash: "not-a-real-hash",
		Active:       true,
	})
	require.NoError(t, err)
	return user
}

func TestUsersCreateAssignsDefaults(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})

	user, err := env.repo.Users().Create(context.Background(), &membership.User{
		Identity:     "  padded  ",
		Email:        "padded@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "padded", user.Identity)
}

func TestUsersGetByIdentifier(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})
	ctx := context.Background()

	seeded := seedUser(t, env, "pepe")

	user, err := env.repo.Users().GetByIdentifier(ctx, "pepe")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)

	// Identifier lookups trim whitespace on the way in.
	user, err = env.repo.Users().GetByIdentifier(ctx, "  pepe  ")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)

	_, err = env.repo.Users().GetByIdentifier(ctx, "")
	assert.True(t, repository.IsRecordNotFound(err))

	_, err = env.repo.Users().GetByIdentifier(ctx, "nobody")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersActivateGuardsOnCode(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})
	ctx := context.Background()

	user := seedUser(t, env, "pepe")

	deactivated, err := env.repo.Users().Deactivate(ctx, user.ID, "the-code")
	require.NoError(t, err)
	assert.False(t, deactivated.Active)
	require.NotNil(t, deactivated.ActivationCode)
	assert.Equal(t, "the-code", *deactivated.ActivationCode)

	// Guard mismatch leaves the row untouched.
	_, err = env.repo.Users().Activate(ctx, user.ID, "wrong-code")
	assert.True(t, repository.IsRecordNotFound(err))

	activated, err := env.repo.Users().Activate(ctx, user.ID, "the-code")
	require.NoError(t, err)
	assert.True(t, activated.Active)
	assert.Nil(t, activated.ActivationCode)

	// The update consumed the code, so the guard now always misses.
	_, err = env.repo.Users().Activate(ctx, user.ID, "the-code")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersForgottenPasswordLifecycle(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})
	ctx := context.Background()

	user := seedUser(t, env, "pepe")

	at := time.Now()
	updated, err := env.repo.Users().SetForgottenPassword(ctx, user.ID, "reset-1", at)
	require.NoError(t, err)
	assert.True(t, updated.HasPendingReset())

	found, err := env.repo.Users().GetByForgottenPasswordCode(ctx, "reset-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	// Clearing with a stale code is a no-op.
	require.NoError(t, env.repo.Users().ClearForgottenPassword(ctx, user.ID, "stale-code"))
	found, err = env.repo.Users().GetByForgottenPasswordCode(ctx, "reset-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	require.NoError(t, env.repo.Users().ClearForgottenPassword(ctx, user.ID, "reset-1"))

	_, err = env.repo.Users().GetByForgottenPasswordCode(ctx, "reset-1")
	assert.True(t, repository.IsRecordNotFound(err))

	cleared, err := env.repo.Users().GetByIdentifier(ctx, "pepe")
	require.NoError(t, err)
	assert.Nil(t, cleared.ForgottenPasswordCode)
	assert.Nil(t, cleared.ForgottenPasswordSetAt)
}

func TestUsersResetPasswordClearsResetState(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})
	ctx := context.Background()

	user := seedUser(t, env, "pepe")

	_, err := env.repo.Users().SetForgottenPassword(ctx, user.ID, "reset-1", time.Now())
	require.NoError(t, err)

	require.NoError(t, env.repo.Users().ResetPassword(ctx, user.ID, "new-hash"))

	updated, err := env.repo.Users().GetByIdentifier(ctx, "pepe")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", updated.PasswordHash)
	assert.False(t, updated.HasPendingReset())

	err = env.repo.Users().ResetPassword(ctx, uuid.New(), "new-hash")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersRememberCodeLifecycle(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})
	ctx := context.Background()

	user := seedUser(t, env, "pepe")

	_, err := env.repo.Users().SetRememberCode(ctx, user.ID, "remember-1")
	require.NoError(t, err)

	found, err := env.repo.Users().GetByRememberCode(ctx, "remember-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	require.NoError(t, env.repo.Users().ClearRememberCode(ctx, user.ID))

	_, err = env.repo.Users().GetByRememberCode(ctx, "remember-1")
	assert.True(t, repository.IsRecordNotFound(err))

	// Clearing an already clear row stays a no-op.
	require.NoError(t, env.repo.Users().ClearRememberCode(ctx, user.ID))
}

func TestUsersTrackSuccessfulLogin(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})
	ctx := context.Background()

	user := seedUser(t, env, "pepe")
	require.Nil(t, user.LastLoginAt)

	require.NoError(t, env.repo.Users().TrackSuccessfulLogin(ctx, user))

	updated, err := env.repo.Users().GetByIdentifier(ctx, "pepe")
	require.NoError(t, err)
	assert.NotNil(t, updated.LastLoginAt)
}
