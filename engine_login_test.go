package membership_test

import (
	"context"
	"testing"

	membership "github.com/goliatone/go-membership"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginEstablishesSession(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})
	ctx := context.Background()

	user := registerUser(t, env, "pepe")
	require.Nil(t, user.LastLoginAt)

	session := &recordingSession{}

	result, err := env.engine.Login(ctx, session, "pepe", "secret-password", false)
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Empty(t, result.RememberToken)

	assert.Equal(t, 1, session.regenerated, "session id rotates on login")
	assert.Equal(t, []string{user.ID.String()}, session.authenticated)

	user, err = env.repo.Users().GetByIdentifier(ctx, "pepe")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)

	assert.True(t, env.sink.has(membership.ActivityEventLoginSuccess))
}

func TestLoginDoesNotLeakFailureCause(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})
	ctx := context.Background()

	user := registerUser(t, env, "pepe")

	tests := []struct {
		name     string
		identity string
		password string
		prep     func(t *testing.T)
	}{
		{
			name:     "unknown identity",
			identity: "nobody",
			password: "secret-password",
		},
		{
			name:     "wrong password",
			identity: "pepe",
			password: "bad-password",
		},
		{
			name:     "inactive account",
			identity: "pepe",
			password: "secret-password",
			prep: func(t *testing.T) {
				_, err := env.engine.Deactivate(ctx, user.ID)
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prep != nil {
				tt.prep(t)
			}

			_, err := env.engine.Login(ctx, &recordingSession{}, tt.identity, tt.password, false)
			assert.ErrorIs(t, err, membership.ErrInvalidCredentials)
		})
	}

	assert.True(t, env.sink.has(membership.ActivityEventLoginFailure))
}

func TestLoginWithRememberIssuesToken(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})
	ctx := context.Background()

	user := registerUser(t, env, "pepe")
	env.tokens.codes = []string{"remember-1"}
	env.tokens.next = 0

	result, err := env.engine.Login(ctx, &recordingSession{}, "pepe", "secret-password", true)
	require.NoError(t, err)
	assert.Equal(t, "remember-1", result.RememberToken)

	stored, err := env.repo.Users().GetByRememberCode(ctx, "remember-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
}

func TestLoginSessionFailureIsAnError(t *testing.T) {
	env := setupEnv(t, membership.SimpleConfig{})
	ctx := context.Background()

	registerUser(t, env, "pepe")

	session := &recordingSession{
		setAuthenticatedErr: assert.AnError,
	}

	_, err := env.engine.Login(ctx, session, "pepe", "secret-password", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
