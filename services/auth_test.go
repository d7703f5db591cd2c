package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"book-review/database"
	"book-review/logging"
	"book-review/models"
	"book-review/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.auth.Signup(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	stored, err := env.store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", stored.PasswordHash)
	assert.True(t, utils.CheckPasswordHash("secret", stored.PasswordHash))

	_, err = env.auth.Signup(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestSignup_Validation(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ username, password string }{
		{"", "pw"},
		{"bob", ""},
		{"", ""},
	} {
		_, err := env.auth.Signup(context.Background(), tc.username, tc.password)
		assert.ErrorIs(t, err, ErrValidation, "username=%q password=%q", tc.username, tc.password)
	}
}

func TestSignup_PasswordTooLong(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Signup(ctx, "bob", strings.Repeat("x", utils.MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "at most 72 bytes")

	_, err = env.store.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = env.auth.Signup(ctx, "bob", strings.Repeat("x", utils.MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestSignup_StoreFailure(t *testing.T) {
	store := failingStore{database.NewMemoryDriver()}
	svc := NewAuthService(store, utils.NewTokenManager(testSecret, time.Hour), logging.NewNop())

	_, err := svc.Signup(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.False(t, errors.Is(err, ErrDuplicateUser))
}

func TestLoginAuthenticateRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.auth.Signup(ctx, "alice", "secret")
	require.NoError(t, err)

	token, err := env.auth.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	caller, err := env.auth.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, models.Caller{UserID: id, Username: "alice"}, caller)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "alice")

	_, err := env.auth.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, "nobody", "pw-alice")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_StoreFailure(t *testing.T) {
	store := failingStore{database.NewMemoryDriver()}
	svc := NewAuthService(store, utils.NewTokenManager(testSecret, time.Hour), logging.NewNop())

	_, err := svc.Login(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "alice")

	foreign := NewAuthService(env.store, utils.NewTokenManager("another-secret", time.Hour), logging.NewNop())
	foreignToken, err := foreign.Login(ctx, "alice", "pw-alice")
	require.NoError(t, err)

	expired := NewAuthService(env.store, utils.NewTokenManager(testSecret, -time.Minute), logging.NewNop())
	expiredToken, err := expired.Login(ctx, "alice", "pw-alice")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"blank":        "   ",
		"garbage":      "not.a.jwt",
		"other secret": foreignToken,
		"expired":      expiredToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.auth.Authenticate(token)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}
