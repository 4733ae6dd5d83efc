package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridehail/internal/auth"
	"ridehail/internal/domain"
)

func TestUserService_Register(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	session, err := env.users.Register(env.ctx, RegisterRequest{
		Name:     "Ann",
		Email:    " Ann@Example.com ",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, domain.RoleUser, session.User.Role)
	assert.Equal(t, "ann@example.com", session.User.Email)
	assert.NotEqual(t, "secret123", session.User.PasswordHash)

	subject, err := env.tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, subject)
}

func TestUserService_RegisterRejectsExistingEmail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "ann", domain.RoleUser)

	_, err := env.users.Register(env.ctx, RegisterRequest{
		Name:     "Other Ann",
		Email:    "ANN@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestUserService_RegisterValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.users.Register(env.ctx, RegisterRequest{Role: "admin"})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Len(t, validation.Messages, 4)
}

func TestUserService_Login(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := env.register(t, "ann", domain.RoleDriver)

	session, err := env.users.Login(env.ctx, "ann@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
	assert.Equal(t, domain.RoleDriver, session.User.Role)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{name: "missing password", email: "ann@example.com", want: ErrMissingCredentials},
		{name: "missing email", password: "secret123", want: ErrMissingCredentials},
		{name: "unknown email", email: "bob@example.com", password: "secret123", want: ErrInvalidCredentials},
		{name: "wrong password", email: "ann@example.com", password: "nope", want: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.users.Login(env.ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserService_ResolveIdentity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := env.register(t, "ann", domain.RoleUser)

	token, err := env.tokens.Issue(user.ID)
	require.NoError(t, err)

	resolved, err := env.users.ResolveIdentity(env.ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, domain.RoleUser, resolved.Role)

	cached, err := env.cache.GetUser(env.ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "ann@example.com", cached.Email)
}

func TestUserService_ResolveIdentityFailures(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.users.ResolveIdentity(env.ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	ghost, err := env.tokens.Issue("550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)
	_, err = env.users.ResolveIdentity(env.ctx, ghost)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
