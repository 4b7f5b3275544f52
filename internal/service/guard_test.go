package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/komponente/internal/model"
)

func TestAuthenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	token, s, err := e.Guard.Authenticate(ctx, "admin", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "Docente", s.DisplayName)
	assert.Equal(t, model.RoleAdmin, s.Role)

	resolved, err := e.Guard.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, *s, *resolved)
}

func TestAuthenticateFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct{ username, password string }{
		{"admin", "wrong-password"},
		{"nobody", "password123"},
		{"", "password123"},
		{"admin", ""},
	}
	for _, c := range cases {
		_, _, err := e.Guard.Authenticate(ctx, c.username, c.password)
		assert.ErrorIs(t, err, model.ErrAuth, "%s/%s", c.username, c.password)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	token, s, err := e.Guard.Authenticate(ctx, "ana", "password123")
	require.NoError(t, err)

	require.NoError(t, e.Guard.Logout(ctx, s))
	_, err = e.Guard.Resolve(ctx, token)
	assert.ErrorIs(t, err, model.ErrAuth)

	// Logging out twice is fine.
	assert.NoError(t, e.Guard.Logout(ctx, s))
}

func TestResolveRejectsForeignToken(t *testing.T) {
	e := newEnv(t)
	other := &Guard{DB: e.DB, Sessions: e.Guard.Sessions, Secret: "other-secret"}

	token, _, err := other.Authenticate(context.Background(), "ana", "password123")
	require.NoError(t, err)

	_, err = e.Guard.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, model.ErrAuth)
}

func TestSessionIsSnapshot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	token, _, err := e.Guard.Authenticate(ctx, "ana", "password123")
	require.NoError(t, err)

	_, err = e.DB.Exec(`UPDATE users SET display_name = 'Ana Mora' WHERE username = 'ana'`)
	require.NoError(t, err)

	s, err := e.Guard.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Ana", s.DisplayName, "session keeps the login-time snapshot")
}

func TestAuthorize(t *testing.T) {
	admin := &model.Session{Role: model.RoleAdmin}
	user := &model.Session{Role: model.RoleUser}

	assert.NoError(t, Authorize(admin, model.RoleAdmin))
	assert.NoError(t, Authorize(admin, model.RoleUser))
	assert.NoError(t, Authorize(user, model.RoleUser))
	assert.ErrorIs(t, Authorize(user, model.RoleAdmin), model.ErrForbidden)
	assert.ErrorIs(t, Authorize(nil, model.RoleUser), model.ErrAuth)
}
