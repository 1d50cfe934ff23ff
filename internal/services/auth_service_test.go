package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestion/internal/apperr"
	"gestion/internal/core"
)

func newAuth(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(newTestRepo(t), "test-secret", time.Hour, quietLogger())
}

func TestAuthServiceLogin(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, NewUser{Username: "Maria", Nombre: "María Pérez", Password: "secreta123"})
	require.NoError(t, err)
	assert.Equal(t, "maria", u.Username)
	assert.Equal(t, core.RolEmpleado, u.Rol)
	assert.NotEqual(t, "secreta123", u.PasswordHash)

	res, err := s.Login(ctx, "maria", "secreta123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "maria", res.User.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, time.Minute)

	claims, err := s.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "maria", claims.Username)
	assert.Equal(t, core.RolEmpleado, claims.Rol)
	assert.NotEmpty(t, claims.ID)

	me, err := s.Me(WithActor(ctx, claims.Actor()))
	require.NoError(t, err)
	assert.Equal(t, "María Pérez", me.Nombre)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, NewUser{Username: "luis", Nombre: "Luis", Password: "correcta1"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "luis", "incorrecta"},
		{"unknown user", "pedro", "correcta1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Login(ctx, tt.username, tt.password)
			require.Error(t, err)
			assert.Equal(t, 401, apperr.HTTPStatus(err))
			assert.Equal(t, "Usuario o contraseña incorrectos", err.Error())
		})
	}

	_, err = s.Login(ctx, "", "")
	assert.True(t, apperr.IsValidation(err))
}

func TestAuthServiceTokens(t *testing.T) {
	s := newAuth(t)
	u := core.User{Username: "ana", Rol: core.RolAdmin}

	token, _, err := s.IssueToken(u)
	require.NoError(t, err)

	other := NewAuthService(nil, "otro-secreto", time.Hour, quietLogger())
	_, err = other.ParseToken(token)
	assert.Equal(t, 401, apperr.HTTPStatus(err))

	_, err = s.ParseToken("no.es.token")
	assert.Equal(t, 401, apperr.HTTPStatus(err))

	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := s.IssueToken(u)
	require.NoError(t, err)
	s.now = time.Now
	_, err = s.ParseToken(expired)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expiró")
}

func TestAuthServiceCreateUserValidation(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, NewUser{Username: "ab", Nombre: "X", Password: "12345678"})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.CreateUser(ctx, NewUser{Username: "carla", Nombre: "Carla", Password: "corta"})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.CreateUser(ctx, NewUser{Username: "carla", Nombre: "Carla", Rol: "jefe", Password: "12345678"})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.CreateUser(ctx, NewUser{Username: "carla", Nombre: "Carla", Password: "12345678"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, NewUser{Username: "carla", Nombre: "Otra", Password: "12345678"})
	assert.True(t, apperr.IsConflict(err))
}

func TestAuthServiceEnsureAdmin(t *testing.T) {
	s := newAuth(t)
	ctx := context.Background()

	created, err := s.EnsureAdmin(ctx, "admin", "cambiame123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureAdmin(ctx, "admin2", "cambiame123")
	require.NoError(t, err)
	assert.False(t, created)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, core.RolAdmin, users[0].Rol)
}
