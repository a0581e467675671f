package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTAuthorizer(t *testing.T) {
	authorizer := NewJWTAuthorizer("test-secret")

	t.Run("Success - Valid admin token", func(t *testing.T) {
		token, err := authorizer.GenerateToken("ops@example.com", "admin", time.Hour)
		require.NoError(t, err)

		identity, err := authorizer.Authorize(token)
		require.NoError(t, err)
		assert.Equal(t, "ops@example.com", identity.Subject)
		assert.Equal(t, "admin", identity.Role)
	})

	t.Run("Success - Superadmin role", func(t *testing.T) {
		token, err := authorizer.GenerateToken("root@example.com", "superadmin", time.Hour)
		require.NoError(t, err)

		_, err = authorizer.Authorize(token)
		assert.NoError(t, err)
	})

	t.Run("Failure - Non-admin role", func(t *testing.T) {
		token, err := authorizer.GenerateToken("user@example.com", "viewer", time.Hour)
		require.NoError(t, err)

		_, err = authorizer.Authorize(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "admin role required")
	})

	t.Run("Failure - Expired token", func(t *testing.T) {
		token, err := authorizer.GenerateToken("ops@example.com", "admin", -time.Minute)
		require.NoError(t, err)

		_, err = authorizer.Authorize(token)
		assert.Error(t, err)
	})

	t.Run("Failure - Wrong secret", func(t *testing.T) {
		other := NewJWTAuthorizer("other-secret")
		token, err := other.GenerateToken("ops@example.com", "admin", time.Hour)
		require.NoError(t, err)

		_, err = authorizer.Authorize(token)
		assert.Error(t, err)
	})

	t.Run("Failure - Garbage token", func(t *testing.T) {
		_, err := authorizer.Authorize("not.a.jwt")
		assert.Error(t, err)
	})
}

func TestStaticAuthorizer(t *testing.T) {
	authorizer := &StaticAuthorizer{
		Token:    "fixed-token",
		Identity: Identity{Subject: "test", Role: "admin"},
	}

	identity, err := authorizer.Authorize("fixed-token")
	require.NoError(t, err)
	assert.Equal(t, "test", identity.Subject)

	_, err = authorizer.Authorize("wrong")
	assert.Error(t, err)

	empty := &StaticAuthorizer{}
	_, err = empty.Authorize("")
	assert.Error(t, err)
}
