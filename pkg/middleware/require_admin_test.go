package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiminize/creatorhub/pkg/auth"
)

func TestRequireAdmin(t *testing.T) {
	authorizer := &auth.StaticAuthorizer{
		Token:    "good-token",
		Identity: auth.Identity{Subject: "ops", Role: "admin"},
	}

	e := echo.New()
	handler := RequireAdmin(authorizer)(func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("admin_subject").(string))
	})

	run := func(authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/creators", nil)
		if authHeader != "" {
			req.Header.Set(echo.HeaderAuthorization, authHeader)
		}
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec
	}

	t.Run("Success - Valid bearer token", func(t *testing.T) {
		rec := run("Bearer good-token")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ops", rec.Body.String())
	})

	t.Run("Failure - Missing header", func(t *testing.T) {
		rec := run("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Failure - Not a bearer scheme", func(t *testing.T) {
		rec := run("Basic abc123")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Failure - Rejected token", func(t *testing.T) {
		rec := run("Bearer bad-token")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
