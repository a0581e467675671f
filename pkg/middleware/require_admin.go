package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shiminize/creatorhub/pkg/auth"
	"github.com/shiminize/creatorhub/pkg/models"
)

// RequireAdmin guards administrative routes with the injected
// authorization capability. The bearer token comes from the
// Authorization header.
func RequireAdmin(authorizer auth.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Authentication required",
				})
			}

			identity, err := authorizer.Authorize(token)
			if err != nil {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "forbidden",
					Message: "Admin access required",
				})
			}

			c.Set("admin_subject", identity.Subject)
			c.Set("admin_role", identity.Role)
			return next(c)
		}
	}
}
