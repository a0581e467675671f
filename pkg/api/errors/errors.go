// Package errors maps domain errors to JSON HTTP responses.
package errors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shiminize/creatorhub/pkg/domain"
	"github.com/shiminize/creatorhub/pkg/models"
)

// statusFor maps domain error codes to HTTP status codes
var statusFor = map[string]int{
	domain.ErrCodeLinkNotFound:            http.StatusNotFound,
	domain.ErrCodeNotFound:                http.StatusNotFound,
	domain.ErrCodeValidation:              http.StatusBadRequest,
	domain.ErrCodeInvalidStatusTransition: http.StatusBadRequest,
	domain.ErrCodePayoutNotEligible:       http.StatusBadRequest,
	domain.ErrCodeInvalidCommissionRate:   http.StatusBadRequest,
	domain.ErrCodeInvalidMinimumPayout:    http.StatusBadRequest,
	domain.ErrCodeConflict:                http.StatusConflict,
	domain.ErrCodeUnauthorized:            http.StatusUnauthorized,
	domain.ErrCodeForbidden:               http.StatusForbidden,
}

// Domain renders a domain error with its taxonomy code. Internal errors
// never expose their cause.
func Domain(c echo.Context, err error) error {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return Internal(c, err)
	}

	status, ok := statusFor[de.Code]
	if !ok {
		return Internal(c, err)
	}
	return c.JSON(status, models.ErrorResponse{
		Error:   de.Code,
		Message: de.Message,
	})
}

// Validation returns a generic validation error without exposing internal details
func Validation(c echo.Context, err error) error {
	c.Logger().Warnf("validation error on %s: %v", c.Request().URL.Path, err)
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   domain.ErrCodeValidation,
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// Internal returns a generic internal server error
func Internal(c echo.Context, err error) error {
	c.Logger().Errorf("internal error on %s: %v", c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   domain.ErrCodeInternal,
		Message: "An internal error occurred. Please try again later.",
	})
}

// NotFound returns a generic not found error
func NotFound(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   domain.ErrCodeNotFound,
		Message: "The requested " + resource + " was not found.",
	})
}
