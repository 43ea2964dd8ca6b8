package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to HTTP status codes by error class.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"statusCode": <code>, "message": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{StatusCode: code, Message: msg})
	}
}

// publicMessages holds the client-facing text for errors whose message differs
// from the class default.
var publicMessages = map[error]string{
	domain.ErrMissingOTPInput:    "Enter OTP and OTP Reference.",
	domain.ErrPasswordMismatch:   "Password and confirmation password do not match",
	domain.ErrUnknownRole:        "Role must be admin or customer",
	domain.ErrInvalidCredentials: "Invalid email or password",
	domain.ErrInvalidOTP:         "Invalid or expired OTP",
	domain.ErrInvalidResetToken:  "Invalid or expired reset token",
	domain.ErrProductNotFound:    "Data not found",
	domain.ErrCategoryNotFound:   "Cannot find category",
	domain.ErrAccountExists:      "User already exists",
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Warn().Err(he.Internal).Str("path", c.Path()).Msg("request rejected")
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	status := statusForClass(err)
	if status != http.StatusInternalServerError {
		for target, msg := range publicMessages {
			if errors.Is(err, target) {
				return status, msg
			}
		}
		return status, err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

func statusForClass(err error) int {
	switch {
	// A missing category is a bad reference in the request body, not a missing resource.
	case errors.Is(err, domain.ErrCategoryNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
