package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/storefront-api/internal/api/middleware"
)

// ctxClaims extracts the auth claims injected by the Auth middleware. An
// empty account id means the middleware did not run.
func ctxClaims(c echo.Context) (whoAmIResponse, error) {
	id, _ := c.Get(middleware.ContextAccountID).(string)
	if id == "" {
		return whoAmIResponse{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	email, _ := c.Get(middleware.ContextEmail).(string)
	role, _ := c.Get(middleware.ContextRole).(string)
	return whoAmIResponse{ID: id, Email: email, Role: role}, nil
}
