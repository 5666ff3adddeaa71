package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elpasoverse/portal/internal/identity"
	"github.com/elpasoverse/portal/internal/middleware"
)

// currentIdentity is the caller on routes behind RequireSession.
func currentIdentity(c echo.Context) *identity.Identity {
	return middleware.CurrentIdentity(c)
}

// Me returns the caller's identity as the session resolved it.
func Me(c echo.Context) error {
	id := currentIdentity(c)
	return c.JSON(http.StatusOK, echo.Map{"identity": id, "verified": id.Verified()})
}
