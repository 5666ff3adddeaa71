package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/elpasoverse/portal/internal/middleware"
)

// publicPages can be viewed without signing in.  Every other page is for
// members only.
var publicPages = map[string]bool{
	"":                    true,
	"index":               true,
	"login":               true,
	"gazette":             true,
	"gazette-v2":          true,
	"film-three-graves":   true,
	"film-sombra-de-lobo": true,
	"film-the-visionary":  true,
	"index-newspaper":     true,
	"motion-print-stream": true,
}

// IsPublicPage reports whether page, with or without ".html", is public.
func IsPublicPage(page string) bool {
	return publicPages[strings.TrimSuffix(strings.ToLower(page), ".html")]
}

// PageAccess tells the frontend whether the caller may open a page and where
// to send them otherwise.  Members-only pages need a verified identity;
// Google sign-ins count as verified.
func PageAccess(loginPath string) echo.HandlerFunc {
	return func(c echo.Context) error {
		page := c.Param("page")
		if IsPublicPage(page) {
			return c.JSON(http.StatusOK, echo.Map{"page": page, "public": true, "allowed": true})
		}
		denied := echo.Map{"page": page, "public": false, "allowed": false, "redirect": loginPath}
		if id := currentIdentity(c); id != nil {
			if !id.Verified() {
				denied["redirect"] = loginPath + "?verify=pending"
				return c.JSON(http.StatusOK, denied)
			}
			return c.JSON(http.StatusOK, echo.Map{"page": page, "public": false, "allowed": true})
		}
		// fallback mode: the legacy id is all there is
		if middleware.CurrentUserID(c) != "" {
			return c.JSON(http.StatusOK, echo.Map{"page": page, "public": false, "allowed": true, "legacy": true})
		}
		return c.JSON(http.StatusOK, denied)
	}
}
