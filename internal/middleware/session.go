package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/elpasoverse/portal/internal/identity"
)

// LegacyCookie mirrors the signed-in identity id for clients that predate the
// identity provider.
const LegacyCookie = "elPasoUserId"

// cookieMirror collects mirror calls from the verification goroutine.  The
// last value is written as a cookie just before the response header goes out.
type cookieMirror struct {
	mu      sync.Mutex
	value   string
	changed bool
}

func (m *cookieMirror) set(id string) {
	m.mu.Lock()
	m.value, m.changed = id, true
	m.mu.Unlock()
}

func (m *cookieMirror) cookie(secure bool) *http.Cookie {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.changed {
		return nil
	}
	ck := &http.Cookie{
		Name:     LegacyCookie,
		Value:    m.value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.value == "" {
		ck.MaxAge = -1
	} else {
		ck.Expires = time.Now().Add(365 * 24 * time.Hour)
	}
	return ck
}

// Session opens an identity gate for every request from the bearer token in
// the Authorization header.  Verification runs in the background; handlers
// that need the caller wait on the gate through CurrentIdentity or
// RequireSession.
func Session(resolver *identity.Resolver, secureCookies bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			legacy := ""
			if ck, err := c.Cookie(LegacyCookie); err == nil {
				legacy = ck.Value
			}
			mirror := &cookieMirror{}
			gate := resolver.Open(c.Request().Context(), bearerToken(c.Request()), mirror.set, legacy)
			c.Set(ctxGate, gate)
			c.Response().Before(func() {
				if ck := mirror.cookie(secureCookies); ck != nil && ck.Value != legacy {
					c.SetCookie(ck)
				}
			})
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// RequireSession rejects anonymous requests with 401 and points the client
// at the login page.
func RequireSession(loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentIdentity(c) == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":    "authentication required",
					"redirect": loginPath,
				})
			}
			return next(c)
		}
	}
}

// RequireVerified additionally requires a verified email; Google sign-ins
// always pass.
func RequireVerified() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !CurrentIdentity(c).Verified() {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "email not verified"})
			}
			return next(c)
		}
	}
}
