package middleware

// identity.go holds the context keys the session middleware fills in and the
// accessors handlers use to read them back.

import (
	"github.com/labstack/echo/v4"

	"github.com/elpasoverse/portal/internal/identity"
)

const (
	ctxGate     = "identity_gate"
	ctxIdentity = "identity"
	ctxUserID   = "user_id"
	ctxRole     = "role"
)

// GateFrom returns the request's identity gate, or nil when the Session
// middleware did not run.
func GateFrom(c echo.Context) *identity.Gate {
	g, _ := c.Get(ctxGate).(*identity.Gate)
	return g
}

// CurrentIdentity waits for the request's gate and returns the identity, or
// nil for anonymous requests.
func CurrentIdentity(c echo.Context) *identity.Identity {
	if id, ok := c.Get(ctxIdentity).(*identity.Identity); ok {
		return id
	}
	g := GateFrom(c)
	if g == nil || !g.AwaitReady(c.Request().Context()) {
		return nil
	}
	id := g.Current()
	setIdentity(c, id)
	return id
}

// CurrentUserID is the caller's id for best-effort personalisation: the
// verified identity when there is one, otherwise the id an earlier session
// mirrored into the legacy cookie.  The legacy id is only present in fallback
// mode and is never enough to pass RequireSession.
func CurrentUserID(c echo.Context) string {
	if id := CurrentIdentity(c); id != nil {
		return id.ID
	}
	if g := GateFrom(c); g != nil {
		return g.LegacyID()
	}
	return ""
}

func setIdentity(c echo.Context, id *identity.Identity) {
	c.Set(ctxIdentity, id)
	c.Set(ctxUserID, id.ID)
	c.Set(ctxRole, id.Role)
}

// userID identifies the caller for rate limiting; "anon" when nobody is
// signed in or the gate has not resolved yet.
func userID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	if g := GateFrom(c); g != nil {
		if id := g.Current(); id != nil {
			return id.ID
		}
		if legacy := g.LegacyID(); legacy != "" {
			return legacy
		}
	}
	return "anon"
}
