package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasoverse/portal/internal/config"
	"github.com/elpasoverse/portal/internal/identity"
)

type tokenVerifier map[string]*identity.Identity

func (v tokenVerifier) Verify(_ context.Context, token string) (*identity.Identity, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return nil, identity.ErrInvalidToken
}

var (
	member = &identity.Identity{ID: "u-1", Email: "member@example.com", EmailVerified: true, Provider: identity.ProviderPassword, Role: "MEMBER"}
	admin  = &identity.Identity{ID: "u-2", Email: "admin@example.com", EmailVerified: true, Provider: identity.ProviderPassword, Role: "ADMIN"}
	google = &identity.Identity{ID: "u-3", Email: "g@example.com", Provider: identity.ProviderGoogle}
	fresh  = &identity.Identity{ID: "u-4", Email: "new@example.com", Provider: identity.ProviderPassword}
)

func newResolver() *identity.Resolver {
	return identity.NewResolver(tokenVerifier{"m": member, "a": admin, "g": google, "f": fresh}, 0)
}

func serve(t *testing.T, resolver *identity.Resolver, token string, cookie *http.Cookie, chain ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error {
		id := CurrentIdentity(c)
		if id == nil {
			return c.JSON(http.StatusOK, echo.Map{"id": ""})
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id.ID})
	}
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	require.NoError(t, Session(resolver, false)(h)(c))
	return rec
}

func TestRequireSessionRedirectsAnonymous(t *testing.T) {
	rec := serve(t, newResolver(), "", nil, RequireSession("/login"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required","redirect":"/login"}`, rec.Body.String())

	rec = serve(t, newResolver(), "bogus", nil, RequireSession("/login"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMirrorsIdentityCookie(t *testing.T) {
	rec := serve(t, newResolver(), "m", nil, RequireSession("/login"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"u-1"}`, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, LegacyCookie, cookies[0].Name)
	assert.Equal(t, "u-1", cookies[0].Value)

	// unchanged mirror is not rewritten
	rec = serve(t, newResolver(), "m", &http.Cookie{Name: LegacyCookie, Value: "u-1"}, RequireSession("/login"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionClearsMirrorOnSignOut(t *testing.T) {
	rec := serve(t, newResolver(), "", &http.Cookie{Name: LegacyCookie, Value: "u-1"}, RequireSession("/login"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestFallbackModeKeepsLegacyCookie(t *testing.T) {
	resolver := identity.NewResolver(nil, 0)
	rec := serve(t, resolver, "m", &http.Cookie{Name: LegacyCookie, Value: "u-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":""}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestCurrentUserIDUsesLegacyOnlyInFallback(t *testing.T) {
	userIDFor := func(resolver *identity.Resolver, token, legacy string) string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.AddCookie(&http.Cookie{Name: LegacyCookie, Value: legacy})
		c := echo.New().NewContext(req, httptest.NewRecorder())
		var got string
		require.NoError(t, Session(resolver, false)(func(c echo.Context) error {
			got = CurrentUserID(c)
			return nil
		})(c))
		return got
	}

	assert.Equal(t, "u-legacy", userIDFor(identity.NewResolver(nil, 0), "", "u-legacy"))
	assert.Equal(t, "", userIDFor(newResolver(), "", "u-legacy"))
	assert.Equal(t, "u-1", userIDFor(newResolver(), "m", "u-legacy"))
}

func TestRequireVerified(t *testing.T) {
	chain := []echo.MiddlewareFunc{RequireSession("/login"), RequireVerified()}
	assert.Equal(t, http.StatusOK, serve(t, newResolver(), "m", nil, chain...).Code)
	assert.Equal(t, http.StatusOK, serve(t, newResolver(), "g", nil, chain...).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, newResolver(), "f", nil, chain...).Code)
}

func TestRequireRole(t *testing.T) {
	chain := []echo.MiddlewareFunc{RequireSession("/login"), RequireRole("ADMIN")}
	assert.Equal(t, http.StatusOK, serve(t, newResolver(), "a", nil, chain...).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, newResolver(), "m", nil, chain...).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/votes/rio-texaco", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/votes/:target")

	cfg := config.RateLimitConfig{Prefix: "portal:rl", KeyStrategy: "ip"}
	assert.Equal(t, "portal:rl:ip:203.0.113.9", buildRateKey(cfg, c))

	cfg.KeyStrategy = ""
	assert.Equal(t, "portal:rl:ip:203.0.113.9:user:anon:route:POST /v1/votes/:target", buildRateKey(cfg, c))

	c.Set(ctxUserID, "u-1")
	cfg.KeyStrategy = "user_route"
	assert.Equal(t, "portal:rl:user:u-1:route:POST /v1/votes/:target", buildRateKey(cfg, c))
}

func TestRedisMiddlewareDisabledWithoutClient(t *testing.T) {
	called := 0
	h := func(c echo.Context) error { called++; return c.NoContent(http.StatusNoContent) }

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/ideas", nil), httptest.NewRecorder())
	require.NoError(t, NewRedisCache(config.CacheConfig{Enabled: true}, nil)(h)(c))
	require.NoError(t, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil)(h)(c))
	assert.Equal(t, 2, called)
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
}
