package router // package router registers the portal's HTTP routes

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elpasoverse/portal/internal/handler"
	"github.com/elpasoverse/portal/internal/middleware"
	"github.com/elpasoverse/portal/internal/model"
)

// RegisterRoutes registers the probes, metrics and page access check.
func RegisterRoutes(e *echo.Echo, db *sql.DB, loginPath string) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/v1/pages/:page/access", handler.PageAccess(loginPath))
}

// RegisterAuth registers the local credential provider.  It is only mounted
// when IDENTITY_PROVIDER=local.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, loginPath string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)               // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess) // keeps the refresh token
	g.POST("/logout", a.Logout)
	g.POST("/verify-email", a.VerifyEmail)
	g.POST("/resend-verification", a.ResendVerification, middleware.RequireSession(loginPath))
}

// RegisterAccount registers signup, sign-in and the caller's ledger views.
func RegisterAccount(e *echo.Echo, h *handler.AccountHandler, loginPath string) {
	g := e.Group("/v1", middleware.RequireSession(loginPath))
	g.GET("/me", handler.Me)
	g.POST("/signup", h.Signup)
	g.POST("/session/signin", h.SignIn)
	g.GET("/me/balance", h.Balance)
	g.GET("/me/history", h.History)
}

// RegisterEngagement registers votes and film ideas.  Public reads go
// through the response cache; tallies may lag a vote by the cache TTL.
func RegisterEngagement(e *echo.Echo, h *handler.EngagementHandler, cache echo.MiddlewareFunc, loginPath string) {
	e.GET("/v1/votes", h.Targets, cache)
	e.GET("/v1/votes/:target", h.Tally, cache)
	e.GET("/v1/ideas", h.ListIdeas, cache)

	g := e.Group("/v1", middleware.RequireSession(loginPath))
	g.GET("/votes/:target/me", h.HasVoted)
	g.GET("/me/ideas/supported", h.MySupport)

	// casting votes and backing ideas needs a verified email
	verified := middleware.RequireVerified()
	g.POST("/votes/:target", h.Vote, verified)
	g.POST("/ideas", h.SubmitIdea, verified)
	g.POST("/ideas/:id/support", h.ToggleSupport, verified)
}

// RegisterWallet registers the wallet balance lookup.  A session is
// optional; it only enriches the activity log.
func RegisterWallet(e *echo.Echo, h *handler.WalletHandler) {
	e.POST("/v1/wallet/balance", h.Balance)
}

// RegisterAdmin registers ledger and idea moderation endpoints for ADMIN.
func RegisterAdmin(e *echo.Echo, a *handler.AccountHandler, en *handler.EngagementHandler, loginPath string) {
	g := e.Group(
		"/v1/admin",
		middleware.RequireSession(loginPath),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/accounts/:id", a.Account)
	g.POST("/accounts/:id/grant", a.Grant)
	g.POST("/accounts/:id/deduct", a.Deduct)
	g.GET("/accounts/:id/reconcile", a.Reconcile)
	g.PUT("/ideas/:id/status", en.SetIdeaStatus)
}
