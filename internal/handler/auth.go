package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/elpasoverse/portal/internal/config"
	"github.com/elpasoverse/portal/internal/identity"
	"github.com/elpasoverse/portal/internal/model"
	"github.com/elpasoverse/portal/internal/repository"
	"github.com/elpasoverse/portal/internal/utils"
)

// verificationTTL is how long an email verification link stays valid.
const verificationTTL = 48 * time.Hour

// AuthHandler is the local credential provider.  It issues identity tokens
// that the session middleware verifies the same way it verifies external
// ones.  Users and Tokens are nil without a database.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	verifier *identity.LocalVerifier
	logger   *slog.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		Cfg:      cfg,
		Users:    u,
		Tokens:   t,
		verifier: identity.NewLocalVerifier(cfg.JWTSecret),
		logger:   logger.With("component", "auth"),
	}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type verifyReq struct {
	Token string `json:"token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
}
type authResp struct {
	User         userPart   `json:"user"`
	Access       tokenPart  `json:"access"`
	Refresh      tokenPart  `json:"refresh"`
	Verification *tokenPart `json:"verification,omitempty"`
}

func (h *AuthHandler) ready(c echo.Context) bool {
	if h.Users != nil && h.Tokens != nil {
		return true
	}
	_ = c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "accounts are not configured"})
	return false
}

// issue creates an identity token and a stored refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, utils.AccessClaims{
		Subject:       u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Provider:      identity.ProviderPassword,
		Role:          u.Role,
	}, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role, EmailVerified: u.EmailVerified},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// issueVerification stores a single-use verification token.  Mail delivery
// is outside the portal, so the token is logged, and returned outside prod.
func (h *AuthHandler) issueVerification(ctx context.Context, u model.User) (*tokenPart, error) {
	v, err := utils.NewOpaqueToken(verificationTTL)
	if err != nil {
		return nil, err
	}
	if err := h.Tokens.StoreVerification(ctx, u.ID, utils.HashRefreshRaw(v.Raw), v.Exp); err != nil {
		return nil, err
	}
	h.logger.Info("verification token issued", "user", u.ID)
	if h.Cfg.IsProd() {
		return nil, nil
	}
	return &tokenPart{Token: v.Raw, Expires: v.Exp}, nil
}

// Register creates a member account with an unverified email and returns
// tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	if !h.ready(c) {
		return nil
	}
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	if err := utils.CheckPassword(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Password, model.RoleMember, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		h.logger.Error("create user", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		h.logger.Error("issue tokens", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	if resp.Verification, err = h.issueVerification(ctx, u); err != nil {
		h.logger.Error("issue verification", "err", err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies the password and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	if !h.ready(c) {
		return nil
	}
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.logger.Error("load user", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		h.logger.Error("issue tokens", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// issued.  The new identity token reflects the current verification state.
func (h *AuthHandler) Refresh(c echo.Context) error {
	if !h.ready(c) {
		return nil
	}
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		h.logger.Error("issue tokens", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new identity token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	if !h.ready(c) {
		return nil
	}
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, utils.AccessClaims{
		Subject:       u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Provider:      identity.ProviderPassword,
		Role:          u.Role,
	}, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Logout revokes one refresh token when the body carries it, otherwise
// every refresh token of the bearer's user.
func (h *AuthHandler) Logout(c echo.Context) error {
	if !h.ready(c) {
		return nil
	}
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
	}
	id, err := h.verifier.Verify(ctx, strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// VerifyEmail consumes a verification token.  Clients refresh afterwards to
// receive an identity token with email_verified set.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	if !h.ready(c) {
		return nil
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	userID, err := h.Tokens.ConsumeVerification(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.Token)))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
	}
	if err := h.Users.MarkVerified(ctx, userID); err != nil {
		h.logger.Error("mark verified", "user", userID, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"verified": true})
}

// ResendVerification issues a fresh verification token for the caller.
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	if !h.ready(c) {
		return nil
	}
	id := currentIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.ID)
	if err != nil {
		return fail(c, h.logger, err, "load user failed")
	}
	if u.EmailVerified {
		return c.JSON(http.StatusOK, echo.Map{"verified": true})
	}
	v, err := h.issueVerification(ctx, u)
	if err != nil {
		return fail(c, h.logger, err, "issue verification failed")
	}
	return c.JSON(http.StatusAccepted, echo.Map{"verified": false, "verification": v})
}
