package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/elpasoverse/portal/internal/fraud"
	"github.com/elpasoverse/portal/internal/identity"
	"github.com/elpasoverse/portal/internal/ledger"
)

// AccountHandler serves signup, sign-in and the credit ledger.
type AccountHandler struct {
	Fraud  *fraud.Collector
	Ledger *ledger.Service
	logger *slog.Logger
}

func NewAccountHandler(f *fraud.Collector, l *ledger.Service, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{Fraud: f, Ledger: l, logger: logger.With("component", "account")}
}

type signupReq struct {
	DisplayName  string             `json:"display_name"`
	CaptchaToken string             `json:"captcha_token"`
	SessionID    string             `json:"session_id"`
	Traits       fraud.DeviceTraits `json:"device"`
}

// Signup validates a new member against the fraud signals and creates the
// ledger account.  The bonus is not credited here; it follows on the first
// verified sign-in.  Repeating signup for an existing account reports the
// stored state and leaves no attempt behind.
func (h *AccountHandler) Signup(c echo.Context) error {
	id := currentIdentity(c)
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	existing, err := h.Ledger.Account(ctx, id.ID)
	switch {
	case err == nil:
		return h.signupDone(c, id, false, existing.BonusEligible)
	case !errors.Is(err, ledger.ErrAccountNotFound):
		return fail(c, h.logger, err, "read account failed")
	}

	ua := c.Request().UserAgent()
	v := h.Fraud.Validate(ctx, fraud.SignupRequest{
		Email:        id.Email,
		IP:           c.RealIP(),
		UserAgent:    ua,
		Session:      req.SessionID,
		CaptchaToken: req.CaptchaToken,
		Traits:       req.Traits,
	})
	if !v.Valid {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":  v.Reason.Message(),
			"reason": v.Reason,
		})
	}

	created, err := h.Ledger.CreateAccount(ctx, id.ID, id.Email, strings.TrimSpace(req.DisplayName), v)
	if err != nil {
		return fail(c, h.logger, err, "create account failed")
	}
	if !created {
		// lost the race to a concurrent signup for the same identity
		eligible := v.BonusEligible
		if a, err := h.Ledger.Account(ctx, id.ID); err == nil {
			eligible = a.BonusEligible
		}
		return h.signupDone(c, id, false, eligible)
	}
	h.Fraud.RecordAttempt(ctx, v.IP, id.Email, v.Fingerprint, ua)
	return h.signupDone(c, id, true, v.BonusEligible)
}

func (h *AccountHandler) signupDone(c echo.Context, id *identity.Identity, created, eligible bool) error {
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{
		"created":        created,
		"bonus_eligible": eligible,
		"email_verified": id.Verified(),
	})
}

// SignIn runs on every sign-in.  A verified identity receives its pending
// signup bonus; the response carries the current balance either way.
func (h *AccountHandler) SignIn(c echo.Context) error {
	id := currentIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	granted := false
	if id.Verified() && h.Ledger.Configured() {
		var err error
		if granted, err = h.Ledger.GrantBonusIfEligible(ctx, id); err != nil {
			return fail(c, h.logger, err, "grant bonus failed")
		}
	}
	balance, err := h.Ledger.GetBalance(ctx, id)
	if err != nil {
		return fail(c, h.logger, err, "read balance failed")
	}
	resp := echo.Map{
		"balance":        balance,
		"bonus_granted":  granted,
		"email_verified": id.Verified(),
	}
	if granted {
		resp["bonus"] = h.Ledger.BonusAmount()
	}
	return c.JSON(http.StatusOK, resp)
}

// Balance returns the caller's credit balance.
func (h *AccountHandler) Balance(c echo.Context) error {
	id := currentIdentity(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	balance, err := h.Ledger.GetBalance(ctx, id)
	if err != nil {
		return fail(c, h.logger, err, "read balance failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": balance, "demo": !h.Ledger.Configured()})
}

// History returns the caller's transactions, newest first.
func (h *AccountHandler) History(c echo.Context) error {
	id := currentIdentity(c)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Ledger.History(ctx, id.ID, limit)
	if err != nil {
		return fail(c, h.logger, err, "read history failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type adjustReq struct {
	Amount      int64  `json:"amount"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

// Grant credits an account.  Admin only.
func (h *AccountHandler) Grant(c echo.Context) error { return h.adjust(c, h.Ledger.Grant) }

// Deduct debits an account.  Admin only.
func (h *AccountHandler) Deduct(c echo.Context) error { return h.adjust(c, h.Ledger.Deduct) }

func (h *AccountHandler) adjust(c echo.Context, op func(context.Context, string, int64, string, string) (int64, error)) error {
	var req adjustReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ledger.ErrInvalidAmount.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	accountID := c.Param("id")
	balance, err := op(ctx, accountID, req.Amount, req.Reason, req.Description)
	if err != nil {
		resp := echo.Map{"error": err.Error()}
		if status := statusOf(err); status == http.StatusConflict {
			resp["balance"] = balance
			return c.JSON(status, resp)
		}
		return fail(c, h.logger, err, "update balance failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"account_id": accountID, "balance": balance})
}

// Account returns an account record.  Admin only.
func (h *AccountHandler) Account(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Ledger.Account(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.logger, err, "load account failed")
	}
	return c.JSON(http.StatusOK, a)
}

// Reconcile compares an account's balance with its history.  Admin only.
func (h *AccountHandler) Reconcile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	r, err := h.Ledger.Reconcile(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.logger, err, "reconcile failed")
	}
	return c.JSON(http.StatusOK, r)
}
