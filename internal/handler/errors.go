package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/elpasoverse/portal/internal/engagement"
	"github.com/elpasoverse/portal/internal/ledger"
	"github.com/elpasoverse/portal/internal/repository"
)

// requestTimeout bounds the store calls of a single request.
const requestTimeout = 5 * time.Second

// statusOf maps business errors to HTTP statuses.  Anything unknown is a 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotConfigured), errors.Is(err, engagement.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, engagement.ErrUnknownTarget),
		errors.Is(err, engagement.ErrInvalidIdea),
		errors.Is(err, engagement.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, engagement.ErrIdeaNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engagement.ErrAlreadyVoted), errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNoIdentity):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}.  Internal errors are logged and
// replaced by fallback so driver messages never reach the client.
func fail(c echo.Context, logger *slog.Logger, err error, fallback string) error {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback, "path", c.Path(), "err", err)
		return c.JSON(status, echo.Map{"error": fallback})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
