package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elpasoverse/portal/internal/engagement"
)

// EngagementHandler serves land votes and the film idea board.
type EngagementHandler struct {
	Votes  *engagement.Votes
	Ideas  *engagement.Ideas
	logger *slog.Logger
}

func NewEngagementHandler(v *engagement.Votes, i *engagement.Ideas, logger *slog.Logger) *EngagementHandler {
	return &EngagementHandler{Votes: v, Ideas: i, logger: logger.With("component", "engagement")}
}

// ----- votes -----

// Targets lists the votable land targets with their tallies.
func (h *EngagementHandler) Targets(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	tallies, err := h.Votes.Tallies(ctx)
	if err != nil {
		return fail(c, h.logger, err, "load tallies failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"targets": tallies})
}

// Tally returns one target's vote count.
func (h *EngagementHandler) Tally(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	target := c.Param("target")
	n, err := h.Votes.Tally(ctx, target)
	if err != nil {
		return fail(c, h.logger, err, "load tally failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"target": target, "votes": n})
}

// Vote casts the caller's vote for a target.
func (h *EngagementHandler) Vote(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	target := c.Param("target")
	if err := h.Votes.Vote(ctx, currentIdentity(c), target); err != nil {
		return fail(c, h.logger, err, "vote failed")
	}
	n, err := h.Votes.Tally(ctx, target)
	if err != nil {
		return fail(c, h.logger, err, "load tally failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"target": target, "votes": n, "voted": true})
}

// HasVoted reports whether the caller voted for a target.
func (h *EngagementHandler) HasVoted(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	target := c.Param("target")
	voted, err := h.Votes.HasVoted(ctx, currentIdentity(c).ID, target)
	if err != nil {
		return fail(c, h.logger, err, "load vote failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"target": target, "voted": voted})
}

// ----- film ideas -----

// ListIdeas returns ideas filtered by ?q=, ?genre=, ?status= and ordered by
// ?sort=recent|popular|closest.
func (h *EngagementHandler) ListIdeas(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ideas, err := h.Ideas.List(ctx, engagement.Filter{
		Search: c.QueryParam("q"),
		Genre:  c.QueryParam("genre"),
		Status: c.QueryParam("status"),
		Sort:   c.QueryParam("sort"),
	})
	if err != nil {
		return fail(c, h.logger, err, "list ideas failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"ideas": ideas})
}

// SubmitIdea stores a new idea from the caller.
func (h *EngagementHandler) SubmitIdea(c echo.Context) error {
	var req engagement.NewIdea
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	idea, err := h.Ideas.Submit(ctx, currentIdentity(c), req)
	if err != nil {
		return fail(c, h.logger, err, "submit idea failed")
	}
	return c.JSON(http.StatusCreated, idea)
}

// ToggleSupport adds or removes the caller's support for an idea.
func (h *EngagementHandler) ToggleSupport(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	supported, count, err := h.Ideas.ToggleSupport(ctx, currentIdentity(c).ID, c.Param("id"))
	if err != nil {
		return fail(c, h.logger, err, "toggle support failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "supported": supported, "support_count": count})
}

// MySupport lists the ideas the caller supports.
func (h *EngagementHandler) MySupport(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ids, err := h.Ideas.SupportedBy(ctx, currentIdentity(c).ID)
	if err != nil {
		return fail(c, h.logger, err, "load support failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"ideas": ids})
}

type statusReq struct {
	Status string `json:"status"`
}

// SetIdeaStatus moves an idea between gathering and greenlit.  Admin only.
func (h *EngagementHandler) SetIdeaStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Ideas.SetStatus(ctx, c.Param("id"), req.Status); err != nil {
		return fail(c, h.logger, err, "update status failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "status": req.Status})
}
