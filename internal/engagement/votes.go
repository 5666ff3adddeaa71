// Package engagement records community participation: votes on land targets
// and support for film ideas.  Each target keeps a voter set and a counter
// that always equals the set's size.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/elpasoverse/portal/internal/identity"
	"github.com/elpasoverse/portal/internal/metrics"
	"github.com/elpasoverse/portal/internal/model"
	"github.com/elpasoverse/portal/internal/queue"
)

var (
	ErrAlreadyVoted  = errors.New("already voted for this target")
	ErrUnknownTarget = errors.New("unknown land target")
	ErrNotConfigured = errors.New("engagement store is not configured")
	ErrIdeaNotFound  = errors.New("idea not found")
	ErrInvalidIdea   = errors.New("title and logline are required")
	ErrInvalidStatus = errors.New("unknown idea status")
)

// Targets is the catalog of votable land targets.
var Targets = []model.LandTarget{
	{ID: "verse-hotel", Name: `"Verse Hotel" Almeria`},
	{ID: "western-leone", Name: "Western Leone"},
	{ID: "rio-texaco", Name: "Rio Texaco"},
}

// LookupTarget returns the catalog entry for id.
func LookupTarget(id string) (model.LandTarget, bool) {
	for _, t := range Targets {
		if t.ID == id {
			return t, true
		}
	}
	return model.LandTarget{}, false
}

// VoteStore persists voter sets and counters.
type VoteStore interface {
	Add(ctx context.Context, targetID, voterID string, at time.Time) (bool, error)
	Tally(ctx context.Context, targetID string) (int64, error)
	Tallies(ctx context.Context) (map[string]int64, error)
	Has(ctx context.Context, targetID, voterID string) (bool, error)
}

// Votes is the land-target voting service.
type Votes struct {
	store  VoteStore
	events queue.Emitter
	logger *slog.Logger
}

func NewVotes(store VoteStore, events queue.Emitter, logger *slog.Logger) *Votes {
	if events == nil {
		events = queue.Discard{}
	}
	return &Votes{store: store, events: events, logger: logger.With("component", "votes")}
}

// Vote adds voter to target's voter set and bumps its counter.  A repeat
// vote changes nothing and returns ErrAlreadyVoted.
func (v *Votes) Vote(ctx context.Context, voter *identity.Identity, targetID string) error {
	if v.store == nil {
		return ErrNotConfigured
	}
	if _, ok := LookupTarget(targetID); !ok {
		return ErrUnknownTarget
	}
	added, err := v.store.Add(ctx, targetID, voter.ID, time.Now().UTC())
	if err != nil {
		metrics.Votes.WithLabelValues("error").Inc()
		return fmt.Errorf("record vote: %w", err)
	}
	if !added {
		metrics.Votes.WithLabelValues("duplicate").Inc()
		return ErrAlreadyVoted
	}
	metrics.Votes.WithLabelValues("ok").Inc()
	v.logger.Info("vote recorded", "target", targetID, "voter", voter.ID)
	email := voter.Email
	if email == "" {
		email = "unknown"
	}
	v.events.Emit(queue.NewEvent(queue.SheetLandVotes, map[string]any{
		"userId":   voter.ID,
		"email":    email,
		"targetId": targetID,
		"voteDate": time.Now().UTC().Format(time.RFC3339),
	}))
	return nil
}

// Tally returns the vote count for targetID, zero in demo mode.
func (v *Votes) Tally(ctx context.Context, targetID string) (int64, error) {
	if _, ok := LookupTarget(targetID); !ok {
		return 0, ErrUnknownTarget
	}
	if v.store == nil {
		return 0, nil
	}
	return v.store.Tally(ctx, targetID)
}

// TargetTally is a catalog entry with its count.
type TargetTally struct {
	model.LandTarget
	Votes int64 `json:"votes"`
}

// Tallies returns every catalog target with its count, in catalog order.
func (v *Votes) Tallies(ctx context.Context) ([]TargetTally, error) {
	counts := map[string]int64{}
	if v.store != nil {
		var err error
		if counts, err = v.store.Tallies(ctx); err != nil {
			return nil, fmt.Errorf("read tallies: %w", err)
		}
	}
	out := make([]TargetTally, 0, len(Targets))
	for _, t := range Targets {
		out = append(out, TargetTally{LandTarget: t, Votes: counts[t.ID]})
	}
	return out, nil
}

// HasVoted reports whether voterID is in targetID's voter set.
func (v *Votes) HasVoted(ctx context.Context, voterID, targetID string) (bool, error) {
	if v.store == nil || voterID == "" {
		return false, nil
	}
	return v.store.Has(ctx, targetID, voterID)
}
