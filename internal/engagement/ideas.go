package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elpasoverse/portal/internal/identity"
	"github.com/elpasoverse/portal/internal/model"
	"github.com/elpasoverse/portal/internal/queue"
	"github.com/elpasoverse/portal/internal/repository"
)

// DefaultSupportGoal is the supporter count an idea aims for.
const DefaultSupportGoal = 1000

// listWindow bounds how many ideas are loaded before filtering.
const listWindow = 500

type IdeaStore interface {
	Create(ctx context.Context, i model.FilmIdea) error
	Get(ctx context.Context, id string) (model.FilmIdea, error)
	List(ctx context.Context, limit int) ([]model.FilmIdea, error)
	ToggleSupport(ctx context.Context, ideaID, userID string, at time.Time) (bool, int64, error)
	SupportedBy(ctx context.Context, userID string) ([]string, error)
	SetStatus(ctx context.Context, id, status string) error
}

// Ideas is the film idea board.
type Ideas struct {
	store  IdeaStore
	events queue.Emitter
	logger *slog.Logger
}

func NewIdeas(store IdeaStore, events queue.Emitter, logger *slog.Logger) *Ideas {
	if events == nil {
		events = queue.Discard{}
	}
	return &Ideas{store: store, events: events, logger: logger.With("component", "ideas")}
}

// NewIdea is a submission.
type NewIdea struct {
	Title       string  `json:"title"`
	Logline     string  `json:"logline"`
	Description string  `json:"description"`
	Genre       string  `json:"genre"`
	Submitter   string  `json:"submitter"`
	ImageURL    *string `json:"image_url"`
}

// Submit stores a new idea in the gathering state.
func (s *Ideas) Submit(ctx context.Context, by *identity.Identity, in NewIdea) (model.FilmIdea, error) {
	if s.store == nil {
		return model.FilmIdea{}, ErrNotConfigured
	}
	in.Title, in.Logline = strings.TrimSpace(in.Title), strings.TrimSpace(in.Logline)
	if in.Title == "" || in.Logline == "" {
		return model.FilmIdea{}, ErrInvalidIdea
	}
	if in.Genre == "" {
		in.Genre = "Western"
	}
	idea := model.FilmIdea{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Logline:     in.Logline,
		Description: strings.TrimSpace(in.Description),
		Genre:       in.Genre,
		Submitter:   strings.TrimSpace(in.Submitter),
		SubmitterID: by.ID,
		ImageURL:    in.ImageURL,
		Status:      model.IdeaGathering,
		SupportGoal: DefaultSupportGoal,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, idea); err != nil {
		return model.FilmIdea{}, fmt.Errorf("create idea: %w", err)
	}
	s.logger.Info("idea submitted", "idea", idea.ID, "by", by.ID)
	s.events.Emit(queue.NewEvent(queue.SheetFilmIdeas, map[string]any{
		"ideaId":        idea.ID,
		"title":         idea.Title,
		"genre":         idea.Genre,
		"submitter":     idea.Submitter,
		"submitterId":   idea.SubmitterID,
		"submittedDate": idea.CreatedAt.Format(time.RFC3339),
	}))
	return idea, nil
}

// Filter narrows and orders the idea list.  Empty fields and "all" match
// everything.  Sort is one of "recent" (default), "popular" or "closest".
type Filter struct {
	Search string
	Genre  string
	Status string
	Sort   string
}

// List returns the ideas matching f.
func (s *Ideas) List(ctx context.Context, f Filter) ([]model.FilmIdea, error) {
	if s.store == nil {
		return []model.FilmIdea{}, nil
	}
	all, err := s.store.List(ctx, listWindow)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	return applyFilter(all, f), nil
}

func applyFilter(ideas []model.FilmIdea, f Filter) []model.FilmIdea {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.FilmIdea, 0, len(ideas))
	for _, i := range ideas {
		if search != "" &&
			!strings.Contains(strings.ToLower(i.Title), search) &&
			!strings.Contains(strings.ToLower(i.Logline), search) &&
			!strings.Contains(strings.ToLower(i.Description), search) {
			continue
		}
		if f.Genre != "" && f.Genre != "all" && i.Genre != f.Genre {
			continue
		}
		if f.Status != "" && f.Status != "all" && i.Status != f.Status {
			continue
		}
		out = append(out, i)
	}
	switch f.Sort {
	case "popular":
		sort.SliceStable(out, func(a, b int) bool { return out[a].SupportCount > out[b].SupportCount })
	case "closest":
		sort.SliceStable(out, func(a, b int) bool { return progress(out[a]) > progress(out[b]) })
	default:
		sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	}
	return out
}

// progress is the fraction of the support goal reached.
func progress(i model.FilmIdea) float64 {
	goal := i.SupportGoal
	if goal <= 0 {
		goal = DefaultSupportGoal
	}
	return float64(i.SupportCount) / float64(goal)
}

// ToggleSupport adds or removes the user's support and returns the new
// state and count.
func (s *Ideas) ToggleSupport(ctx context.Context, userID, ideaID string) (bool, int64, error) {
	if s.store == nil {
		return false, 0, ErrNotConfigured
	}
	supported, count, err := s.store.ToggleSupport(ctx, ideaID, userID, time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return false, 0, ErrIdeaNotFound
	}
	if err != nil {
		return false, 0, fmt.Errorf("toggle support: %w", err)
	}
	return supported, count, nil
}

// SupportedBy lists the ideas userID supports.
func (s *Ideas) SupportedBy(ctx context.Context, userID string) ([]string, error) {
	if s.store == nil {
		return []string{}, nil
	}
	ids, err := s.store.SupportedBy(ctx, userID)
	if ids == nil && err == nil {
		ids = []string{}
	}
	return ids, err
}

// SetStatus moves an idea between gathering and greenlit.
func (s *Ideas) SetStatus(ctx context.Context, ideaID, status string) error {
	if s.store == nil {
		return ErrNotConfigured
	}
	if status != model.IdeaGathering && status != model.IdeaGreenlit {
		return ErrInvalidStatus
	}
	err := s.store.SetStatus(ctx, ideaID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrIdeaNotFound
	}
	return err
}
