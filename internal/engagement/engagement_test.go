package engagement

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasoverse/portal/internal/database/dbtest"
	"github.com/elpasoverse/portal/internal/identity"
	"github.com/elpasoverse/portal/internal/model"
	"github.com/elpasoverse/portal/internal/queue"
	"github.com/elpasoverse/portal/internal/repository"
)

type countingEmitter struct {
	mu sync.Mutex
	n  map[string]int
}

func (c *countingEmitter) Emit(ev queue.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == nil {
		c.n = map[string]int{}
	}
	c.n[ev.Sheet]++
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func voter(id string) *identity.Identity { return &identity.Identity{ID: id, Email: id + "@example.com"} }

func TestVoteOncePerTarget(t *testing.T) {
	ctx := context.Background()
	em := &countingEmitter{}
	votes := NewVotes(repository.NewVoteRepo(dbtest.New(t)), em, discard())

	require.NoError(t, votes.Vote(ctx, voter("a"), "rio-texaco"))
	assert.ErrorIs(t, votes.Vote(ctx, voter("a"), "rio-texaco"), ErrAlreadyVoted)
	require.NoError(t, votes.Vote(ctx, voter("a"), "verse-hotel"))
	require.NoError(t, votes.Vote(ctx, voter("b"), "rio-texaco"))
	assert.ErrorIs(t, votes.Vote(ctx, voter("a"), "atlantis"), ErrUnknownTarget)

	n, err := votes.Tally(ctx, "rio-texaco")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	has, err := votes.HasVoted(ctx, "a", "verse-hotel")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = votes.HasVoted(ctx, "b", "verse-hotel")
	require.NoError(t, err)
	assert.False(t, has)

	all, err := votes.Tallies(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "verse-hotel", all[0].ID)
	assert.EqualValues(t, 1, all[0].Votes)
	assert.EqualValues(t, 0, all[1].Votes)
	assert.EqualValues(t, 2, all[2].Votes)

	assert.Equal(t, 3, em.n[queue.SheetLandVotes])
}

func TestConcurrentDuplicateVotesCountOnce(t *testing.T) {
	ctx := context.Background()
	store := repository.NewVoteRepo(dbtest.New(t))
	votes := NewVotes(store, nil, discard())

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok, dupes int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := votes.Vote(ctx, voter("same"), "western-leone")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, ErrAlreadyVoted)
				dupes++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 5, dupes)

	tally, err := store.Tally(ctx, "western-leone")
	require.NoError(t, err)
	voters, err := store.CountVoters(ctx, "western-leone")
	require.NoError(t, err)
	assert.Equal(t, voters, tally)
}

func TestVotesDemoMode(t *testing.T) {
	votes := NewVotes(nil, nil, discard())
	assert.ErrorIs(t, votes.Vote(context.Background(), voter("a"), "rio-texaco"), ErrNotConfigured)
	n, err := votes.Tally(context.Background(), "rio-texaco")
	require.NoError(t, err)
	assert.Zero(t, n)
	all, err := votes.Tallies(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestIdeasSubmitAndToggle(t *testing.T) {
	ctx := context.Background()
	em := &countingEmitter{}
	ideas := NewIdeas(repository.NewIdeaRepo(dbtest.New(t)), em, discard())

	_, err := ideas.Submit(ctx, voter("u0"), NewIdea{Title: "  "})
	assert.ErrorIs(t, err, ErrInvalidIdea)

	idea, err := ideas.Submit(ctx, voter("u0"), NewIdea{Title: "Sombra de Lobo", Logline: "A man follows a pull."})
	require.NoError(t, err)
	assert.Equal(t, model.IdeaGathering, idea.Status)
	assert.EqualValues(t, DefaultSupportGoal, idea.SupportGoal)
	assert.Equal(t, "Western", idea.Genre)
	assert.Equal(t, 1, em.n[queue.SheetFilmIdeas])

	on, count, err := ideas.ToggleSupport(ctx, "u1", idea.ID)
	require.NoError(t, err)
	assert.True(t, on)
	assert.EqualValues(t, 1, count)

	on, count, err = ideas.ToggleSupport(ctx, "u1", idea.ID)
	require.NoError(t, err)
	assert.False(t, on)
	assert.EqualValues(t, 0, count)

	_, _, err = ideas.ToggleSupport(ctx, "u1", "nope")
	assert.ErrorIs(t, err, ErrIdeaNotFound)

	require.NoError(t, ideas.SetStatus(ctx, idea.ID, model.IdeaGreenlit))
	assert.ErrorIs(t, ideas.SetStatus(ctx, idea.ID, "shipped"), ErrInvalidStatus)
	assert.ErrorIs(t, ideas.SetStatus(ctx, "nope", model.IdeaGreenlit), ErrIdeaNotFound)

	ids, err := ideas.SupportedBy(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestApplyFilter(t *testing.T) {
	now := time.Now()
	list := []model.FilmIdea{
		{ID: "a", Title: "Dust", Genre: "Western", Status: "gathering", SupportCount: 10, SupportGoal: 1000, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "b", Title: "Ghost Town", Logline: "dust everywhere", Genre: "Mystery", Status: "greenlit", SupportCount: 50, SupportGoal: 100, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "c", Title: "Rail", Genre: "Western", Status: "gathering", SupportCount: 90, SupportGoal: 1000, CreatedAt: now.Add(-time.Hour)},
	}
	ids := func(in []model.FilmIdea) []string {
		var out []string
		for _, i := range in {
			out = append(out, i.ID)
		}
		return out
	}

	assert.Equal(t, []string{"c", "b", "a"}, ids(applyFilter(list, Filter{})))
	assert.Equal(t, []string{"c", "b", "a"}, ids(applyFilter(list, Filter{Sort: "popular"})))
	assert.Equal(t, []string{"b", "c", "a"}, ids(applyFilter(list, Filter{Sort: "closest"})))
	assert.Equal(t, []string{"b", "a"}, ids(applyFilter(list, Filter{Search: "DUST"})))
	assert.Equal(t, []string{"c", "a"}, ids(applyFilter(list, Filter{Genre: "Western"})))
	assert.Equal(t, []string{"b"}, ids(applyFilter(list, Filter{Status: "greenlit", Genre: "all"})))
}
