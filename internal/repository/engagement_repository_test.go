package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasoverse/portal/internal/database/dbtest"
	"github.com/elpasoverse/portal/internal/model"
	"github.com/elpasoverse/portal/internal/repository"
)

func TestVoteAddKeepsCounterEqualToVoters(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewVoteRepo(dbtest.New(t))
	now := time.Now()

	var wg sync.WaitGroup
	for _, voter := range []string{"a", "b", "c", "a", "b"} {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			_, err := repo.Add(ctx, "verse-hotel", v, now)
			assert.NoError(t, err)
		}(voter)
	}
	wg.Wait()

	tally, err := repo.Tally(ctx, "verse-hotel")
	require.NoError(t, err)
	voters, err := repo.CountVoters(ctx, "verse-hotel")
	require.NoError(t, err)
	assert.EqualValues(t, 3, tally)
	assert.Equal(t, voters, tally)

	added, err := repo.Add(ctx, "verse-hotel", "a", now)
	require.NoError(t, err)
	assert.False(t, added)

	has, err := repo.Has(ctx, "verse-hotel", "c")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = repo.Has(ctx, "rio-texaco", "c")
	require.NoError(t, err)
	assert.False(t, has)

	n, err := repo.Tally(ctx, "rio-texaco")
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := repo.Tallies(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"verse-hotel": 3}, all)
}

func TestIdeaToggleSupport(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewIdeaRepo(dbtest.New(t))
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, model.FilmIdea{
		ID: "i1", Title: "Dust", SubmitterID: "u0", Status: model.IdeaGathering, SupportGoal: 1000, CreatedAt: now,
	}))

	supported, count, err := repo.ToggleSupport(ctx, "i1", "u1", now)
	require.NoError(t, err)
	assert.True(t, supported)
	assert.EqualValues(t, 1, count)

	_, count, err = repo.ToggleSupport(ctx, "i1", "u2", now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	supported, count, err = repo.ToggleSupport(ctx, "i1", "u1", now)
	require.NoError(t, err)
	assert.False(t, supported)
	assert.EqualValues(t, 1, count)

	ids, err := repo.SupportedBy(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, ids)

	_, _, err = repo.ToggleSupport(ctx, "missing", "u1", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	idea, err := repo.Get(ctx, "i1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, idea.SupportCount)
	assert.Nil(t, idea.ImageURL)
}

func TestIdeaListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewIdeaRepo(dbtest.New(t))
	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, repo.Create(ctx, model.FilmIdea{
			ID: id, Title: id, SubmitterID: "u", Status: model.IdeaGathering, SupportGoal: 1000,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "mid", list[1].ID)

	err = repo.Create(ctx, model.FilmIdea{ID: "new", Title: "dup", SubmitterID: "u", CreatedAt: base})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestSignupAttemptWindow(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSignupAttemptRepo(dbtest.New(t))
	now := time.Now().UTC()
	for i, at := range []time.Time{now.Add(-25 * time.Hour), now.Add(-2 * time.Hour), now.Add(-time.Minute)} {
		require.NoError(t, repo.Insert(ctx, model.SignupAttempt{
			ID: string(rune('a' + i)), IP: "10.0.0.1", Email: "x@example.com", Timestamp: at,
		}))
	}
	require.NoError(t, repo.Insert(ctx, model.SignupAttempt{ID: "z", IP: "10.0.0.2", Timestamp: now}))

	n, err := repo.CountSince(ctx, "10.0.0.1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
