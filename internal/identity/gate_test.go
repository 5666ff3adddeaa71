package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateReleasesEarlyAndLateWaitersOnce(t *testing.T) {
	g := NewGate(nil, "")
	assert.Nil(t, g.Current())

	const waiters = 16
	results := make(chan bool, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- g.AwaitReady(context.Background())
		}()
	}

	g.Publish(&Identity{ID: "u1"})
	wg.Wait()
	close(results)
	n := 0
	for ok := range results {
		assert.True(t, ok)
		n++
	}
	assert.Equal(t, waiters, n)

	// late waiter resolves immediately from the cached value
	assert.True(t, g.AwaitReady(context.Background()))

	// further pushes update Current without re-closing the channel
	g.Publish(nil)
	assert.Nil(t, g.Current())
	assert.False(t, g.AwaitReady(context.Background()))
}

func TestGateAwaitReadyHonorsContext(t *testing.T) {
	g := NewGate(nil, "")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, g.AwaitReady(ctx))
}

func TestGateMirrorsEveryChange(t *testing.T) {
	var seen []string
	g := NewGate(func(id string) { seen = append(seen, id) }, "old")
	g.Publish(&Identity{ID: "u1"})
	g.Publish(&Identity{ID: "u2"})
	g.Publish(nil)
	assert.Equal(t, []string{"u1", "u2", ""}, seen)
	assert.Equal(t, "old", g.LegacyID())
}

func TestVerifiedTreatsGoogleAsVerified(t *testing.T) {
	var none *Identity
	assert.False(t, none.Verified())
	assert.False(t, (&Identity{Provider: ProviderPassword}).Verified())
	assert.True(t, (&Identity{Provider: ProviderPassword, EmailVerified: true}).Verified())
	assert.True(t, (&Identity{Provider: ProviderGoogle}).Verified())
}

type stubVerifier struct {
	id  *Identity
	err error
}

func (s stubVerifier) Verify(context.Context, string) (*Identity, error) { return s.id, s.err }

func TestResolverWithoutProviderIsReadyWithNil(t *testing.T) {
	mirrored := false
	r := NewResolver(nil, time.Second)
	assert.False(t, r.Configured())
	g := r.Open(context.Background(), "whatever", func(string) { mirrored = true }, "legacy-uid")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	assert.False(t, g.AwaitReady(ctx))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Nil(t, g.Current())
	assert.False(t, mirrored)
	assert.Equal(t, "legacy-uid", g.LegacyID())
}

func TestResolverPublishesVerifiedIdentity(t *testing.T) {
	r := NewResolver(stubVerifier{id: &Identity{ID: "u1", Provider: ProviderGoogle}}, time.Second)
	g := r.Open(context.Background(), "tok", nil, "")
	require.True(t, g.AwaitReady(context.Background()))
	assert.Equal(t, "u1", g.Current().ID)

	r = NewResolver(stubVerifier{err: ErrInvalidToken}, time.Second)
	g = r.Open(context.Background(), "tok", nil, "")
	assert.False(t, g.AwaitReady(context.Background()))
}

func TestResolverWithProviderIgnoresLegacyID(t *testing.T) {
	r := NewResolver(stubVerifier{err: ErrInvalidToken}, time.Second)
	g := r.Open(context.Background(), "", nil, "legacy-uid")
	assert.False(t, g.AwaitReady(context.Background()))
	assert.Empty(t, g.LegacyID())
}
