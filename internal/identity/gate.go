package identity

import (
	"context"
	"sync"
)

// Gate publishes the identity of one session.  The provider pushes changes
// with Publish; the first push marks the gate ready and releases every
// waiter at once, later waiters return immediately from the cached value.
type Gate struct {
	ready  chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	cur    *Identity
	mirror func(id string)
	legacy string
}

// NewGate returns a gate that is not ready yet.  mirror, when non-nil, is
// called with the identity id (empty on sign-out) on every change; legacy is
// the id a previous session mirrored, if any.
func NewGate(mirror func(id string), legacy string) *Gate {
	return &Gate{ready: make(chan struct{}), mirror: mirror, legacy: legacy}
}

// Publish records an identity change.  nil means signed out.
func (g *Gate) Publish(id *Identity) {
	g.mu.Lock()
	g.cur = id
	g.mu.Unlock()

	if g.mirror != nil {
		if id != nil {
			g.mirror(id.ID)
		} else {
			g.mirror("")
		}
	}
	g.once.Do(func() { close(g.ready) })
}

// Current returns the last published identity without waiting.  It is nil
// before the gate is ready.
func (g *Gate) Current() *Identity {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cur
}

// AwaitReady blocks until the gate is ready and reports whether an identity
// is present.  It returns false if ctx ends first.
func (g *Gate) AwaitReady(ctx context.Context) bool {
	select {
	case <-g.ready:
		return g.Current() != nil
	case <-ctx.Done():
		return false
	}
}

// LegacyID is the identity id mirrored by an earlier session.  Resolver
// only sets it in fallback mode, when no identity provider is configured.
func (g *Gate) LegacyID() string { return g.legacy }
