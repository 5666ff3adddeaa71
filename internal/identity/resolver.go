package identity

import (
	"context"
	"time"
)

// Resolver opens a Gate per session and feeds it from a Verifier.
type Resolver struct {
	verifier Verifier
	timeout  time.Duration
}

// NewResolver wraps verifier, which may be nil when no provider is
// configured.  timeout bounds each verification.
func NewResolver(verifier Verifier, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{verifier: verifier, timeout: timeout}
}

// Configured reports whether an identity provider is available.
func (r *Resolver) Configured() bool { return r.verifier != nil }

// Open returns a gate for token.  Verification runs in the background and
// always publishes exactly once: the identity, or nil when the token is
// empty, invalid, or no provider is configured.
func (r *Resolver) Open(ctx context.Context, token string, mirror func(string), legacy string) *Gate {
	if r.verifier == nil {
		// fallback mode keeps whatever an earlier session mirrored
		g := NewGate(nil, legacy)
		g.Publish(nil)
		return g
	}
	// with a provider the mirrored id is never trusted as an identity
	g := NewGate(mirror, "")
	if token == "" {
		g.Publish(nil)
		return g
	}
	go func() {
		vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		id, err := r.verifier.Verify(vctx, token)
		if err != nil {
			id = nil
		}
		g.Publish(id)
	}()
	return g
}
