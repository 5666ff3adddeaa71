// Package identity resolves the caller of a request into an Identity and
// hands it out through a Gate.  Identities are issued by an external provider
// (Firebase) or by the local credential provider; the portal never stores
// them, it only reads them.
package identity

import "errors"

// Sign-in providers as reported in tokens.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google.com"
)

// ErrInvalidToken is returned by verifiers for malformed, expired or
// wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid identity token")

// Identity is an authenticated principal.  ID is stable and becomes the
// account id in the ledger.
type Identity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Provider      string `json:"provider"`
	Role          string `json:"role,omitempty"`
}

// Verified reports whether the identity may pass gated operations.  Google
// sign-ins count as verified regardless of the email_verified claim.
func (i *Identity) Verified() bool {
	if i == nil {
		return false
	}
	return i.EmailVerified || i.Provider == ProviderGoogle
}
