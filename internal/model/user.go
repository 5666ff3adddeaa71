package model

import "time"

// User is a row of the local credential provider's `users` table.  It only
// exists when IDENTITY_PROVIDER=local; with Firebase the provider owns
// credentials and this table stays empty.
//
// Fields:
//
//	ID            – uuid, becomes Identity.ID and therefore Account.ID.
//	Email         – unique, lower-cased.
//	PasswordHash  – bcrypt hash.
//	Role          – MEMBER or ADMIN.
//	EmailVerified – set once the verification link is consumed.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	Role          string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Roles carried in identity tokens.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
