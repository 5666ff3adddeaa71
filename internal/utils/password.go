package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Password bounds for the local credential provider. bcrypt ignores
// everything past 72 bytes, so longer inputs are refused instead of truncated.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var ErrWeakPassword = errors.New("password must be between 8 and 72 bytes")

// CheckPassword enforces the length bounds.
func CheckPassword(plain string) error {
	if len(plain) < MinPasswordLength || len(plain) > MaxPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// HashPassword returns the bcrypt hash of plain. Out of range costs fall back
// to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if err := CheckPassword(plain); err != nil {
		return "", err
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash. An empty hash never matches.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
