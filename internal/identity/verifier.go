package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/elpasoverse/portal/internal/config"
)

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// NewVerifier returns the verifier for the configured provider, or nil when
// no provider is configured (fallback mode).
func NewVerifier(ctx context.Context, cfg config.Config, logger *slog.Logger) (Verifier, error) {
	switch cfg.IdentityProvider {
	case config.ProviderLocal:
		return NewLocalVerifier(cfg.JWTSecret), nil
	case config.ProviderFirebase:
		v, err := NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, logger)
		if err != nil {
			return nil, err
		}
		return v, nil
	case config.ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.IdentityProvider)
	}
}

// LocalVerifier checks HS256 tokens issued by the local credential provider.
type LocalVerifier struct {
	secret []byte
}

func NewLocalVerifier(secret string) *LocalVerifier {
	return &LocalVerifier{secret: []byte(secret)}
}

// Verify parses raw and maps its claims to an Identity.
func (v *LocalVerifier) Verify(_ context.Context, raw string) (*Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{
		ID:            sub,
		Email:         stringClaim(claims, "email"),
		EmailVerified: boolClaim(claims, "email_verified"),
		Provider:      stringClaim(claims, "provider"),
		Role:          stringClaim(claims, "role"),
	}, nil
}

func stringClaim(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolClaim(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}
