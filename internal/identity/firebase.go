package identity

import (
	"context"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

// idTokenVerifier is the part of *auth.Client the portal uses.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier validates Firebase ID tokens with the Admin SDK using
// Application Default Credentials.
type FirebaseVerifier struct {
	client idTokenVerifier
	logger *slog.Logger
}

// NewFirebaseVerifier initializes the Admin SDK for projectID.
func NewFirebaseVerifier(ctx context.Context, projectID string, logger *slog.Logger) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseVerifier{client: client, logger: logger}, nil
}

// Verify checks the token signature and expiry and maps the decoded token.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		v.logger.Debug("firebase token rejected", "err", err)
		return nil, ErrInvalidToken
	}
	return &Identity{
		ID:            tok.UID,
		Email:         stringClaim(tok.Claims, "email"),
		EmailVerified: boolClaim(tok.Claims, "email_verified"),
		Provider:      tok.Firebase.SignInProvider,
		Role:          stringClaim(tok.Claims, "role"),
	}, nil
}
