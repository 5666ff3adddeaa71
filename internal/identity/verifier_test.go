package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpasoverse/portal/internal/utils"
)

func TestLocalVerifierRoundTrip(t *testing.T) {
	tok, err := utils.NewAccessToken("secret", utils.AccessClaims{
		Subject: "u1", Email: "a@b.c", EmailVerified: true, Provider: ProviderPassword, Role: "ADMIN",
	}, 5)
	require.NoError(t, err)

	id, err := NewLocalVerifier("secret").Verify(context.Background(), tok.Token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{ID: "u1", Email: "a@b.c", EmailVerified: true, Provider: ProviderPassword, Role: "ADMIN"}, id)

	_, err = NewLocalVerifier("other").Verify(context.Background(), tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLocalVerifierRejectsExpiredAndForeignAlgorithms(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	raw, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = NewLocalVerifier("secret").Verify(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"})
	raw, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewLocalVerifier("secret").Verify(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type fakeFirebase struct {
	tok *auth.Token
	err error
}

func (f fakeFirebase) VerifyIDToken(context.Context, string) (*auth.Token, error) { return f.tok, f.err }

func TestFirebaseVerifierMapsToken(t *testing.T) {
	tok := &auth.Token{UID: "fb1", Claims: map[string]interface{}{"email": "x@y.z", "email_verified": false}}
	tok.Firebase.SignInProvider = ProviderGoogle
	v := &FirebaseVerifier{client: fakeFirebase{tok: tok}, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	id, err := v.Verify(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "fb1", id.ID)
	assert.Equal(t, "x@y.z", id.Email)
	assert.True(t, id.Verified())

	v.client = fakeFirebase{err: errors.New("expired")}
	_, err = v.Verify(context.Background(), "t")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
