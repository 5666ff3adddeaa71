package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/elpasoverse/portal/internal/database/dbtest"
	"github.com/elpasoverse/portal/internal/model"
	"github.com/elpasoverse/portal/internal/repository"
	"github.com/elpasoverse/portal/internal/utils"
)

func TestUserCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepo(dbtest.New(t))

	u, err := users.Create(ctx, " Ana@Example.com ", "hunter22", model.RoleMember, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "hunter22"))

	_, err = users.Create(ctx, "ana@example.com", "otherpass", model.RoleMember, bcrypt.MinCost)
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	got, err := users.GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.EmailVerified)

	require.NoError(t, users.MarkVerified(ctx, u.ID))
	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)

	_, err = users.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	tokens := repository.NewTokenRepo(dbtest.New(t))

	require.NoError(t, tokens.StoreRefresh(ctx, "u1", "h1", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, "u1", "h2", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, "u1", "expired", time.Now().Add(-time.Hour)))

	uid, err := tokens.ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = tokens.ValidateRefresh(ctx, "expired")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, tokens.RevokeByHash(ctx, "h1"))
	_, err = tokens.ValidateRefresh(ctx, "h1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, tokens.RevokeAllForUser(ctx, "u1"))
	_, err = tokens.ValidateRefresh(ctx, "h2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestVerificationTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	tokens := repository.NewTokenRepo(dbtest.New(t))
	require.NoError(t, tokens.StoreVerification(ctx, "u1", "v1", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreVerification(ctx, "u1", "old", time.Now().Add(-time.Minute)))

	uid, err := tokens.ConsumeVerification(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = tokens.ConsumeVerification(ctx, "v1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = tokens.ConsumeVerification(ctx, "old")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
