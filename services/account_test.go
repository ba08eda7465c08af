package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"scholar/apperr"
	"scholar/logger"
	"scholar/models"
)

func newAccounts(t *testing.T) (*Accounts, *Tokens) {
	t.Helper()
	db := newTestDB(t)
	return NewAccounts(db, bcrypt.MinCost, logger.NewNop()), NewTokens(db, "test-secret", time.Hour, 24*time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	accounts, _ := newAccounts(t)
	ctx := context.Background()

	user, err := accounts.Register(ctx, RegisterInput{Email: "  Ada@Example.com ", FullName: "Ada", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, user.Email, user.Username)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEqual(t, "s3cretpass", user.Password)

	_, err = accounts.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "another-pass"})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "email")

	_, err = accounts.Register(ctx, RegisterInput{Email: "x@example.com", Password: "another-pass", Role: "admin"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := accounts.Login(ctx, "ADA@example.com", "s3cretpass", "127.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotNil(t, got.LastLogin)

	history, total, err := accounts.LoginHistory(ctx, user.ID, NewPage(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, LoginMethodPassword, history[0].Method)

	_, err = accounts.Login(ctx, "nobody@example.com", "whatever", "", "")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestLoginBlocksAfterRepeatedFailures(t *testing.T) {
	accounts, _ := newAccounts(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	accounts.now = func() time.Time { return now }

	_, err := accounts.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	for i := 0; i < maxFailedLogins; i++ {
		_, err := accounts.Login(ctx, "ada@example.com", "wrong", "", "")
		require.Error(t, err)
	}
	_, err = accounts.Login(ctx, "ada@example.com", "s3cretpass", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temporarily blocked")

	now = now.Add(2 * loginBlockPeriod)
	_, err = accounts.Login(ctx, "ada@example.com", "s3cretpass", "", "")
	require.NoError(t, err)
}

func TestChangePasswordAndProfile(t *testing.T) {
	accounts, _ := newAccounts(t)
	ctx := context.Background()
	user, err := accounts.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	assert.ErrorIs(t, accounts.ChangePassword(ctx, user, "wrong", "newpassword"), apperr.ErrValidation)
	assert.ErrorIs(t, accounts.ChangePassword(ctx, user, "s3cretpass", "s3cretpass"), apperr.ErrValidation)
	require.NoError(t, accounts.ChangePassword(ctx, user, "s3cretpass", "newpassword"))

	_, err = accounts.Login(ctx, "ada@example.com", "newpassword", "", "")
	require.NoError(t, err)

	_, err = accounts.UpdateProfile(ctx, user, " A ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	updated, err := accounts.UpdateProfile(ctx, user, "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.FullName)
}

func TestSyncUserLinksOnlyOnce(t *testing.T) {
	accounts, _ := newAccounts(t)
	ctx := context.Background()
	meta := json.RawMessage(`{"name":"Ada Lovelace"}`)

	user, created, err := accounts.SyncUser(ctx, SyncInput{ExternalID: "sub-1", Email: "ada@example.com", Metadata: meta}, 30)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ada Lovelace", user.FullName)
	assert.Equal(t, "sub-1", user.Username)

	again, created, err := accounts.SyncUser(ctx, SyncInput{ExternalID: "sub-2", Email: "ada@example.com"}, 30)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
	require.NotNil(t, again.ExternalID)
	assert.Equal(t, "sub-1", *again.ExternalID)

	registered, err := accounts.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	linked, _, err := accounts.SyncUser(ctx, SyncInput{ExternalID: "sub-bob", Email: "bob@example.com", Metadata: meta}, 30)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, linked.ID)
	require.NotNil(t, linked.ExternalID)
	assert.Equal(t, "sub-bob", *linked.ExternalID)
}

func TestTokensRoundTripAndRevocation(t *testing.T) {
	accounts, tokens := newAccounts(t)
	ctx := context.Background()
	user, err := accounts.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	pair, err := tokens.Issue(user)
	require.NoError(t, err)
	assert.True(t, IsLocalToken(pair.Access))

	claims, err := tokens.VerifyAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	// a refresh token is not an access token
	_, err = tokens.VerifyAccess(pair.Refresh)
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	_, err = tokens.VerifyRefresh(ctx, pair.Refresh)
	require.NoError(t, err)
	require.NoError(t, tokens.Revoke(ctx, pair.Refresh))
	require.NoError(t, tokens.Revoke(ctx, pair.Refresh))
	_, err = tokens.VerifyRefresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	other := NewTokens(tokens.db, "other-secret", time.Hour, time.Hour)
	_, err = other.VerifyAccess(pair.Access)
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)
}

func TestTokensExpired(t *testing.T) {
	_, tokens := newAccounts(t)
	tokens.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	user := &models.User{Email: "ada@example.com"}
	user.ID = 7
	pair, err := tokens.Issue(user)
	require.NoError(t, err)

	_, err = tokens.VerifyAccess(pair.Access)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestAuthenticatorRoutesByAlgorithm(t *testing.T) {
	db := newTestDB(t)
	log := logger.NewNop()
	key := newRSAKey(t)
	accounts := NewAccounts(db, bcrypt.MinCost, log)
	tokens := NewTokens(db, "test-secret", time.Hour, time.Hour)
	auth := NewAuthenticator(accounts, tokens, NewIdentity(db, &key.PublicKey, 30, log))
	ctx := context.Background()

	local, err := accounts.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	pair, err := tokens.Issue(local)
	require.NoError(t, err)

	got, err := auth.Authenticate(ctx, "Bearer "+pair.Access)
	require.NoError(t, err)
	assert.Equal(t, local.ID, got.ID)

	external := signIdentityToken(t, key, jwt.MapClaims{"email": "new@example.com", "sub": "sub-new", "exp": time.Now().Add(time.Hour).Unix()})
	got, err = auth.Authenticate(ctx, "Bearer "+external)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)

	_, err = auth.Authenticate(ctx, "Basic abc")
	assert.ErrorIs(t, err, apperr.ErrMalformedHeader)

	require.NoError(t, db.Model(local).Update("is_active", false).Error)
	_, err = auth.Authenticate(ctx, "Bearer "+pair.Access)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
