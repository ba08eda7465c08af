package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholar/apperr"
	"scholar/logger"
	"scholar/models"
)

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signIdentityToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func identityClaims(email, sub string, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"email": email,
		"sub":   sub,
		"aud":   "some-other-audience",
		"exp":   exp.Unix(),
	}
}

func TestParsePublicKey(t *testing.T) {
	key := newRSAKey(t)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemText := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	parsed, err := ParsePublicKey(pemText)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.N, parsed.N)

	_, err = ParsePublicKey("not a key")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	for _, header := range []string{"", "Bearer", "Bearer ", "Token abc", "abc.def.ghi"} {
		_, err := BearerToken(header)
		assert.ErrorIs(t, err, apperr.ErrMalformedHeader, header)
	}
}

func TestIdentityVerify(t *testing.T) {
	key := newRSAKey(t)
	other := newRSAKey(t)
	id := NewIdentity(newTestDB(t), &key.PublicKey, 30, logger.NewNop())
	future := time.Now().Add(time.Hour)

	claims, err := id.Verify(signIdentityToken(t, key, identityClaims("ada@example.com", "sub-1", future)))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "sub-1", claims.Subject)

	_, err = id.Verify(signIdentityToken(t, key, identityClaims("ada@example.com", "sub-1", time.Now().Add(-time.Minute))))
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)

	_, err = id.Verify(signIdentityToken(t, other, identityClaims("ada@example.com", "sub-1", future)))
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	_, err = id.Verify(signIdentityToken(t, key, jwt.MapClaims{"sub": "sub-1", "exp": future.Unix()}))
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	_, err = id.Verify("garbage")
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	// HS256 must not be accepted on the RS256 path
	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, identityClaims("ada@example.com", "sub-1", future)).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = id.Verify(hs)
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	for _, err := range []error{apperr.ErrTokenExpired, apperr.ErrInvalidSignature, apperr.ErrMalformedHeader} {
		assert.True(t, apperr.IsAuthFailure(err))
	}
}

func TestIdentityResolveAccountCreatesOnce(t *testing.T) {
	db := newTestDB(t)
	id := NewIdentity(db, nil, 30, logger.NewNop())
	ctx := context.Background()
	sub := strings.Repeat("x", 36)
	claims := &IdentityClaims{Email: "ada@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}

	first, created, err := id.ResolveAccount(ctx, claims)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, first.Username, 30)
	require.NotNil(t, first.ExternalID)
	assert.Equal(t, sub, *first.ExternalID)
	assert.Equal(t, models.RoleStudent, first.Role)

	second, created, err := id.ResolveAccount(ctx, claims)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestIdentityResolveAccountExistingEmail(t *testing.T) {
	db := newTestDB(t)
	existing := &models.User{Email: "ada@example.com", Username: "ada", Role: models.RoleInstructor, IsActive: true}
	require.NoError(t, db.Create(existing).Error)

	id := NewIdentity(db, nil, 30, logger.NewNop())
	got, created, err := id.ResolveAccount(context.Background(), &IdentityClaims{
		Email:            "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-ada"},
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, got.ID)
	assert.Nil(t, got.ExternalID)
}

func TestIdentityResolveAccountConcurrent(t *testing.T) {
	db := newTestDB(t)
	id := NewIdentity(db, nil, 30, logger.NewNop())
	claims := &IdentityClaims{Email: "ada@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-ada"}}

	const n = 6
	ids := make(chan uint, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, _, err := id.ResolveAccount(context.Background(), claims)
			if assert.NoError(t, err) {
				ids <- user.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uint]bool{}
	for uid := range ids {
		seen[uid] = true
	}
	assert.Len(t, seen, 1)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestIdentityWithoutKeyRejects(t *testing.T) {
	id := NewIdentity(newTestDB(t), nil, 30, logger.NewNop())
	assert.False(t, id.Configured())
	_, err := id.Authenticate(context.Background(), "Bearer a.b.c")
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)
}

func TestIdentityResolveAccountUsernameCollision(t *testing.T) {
	db := newTestDB(t)
	id := NewIdentity(db, nil, 30, logger.NewNop())
	ctx := context.Background()
	prefix := strings.Repeat("p", 30)

	first, created, err := id.ResolveAccount(ctx, &IdentityClaims{
		Email:            "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: prefix + "AAAA"},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, prefix, first.Username)

	second, created, err := id.ResolveAccount(ctx, &IdentityClaims{
		Email:            "b@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: prefix + "BBBB"},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Username, second.Username)
	assert.LessOrEqual(t, len([]rune(second.Username)), 30)
	assert.True(t, strings.HasPrefix(second.Username, strings.Repeat("p", 23)))
	require.NotNil(t, second.ExternalID)
	assert.Equal(t, prefix+"BBBB", *second.ExternalID)
}

func TestIdentityResolveAccountSubjectMatchesExistingUsername(t *testing.T) {
	db := newTestDB(t)
	registered := &models.User{Email: "x@y.io", Username: "x@y.io", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, db.Create(registered).Error)

	id := NewIdentity(db, nil, 30, logger.NewNop())
	got, created, err := id.ResolveAccount(context.Background(), &IdentityClaims{
		Email:            "someone@else.io",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x@y.io"},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, registered.ID, got.ID)
	assert.Equal(t, "someone@else.io", got.Email)
	assert.True(t, strings.HasPrefix(got.Username, "x@y.io-"))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestDisambiguateUsernameFitsLimit(t *testing.T) {
	got := disambiguateUsername(strings.Repeat("é", 40), 30)
	assert.Len(t, []rune(got), 30)
	assert.Len(t, disambiguateUsername("sub", 4), 4)
	assert.Equal(t, "sub-", disambiguateUsername("sub", 30)[:4])
}
