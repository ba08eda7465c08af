package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scholar/apperr"
	"scholar/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims are the claims of locally issued HS256 tokens.
type TokenClaims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Tokens issues and verifies the service's own access and refresh tokens.
// Refresh tokens can be revoked by jti.
type Tokens struct {
	db         *gorm.DB
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokens(db *gorm.DB, secret string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{
		db:         db,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IsLocalToken reports whether the token is signed with the local HMAC scheme.
// The signature is not checked here.
func IsLocalToken(token string) bool {
	parsed, _, err := new(jwt.Parser).ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	return parsed.Method.Alg() == jwt.SigningMethodHS256.Alg()
}

func (t *Tokens) Issue(user *models.User) (*TokenPair, error) {
	access, err := t.sign(user, TokenTypeAccess, t.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(user, TokenTypeRefresh, t.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (t *Tokens) sign(user *models.User, typ string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (t *Tokens) parse(token, typ string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, tokenError(err)
	}
	if claims.Type != typ || claims.UserID == 0 {
		return nil, apperr.Wrap(apperr.ErrInvalidSignature, fmt.Errorf("not a %s token", typ))
	}
	return claims, nil
}

// tokenError maps a jwt parse failure onto the auth error kinds.
func tokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperr.Wrap(apperr.ErrTokenExpired, err)
	}
	return apperr.Wrap(apperr.ErrInvalidSignature, err)
}

func (t *Tokens) VerifyAccess(token string) (*TokenClaims, error) {
	return t.parse(token, TokenTypeAccess)
}

// VerifyRefresh checks signature, expiry and the revocation list.
func (t *Tokens) VerifyRefresh(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := t.parse(token, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	var count int64
	err = t.db.WithContext(ctx).Model(&models.RevokedToken{}).Where("jti = ?", claims.ID).Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if count > 0 {
		return nil, apperr.New(apperr.KindUnauthenticated, "Token has been revoked", nil)
	}
	return claims, nil
}

// Revoke blacklists a refresh token. Revoking twice is not an error.
func (t *Tokens) Revoke(ctx context.Context, token string) error {
	claims, err := t.VerifyRefresh(ctx, token)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthenticated {
			return nil
		}
		return err
	}
	revoked := &models.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(revoked).Error
}

// PurgeRevoked drops revocation entries whose tokens have expired anyway.
func (t *Tokens) PurgeRevoked(ctx context.Context) (int64, error) {
	result := t.db.WithContext(ctx).Where("expires_at < ?", t.now()).Delete(&models.RevokedToken{})
	return result.RowsAffected, result.Error
}
