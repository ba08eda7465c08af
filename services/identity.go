package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"scholar/apperr"
	"scholar/logger"
	"scholar/models"
)

// IdentityClaims are the claims read from an external identity token. The
// audience claim is carried but not checked.
type IdentityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity verifies RS256 tokens from the external identity provider and maps
// them to local accounts, creating one on first sight.
type Identity struct {
	db             *gorm.DB
	publicKey      *rsa.PublicKey
	usernameMaxLen int
	log            *logger.Logger
}

func NewIdentity(db *gorm.DB, publicKey *rsa.PublicKey, usernameMaxLen int, log *logger.Logger) *Identity {
	if usernameMaxLen <= 0 {
		usernameMaxLen = 30
	}
	return &Identity{db: db, publicKey: publicKey, usernameMaxLen: usernameMaxLen, log: log.With("service", "Identity")}
}

// ParsePublicKey reads a PEM encoded RSA public key.
func ParsePublicKey(pemText string) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemText))
	if err != nil {
		return nil, fmt.Errorf("parse identity public key: %w", err)
	}
	return key, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", apperr.ErrMalformedHeader
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", apperr.ErrMalformedHeader
	}
	return token, nil
}

func (i *Identity) Configured() bool {
	return i.publicKey != nil
}

// Verify checks signature and expiry and requires the email and sub claims.
func (i *Identity) Verify(token string) (*IdentityClaims, error) {
	if i.publicKey == nil {
		return nil, apperr.Wrap(apperr.ErrInvalidSignature, errors.New("identity public key not configured"))
	}
	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return nil, tokenError(err)
	}
	if claims.Email == "" || claims.Subject == "" {
		return nil, apperr.Wrap(apperr.ErrInvalidSignature, errors.New("token lacks email or sub claim"))
	}
	return claims, nil
}

// ResolveAccount returns the account matching the token email, creating it if
// needed. created reports whether this call provisioned the account. Concurrent
// first requests for one email converge on a single account.
func (i *Identity) ResolveAccount(ctx context.Context, claims *IdentityClaims) (user *models.User, created bool, err error) {
	db := i.db.WithContext(ctx)
	email := normalizeEmail(claims.Email)

	user, err = i.byEmail(db, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load account: %w", err)
	}

	subject := claims.Subject
	user = &models.User{
		Email:      email,
		Username:   truncateRunes(subject, i.usernameMaxLen),
		ExternalID: &subject,
		Role:       models.RoleStudent,
		IsActive:   true,
	}
	if err := createAccount(db, user, subject, i.usernameMaxLen); err != nil {
		if isUniqueViolation(err) {
			if existing, lookupErr := i.byEmail(db, email); lookupErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("provision account: %w", err)
	}

	identityProvisioned.Inc()
	i.log.Info("Provisioned account from identity token", "user_id", user.ID, "email", user.Email)
	return user, true, nil
}

// Authenticate verifies the bearer header and resolves the account.
func (i *Identity) Authenticate(ctx context.Context, header string) (*models.User, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	claims, err := i.Verify(token)
	if err != nil {
		return nil, err
	}
	user, _, err := i.ResolveAccount(ctx, claims)
	return user, err
}

func (i *Identity) byEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// createAccount inserts user. Usernames are derived and not chosen by the
// caller, so a collision on the username alone is retried with a suffixed one.
// Any other unique violation is returned as is.
func createAccount(db *gorm.DB, user *models.User, seed string, maxLen int) error {
	for attempt := 0; ; attempt++ {
		err := db.Create(user).Error
		if err == nil || !isUniqueViolation(err) || attempt >= 2 {
			return err
		}
		if exists(db, "email", user.Email) || !exists(db, "username", user.Username) {
			return err
		}
		user.ID = 0
		user.Username = disambiguateUsername(seed, maxLen)
	}
}

func exists(db *gorm.DB, column, value string) bool {
	var count int64
	if err := db.Unscoped().Model(&models.User{}).Where(column+" = ?", value).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// disambiguateUsername keeps as much of the subject as fits next to a short
// random suffix.
func disambiguateUsername(subject string, max int) string {
	suffix := "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	if max <= len(suffix) {
		return suffix[len(suffix)-max:]
	}
	return truncateRunes(subject, max-len(suffix)) + suffix
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
