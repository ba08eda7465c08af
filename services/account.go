package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"scholar/apperr"
	"scholar/logger"
	"scholar/models"
)

const (
	maxFailedLogins   = 3
	loginBlockPeriod  = time.Minute
	failedLoginWindow = 15 * time.Minute

	usernameColumnSize = 150
)

const (
	LoginMethodPassword = "password"
	LoginMethodIdentity = "identity"
)

var errInvalidCredentials = apperr.New(apperr.KindUnauthenticated, "Invalid credentials!", nil)

// Accounts manages local user accounts and password sign-in.
type Accounts struct {
	db        *gorm.DB
	saltRound int
	now       func() time.Time
	log       *logger.Logger
}

func NewAccounts(db *gorm.DB, saltRound int, log *logger.Logger) *Accounts {
	if saltRound < bcrypt.MinCost {
		saltRound = bcrypt.DefaultCost
	}
	return &Accounts{db: db, saltRound: saltRound, now: time.Now, log: log.With("service", "Accounts")}
}

type RegisterInput struct {
	Email    string
	FullName string
	Password string
	Role     string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameEmail compares two addresses after normalisation.
func SameEmail(a, b string) bool {
	return normalizeEmail(a) != "" && normalizeEmail(a) == normalizeEmail(b)
}

func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = models.RoleStudent
	}
	if role != models.RoleStudent && role != models.RoleInstructor {
		return nil, apperr.ValidationField("role", "must be student or instructor")
	}

	db := a.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, apperr.ValidationField("email", "Email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.saltRound)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Username: truncateRunes(email, usernameColumnSize),
		FullName: strings.TrimSpace(in.FullName),
		Role:     role,
		Password: string(hashed),
		IsActive: true,
	}
	if err := createAccount(db, user, email, usernameColumnSize); err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ValidationField("email", "Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	a.log.Info("User registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login checks the password and applies the failed-attempt block.
func (a *Accounts) Login(ctx context.Context, email, password, ip, device string) (*models.User, error) {
	db := a.db.WithContext(ctx)
	now := a.now()

	var user models.User
	err := db.Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.New(apperr.KindUnauthenticated, "Account is disabled!", nil)
	}
	if user.BlockedUntil != nil && user.BlockedUntil.After(now) {
		return nil, apperr.New(apperr.KindUnauthenticated, "Your account is temporarily blocked. Try again later.", nil)
	}
	if user.LastFailedLogin != nil && now.Sub(*user.LastFailedLogin) > failedLoginWindow {
		user.FailedLoginAttempts = 0
		user.LastFailedLogin = nil
	}

	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		user.FailedLoginAttempts++
		user.LastFailedLogin = &now
		if user.FailedLoginAttempts >= maxFailedLogins {
			until := now.Add(loginBlockPeriod)
			user.BlockedUntil = &until
			a.log.Warn("Account blocked after failed logins", "user_id", user.ID)
		}
		if err := db.Model(&user).Select("failed_login_attempts", "last_failed_login", "blocked_until").Updates(&user).Error; err != nil {
			a.log.Error("Error saving failed login", "user_id", user.ID, "error", err)
		}
		return nil, errInvalidCredentials
	}

	user.LastLogin = &now
	user.FailedLoginAttempts = 0
	user.LastFailedLogin = nil
	user.BlockedUntil = nil
	if err := db.Model(&user).Select("last_login", "failed_login_attempts", "last_failed_login", "blocked_until").Updates(&user).Error; err != nil {
		a.log.Error("Error saving last login time", "user_id", user.ID, "error", err)
	}
	a.RecordLogin(ctx, user.ID, LoginMethodPassword, ip, device)
	return &user, nil
}

// RecordLogin stores a LoginTracking row. Failures are logged only.
func (a *Accounts) RecordLogin(ctx context.Context, userID uint, method, ip, device string) {
	entry := models.LoginTracking{
		UserID:    userID,
		Method:    method,
		IPAddress: ip,
		Device:    device,
		Timestamp: a.now(),
	}
	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		a.log.Error("Error saving login tracking details", "user_id", userID, "error", err)
	}
}

// LoginHistory pages through the user's sign-ins, newest first.
func (a *Accounts) LoginHistory(ctx context.Context, userID uint, page Page) ([]models.LoginTracking, int64, error) {
	db := a.db.WithContext(ctx).Model(&models.LoginTracking{}).Where("user_id = ?", userID)
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.LoginTracking
	err := db.Order("timestamp DESC").Offset(page.Offset()).Limit(page.Limit).Find(&entries).Error
	return entries, total, err
}

// Active loads an account that may authenticate.
func (a *Accounts) Active(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.ErrUnauthenticated
	}
	return &user, nil
}

func (a *Accounts) UpdateProfile(ctx context.Context, user *models.User, fullName string) (*models.User, error) {
	fullName = strings.TrimSpace(fullName)
	if len([]rune(fullName)) < 2 {
		return nil, apperr.ValidationField("full_name", "must be at least 2 characters")
	}
	if err := a.db.WithContext(ctx).Model(user).Update("full_name", fullName).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	user.FullName = fullName
	return user, nil
}

func (a *Accounts) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return apperr.ValidationField("old_password", "Wrong password")
	}
	if oldPassword == newPassword {
		return apperr.ValidationField("new_password", "must differ from the old password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.saltRound)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := a.db.WithContext(ctx).Model(user).Update("password", string(hashed)).Error; err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	user.Password = string(hashed)
	a.log.Info("Password changed", "user_id", user.ID)
	return nil
}

type SyncInput struct {
	ExternalID string
	Email      string
	Metadata   json.RawMessage
}

// SyncUser get-or-creates the account for an identity provider user. The
// external id and metadata are linked only when the account has none yet.
func (a *Accounts) SyncUser(ctx context.Context, in SyncInput, usernameMaxLen int) (*models.User, bool, error) {
	db := a.db.WithContext(ctx)
	email := normalizeEmail(in.Email)

	var meta struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	}
	if len(in.Metadata) > 0 {
		_ = json.Unmarshal(in.Metadata, &meta)
	}
	fullName := meta.Name
	if fullName == "" {
		fullName = meta.FullName
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err == nil {
		updates := map[string]interface{}{}
		if user.ExternalID == nil && in.ExternalID != "" {
			updates["external_id"] = in.ExternalID
			user.ExternalID = &in.ExternalID
		}
		if len(user.Metadata) == 0 && len(in.Metadata) > 0 {
			updates["metadata"] = datatypes.JSON(in.Metadata)
			user.Metadata = datatypes.JSON(in.Metadata)
		}
		if len(updates) > 0 {
			if err := db.Model(&user).Updates(updates).Error; err != nil {
				return nil, false, fmt.Errorf("link account: %w", err)
			}
		}
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load user: %w", err)
	}

	username, seed, maxLen := truncateRunes(email, usernameColumnSize), email, usernameColumnSize
	if in.ExternalID != "" {
		username, seed, maxLen = truncateRunes(in.ExternalID, usernameMaxLen), in.ExternalID, usernameMaxLen
	}
	user = models.User{
		Email:    email,
		Username: username,
		FullName: fullName,
		Role:     models.RoleStudent,
		IsActive: true,
	}
	if in.ExternalID != "" {
		externalID := in.ExternalID
		user.ExternalID = &externalID
	}
	if len(in.Metadata) > 0 {
		user.Metadata = datatypes.JSON(in.Metadata)
	}
	if err := createAccount(db, &user, seed, maxLen); err != nil {
		if isUniqueViolation(err) {
			var existing models.User
			if lookupErr := db.Where("email = ?", email).First(&existing).Error; lookupErr == nil {
				return &existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	identityProvisioned.Inc()
	a.log.Info("User synced from identity provider", "user_id", user.ID)
	return &user, true, nil
}
