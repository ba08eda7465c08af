package authValidator

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"scholar/validators"
)

const (
	RegisterKey       = "validatedRegister"
	LoginKey          = "validatedLogin"
	RefreshKey        = "validatedRefresh"
	LogoutKey         = "validatedLogout"
	ProfileKey        = "validatedProfile"
	ChangePasswordKey = "validatedChangePassword"
	SyncUserKey       = "validatedSyncUser"
)

type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	FullName        string `json:"full_name" validate:"required,min=2,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,oneof=student instructor"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

type ProfileRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required,min=8,max=128,nefield=OldPassword"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

type SyncUserRequest struct {
	ID           string          `json:"id" validate:"required"`
	Email        string          `json:"email" validate:"required,email"`
	UserMetadata json.RawMessage `json:"user_metadata"`
}

func Register() fiber.Handler       { return validators.Body[RegisterRequest](RegisterKey) }
func Login() fiber.Handler          { return validators.Body[LoginRequest](LoginKey) }
func Refresh() fiber.Handler        { return validators.Body[RefreshRequest](RefreshKey) }
func Profile() fiber.Handler        { return validators.Body[ProfileRequest](ProfileKey) }
func ChangePassword() fiber.Handler { return validators.Body[ChangePasswordRequest](ChangePasswordKey) }
func SyncUser() fiber.Handler       { return validators.Body[SyncUserRequest](SyncUserKey) }

// Logout accepts an empty body; the refresh token is optional.
func Logout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(LogoutRequest)
		if len(c.Body()) > 0 {
			_ = c.BodyParser(reqData)
		}
		c.Locals(LogoutKey, reqData)
		return c.Next()
	}
}
