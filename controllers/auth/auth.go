package authController

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"scholar/apperr"
	"scholar/middleware"
	"scholar/models"
	"scholar/services"
	"scholar/validators"
	authValidator "scholar/validators/auth"
)

type Controller struct {
	svc      *services.Container
	sessions *session.Store
}

func New(svc *services.Container, sessions *session.Store) *Controller {
	return &Controller{svc: svc, sessions: sessions}
}

func userData(user *models.User, tokens *services.TokenPair) fiber.Map {
	return fiber.Map{"user": user, "tokens": tokens}
}

func (h *Controller) Register(c *fiber.Ctx) error {
	reqData := c.Locals(authValidator.RegisterKey).(*authValidator.RegisterRequest)

	user, err := h.svc.Accounts.Register(c.UserContext(), services.RegisterInput{
		Email:    reqData.Email,
		FullName: reqData.FullName,
		Password: reqData.Password,
		Role:     reqData.Role,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	tokens, err := h.svc.Tokens.Issue(user)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "User registered successfully.", userData(user, tokens))
}

func (h *Controller) Login(c *fiber.Ctx) error {
	reqData := c.Locals(authValidator.LoginKey).(*authValidator.LoginRequest)

	user, err := h.svc.Accounts.Login(c.UserContext(), reqData.Email, reqData.Password, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		// sign-in failures keep their own message
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindUnauthenticated {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, appErr.Message, nil)
		}
		return middleware.ErrorResponse(c, err)
	}
	tokens, err := h.svc.Tokens.Issue(user)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	if sess, err := h.sessions.Get(c); err == nil {
		sess.Set(middleware.SessionUserKey, user.ID)
		if err := sess.Save(); err != nil {
			middleware.RequestLogger(c).Warn("Error saving session", "user_id", user.ID, "error", err)
		}
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful.", userData(user, tokens))
}

func (h *Controller) Refresh(c *fiber.Ctx) error {
	reqData := c.Locals(authValidator.RefreshKey).(*authValidator.RefreshRequest)
	ctx := c.UserContext()

	claims, err := h.svc.Tokens.VerifyRefresh(ctx, reqData.Refresh)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	user, err := h.svc.Accounts.Active(ctx, claims.UserID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	tokens, err := h.svc.Tokens.Issue(user)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Token refreshed.", fiber.Map{"access": tokens.Access})
}

func (h *Controller) Logout(c *fiber.Ctx) error {
	reqData := c.Locals(authValidator.LogoutKey).(*authValidator.LogoutRequest)

	if reqData.Refresh != "" {
		if err := h.svc.Tokens.Revoke(c.UserContext(), reqData.Refresh); err != nil {
			if apperr.IsAuthFailure(err) {
				return middleware.ValidationErrorResponse(c, map[string]string{"refresh": "Invalid token!"})
			}
			return middleware.ErrorResponse(c, err)
		}
	}
	if sess, err := h.sessions.Get(c); err == nil {
		if err := sess.Destroy(); err != nil {
			middleware.RequestLogger(c).Warn("Error destroying session", "error", err)
		}
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Logout successful.", nil)
}

func (h *Controller) Profile(c *fiber.Ctx) error {
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile fetched.", middleware.CurrentUser(c))
}

func (h *Controller) UpdateProfile(c *fiber.Ctx) error {
	reqData := c.Locals(authValidator.ProfileKey).(*authValidator.ProfileRequest)

	user, err := h.svc.Accounts.UpdateProfile(c.UserContext(), middleware.CurrentUser(c), reqData.FullName)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile updated successfully.", user)
}

func (h *Controller) ChangePassword(c *fiber.Ctx) error {
	reqData := c.Locals(authValidator.ChangePasswordKey).(*authValidator.ChangePasswordRequest)
	user := middleware.CurrentUser(c)

	if err := h.svc.Accounts.ChangePassword(c.UserContext(), user, reqData.OldPassword, reqData.NewPassword); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	tokens, err := h.svc.Tokens.Issue(user)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Password changed successfully.", fiber.Map{"tokens": tokens})
}

// Me reports the account behind the current credentials.
func (h *Controller) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Authenticated.", fiber.Map{
		"user_id":       user.ID,
		"email":         user.Email,
		"username":      user.Username,
		"role":          user.Role,
		"is_instructor": user.IsInstructor(),
	})
}

func (h *Controller) LoginHistory(c *fiber.Ctx) error {
	page := services.NewPage(validators.Page(c))

	entries, total, err := h.svc.Accounts.LoginHistory(c.UserContext(), middleware.CurrentUser(c).ID, page)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login history fetched.", fiber.Map{
		"total": total,
		"page":  page.Number,
		"limit": page.Limit,
		"items": entries,
	})
}

// SyncUser links an identity provider account. The caller must present a
// provider token for the same email.
func (h *Controller) SyncUser(c *fiber.Ctx) error {
	reqData := c.Locals(authValidator.SyncUserKey).(*authValidator.SyncUserRequest)
	ctx := c.UserContext()

	token, err := services.BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	claims, err := h.svc.Identity.Verify(token)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !services.SameEmail(claims.Email, reqData.Email) {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Token does not belong to this user!", nil)
	}

	user, created, err := h.svc.Accounts.SyncUser(ctx, services.SyncInput{
		ExternalID: reqData.ID,
		Email:      reqData.Email,
		Metadata:   reqData.UserMetadata,
	}, h.svc.UsernameMaxLen)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !user.IsActive {
		return middleware.ErrorResponse(c, apperr.ErrUnauthenticated)
	}
	tokens, err := h.svc.Tokens.Issue(user)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return middleware.JsonResponse(c, status, true, "User synced.", fiber.Map{
		"created": created,
		"user_id": user.ID,
		"email":   user.Email,
		"token":   tokens.Access,
	})
}
