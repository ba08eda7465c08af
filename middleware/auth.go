package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"scholar/apperr"
	"scholar/models"
)

const (
	SessionUserKey = "userId"
	userKey        = "user"
)

// Authenticator resolves request credentials to an account.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*models.User, error)
	Session(ctx context.Context, userID uint) (*models.User, error)
}

// Authenticate accepts, in order: a server-side session, a local access token,
// an external identity token. The account is stored in Locals.
func Authenticate(auth Authenticator, sessions *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if sessions != nil {
			if sess, err := sessions.Get(c); err == nil {
				if id, ok := sess.Get(SessionUserKey).(uint); ok && id > 0 {
					if user, err := auth.Session(ctx, id); err == nil {
						setUser(c, user)
						return c.Next()
					}
				}
			}
		}

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return ErrorResponse(c, apperr.ErrMalformedHeader)
		}
		user, err := auth.Authenticate(ctx, header)
		if err != nil {
			return ErrorResponse(c, err)
		}
		setUser(c, user)
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, user *models.User) {
	c.Locals(userKey, user)
	c.Locals("userId", user.ID)
}

// CurrentUser returns the account set by Authenticate, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}
