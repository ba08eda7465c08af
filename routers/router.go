package routers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"scholar/config"
	authController "scholar/controllers/auth"
	certificateController "scholar/controllers/certificate"
	courseController "scholar/controllers/course"
	enrollmentController "scholar/controllers/enrollment"
	progressController "scholar/controllers/progress"
	"scholar/logger"
	"scholar/middleware"
	"scholar/models"
	"scholar/routers/authRoutes"
	"scholar/routers/certificateRoutes"
	"scholar/routers/courseRoutes"
	"scholar/routers/enrollmentRoutes"
	"scholar/routers/progressRoutes"
	"scholar/services"
)

type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Services *services.Container
	Log      *logger.Logger
}

// NewSessionStore keeps server-side sessions keyed by an http-only cookie.
func NewSessionStore(cfg *config.Config) *session.Store {
	return session.New(session.Config{
		Expiration:     cfg.SessionTTL,
		KeyLookup:      "cookie:" + cfg.SessionCookieName,
		CookieHTTPOnly: true,
		CookieSecure:   cfg.IsProduction(),
		CookieSameSite: "Lax",
	})
}

func NewApp(deps Deps) *fiber.App {
	cfg := deps.Config

	app := fiber.New(fiber.Config{
		AppName:      "scholar",
		ErrorHandler: middleware.ErrorHandler(deps.Log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CorsOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: cfg.CorsOrigins != "*" && !strings.Contains(cfg.CorsOrigins, "*"),
	}))
	app.Use(middleware.Logging(deps.Log))
	app.Use(middleware.Deadline(cfg.RequestTimeout))

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			deps.Log.Error("Health check failed", "error", err)
			return middleware.JsonResponse(c, fiber.StatusServiceUnavailable, false, "Database unavailable!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "OK", nil)
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	sessions := NewSessionStore(cfg)
	authenticate := middleware.Authenticate(deps.Services.Authenticator, sessions)
	instructor := middleware.RequireRole(models.RoleInstructor)

	api := app.Group("/api")
	authRoutes.SetupAuthRoutes(api, authController.New(deps.Services, sessions), authenticate)
	courseRoutes.SetupCourseRoutes(api, courseController.New(deps.Services), authenticate, instructor)
	enrollmentRoutes.SetupEnrollmentRoutes(api, enrollmentController.New(deps.Services), authenticate)
	progressRoutes.SetupProgressRoutes(api, progressController.New(deps.Services), authenticate)
	certificateRoutes.SetupCertificateRoutes(api, certificateController.New(deps.Services), authenticate)

	app.Use(func(c *fiber.Ctx) error {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Route not found!", nil)
	})
	return app
}
