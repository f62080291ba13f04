// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"time"

	"amafaranga/internal/handlers"
	"amafaranga/internal/middleware"
	"amafaranga/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Dependencies bundles everything the routes need.
type Dependencies struct {
	Auth        *handlers.AuthHandler
	Wallet      *handlers.WalletHandler
	Recipients  *handlers.RecipientHandler
	Transfers   *handlers.TransferHandler
	Settlements *handlers.SettlementHandler
	Games       *handlers.GamesHandler
	Health      *handlers.HealthHandler

	AuthMiddleware *middleware.AuthMiddleware
	Idempotency    fiber.Handler
}

// AppConfig holds the server-wide middleware settings.
type AppConfig struct {
	CORSOrigins  string
	LoginLimit   int
	AccessLog    bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp creates the fiber app with the global middleware stack.
func NewApp(cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "amafaranga",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.IdempotencyHeader,
		AllowMethods: "GET,POST,HEAD,OPTIONS",
	}))

	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	limit := cfg.LoginLimit
	if limit <= 0 {
		limit = 5
	}
	app.Use("/api/login", limiter.New(limiter.Config{
		Max:        limit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	return app
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", deps.Health.HealthCheck)

	api := app.Group("/api")

	// Public routes
	api.Post("/login", deps.Auth.Login)
	api.Post("/refresh", deps.Auth.Refresh)

	// Protected routes
	protected := api.Group("", deps.AuthMiddleware.Handler)

	idempotent := deps.Idempotency
	if idempotent == nil {
		idempotent = func(c *fiber.Ctx) error { return c.Next() }
	}

	wallet := protected.Group("/wallet", middleware.HasPermission(models.PermissionWalletRead))
	wallet.Get("/balance", deps.Wallet.GetBalance)
	wallet.Get("/balance/stream", deps.Wallet.StreamBalance)

	protected.Get("/recipients/:card", middleware.HasPermission(models.PermissionWalletRead), deps.Recipients.Lookup)
	protected.Post("/transfers", middleware.HasPermission(models.PermissionWalletWrite), idempotent, deps.Transfers.Transfer)

	protected.Post("/withdrawals", middleware.HasPermission(models.PermissionWalletWrite), idempotent, deps.Settlements.RequestWithdrawal)
	protected.Post("/deposits", middleware.HasPermission(models.PermissionWalletWrite), idempotent, deps.Settlements.RequestDeposit)
	protected.Get("/settlements", middleware.HasPermission(models.PermissionSettlementRead), deps.Settlements.ListMine)

	games := protected.Group("/games/:game", middleware.HasPermission(models.PermissionGamesWrite))
	games.Post("/complete", deps.Games.Complete)
	games.Get("/history", deps.Games.History)

	// Admin routes
	admin := protected.Group("/admin", middleware.AdminAuthMiddleware)
	admin.Get("/settlements", deps.Settlements.ListPending)
	admin.Post("/settlements/:id/decision", middleware.HasPermission(models.PermissionSettlementDecide), deps.Settlements.Decide)
}
