package handler

import (
	"github.com/fgimenez/mythril-ci/internal/analysis"
	"github.com/gofiber/fiber/v2"
)

// NewApp builds the fiber app with the central error handler installed, so
// the taxonomy-to-status mapping applies everywhere, tests included.
func NewApp(h *AuthHandler, analyses *analysis.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
	})
	RegisterRoutes(app, h, analyses)
	return app
}

func RegisterRoutes(app *fiber.App, h *AuthHandler, analyses *analysis.Handler) {
	v1 := app.Group("/v1")

	// Login and refresh authenticate by themselves and bypass the limiter.
	v1.Post("/auth/login", h.Login)
	v1.Post("/auth/refresh", h.Refresh)
	v1.Post("/auth/logout", h.RequireAuth, h.Logout)

	v1.Post("/users", h.Register)
	v1.Post("/users/:id/activate", h.Activate)
	v1.Get("/users", h.RequireAuth, h.RequireAdmin, h.ListUsers)
	v1.Put("/users/:id", h.RequireAuth, h.RequireAdmin, h.UpdateUser)

	// The guarded business surface: authenticate first, count second.
	v1.Post("/analyses", h.RequireAuth, h.RateLimit, analyses.Submit)
	v1.Get("/analyses/:uuid", h.RequireAuth, h.RateLimit, analyses.Get)
	v1.Get("/analyses/:uuid/issues", h.RequireAuth, h.RateLimit, analyses.Issues)
}
