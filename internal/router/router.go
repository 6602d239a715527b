package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	FeedbackHandler   *handler.FeedbackHandler
	JWTMiddleware     fiber.Handler
	SubmitLimiter     fiber.Handler
	HealthProbes      map[string]handler.HealthProbe
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = passThrough
	}
	submitLimiter := deps.SubmitLimiter
	if submitLimiter == nil {
		submitLimiter = passThrough
	}
	staff := middleware.RequireRole("teacher", "admin")

	grading := app.Group("/api/v2/grading", jwtMiddleware)

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(grading.Group("/assignments"), staff)
	}

	if deps.SubmissionHandler != nil {
		submissions := grading.Group("/submissions")
		submissions.Post("", submitLimiter)
		deps.SubmissionHandler.Register(submissions, staff)
	}

	if deps.FeedbackHandler != nil {
		deps.FeedbackHandler.Register(grading, staff)
	}
}
