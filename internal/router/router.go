package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/tally-scoring-api/internal/config"
	"github.com/noah-isme/tally-scoring-api/internal/handler"
	"github.com/noah-isme/tally-scoring-api/internal/middleware"
	"github.com/noah-isme/tally-scoring-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	InstanceQuestionHandler   *handler.InstanceQuestionHandler
	ScoreUploadHandler        *handler.ScoreUploadHandler
	RegradeHandler            *handler.RegradeHandler
	AssessmentInstanceHandler *handler.AssessmentInstanceHandler
	JWTMiddleware             fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	staffOnly := middleware.RequireRole("instructor", "grader")

	// Score edits and bulk uploads, scoped to one assessment
	if deps.InstanceQuestionHandler != nil {
		assessments := api.Group("/assessments/:assessmentID", jwtMiddleware, staffOnly)

		instanceQuestionGroup := assessments.Group("/instance-questions")
		deps.InstanceQuestionHandler.Register(instanceQuestionGroup)

		if deps.ScoreUploadHandler != nil {
			uploadGroup := assessments.Group("", middleware.RateLimit("score_upload", 5, time.Minute))
			deps.ScoreUploadHandler.Register(uploadGroup)
		}
	}

	// Regrades
	if deps.RegradeHandler != nil {
		regradeLimit := middleware.RateLimit("regrade", 10, time.Minute)

		instanceQuestions := api.Group("/instance-questions", jwtMiddleware, staffOnly, regradeLimit)
		deps.RegradeHandler.RegisterInstanceQuestionRoutes(instanceQuestions)

		assessmentQuestions := api.Group("/assessment-questions", jwtMiddleware, staffOnly, regradeLimit)
		deps.RegradeHandler.RegisterAssessmentQuestionRoutes(assessmentQuestions)
	}

	// Assessment instance totals
	if deps.AssessmentInstanceHandler != nil {
		instances := api.Group("/assessment-instances", jwtMiddleware, staffOnly)
		deps.AssessmentInstanceHandler.Register(instances)
	}
}
