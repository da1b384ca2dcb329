package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tally-scoring-api/internal/config"
	"github.com/noah-isme/tally-scoring-api/internal/database"
	"github.com/noah-isme/tally-scoring-api/internal/handler"
	"github.com/noah-isme/tally-scoring-api/internal/middleware"
	"github.com/noah-isme/tally-scoring-api/internal/models"
	"github.com/noah-isme/tally-scoring-api/internal/repository"
	"github.com/noah-isme/tally-scoring-api/internal/router"
	"github.com/noah-isme/tally-scoring-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Assessment{},
		&models.AssessmentQuestion{},
		&models.AssessmentInstance{},
		&models.InstanceQuestion{},
		&models.Variant{},
		&models.Submission{},
		&models.GradingJob{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	instanceQuestionRepo := repository.NewInstanceQuestionRepository(db)
	assessmentQuestionRepo := repository.NewAssessmentQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradingJobRepo := repository.NewGradingJobRepository(db)
	assessmentInstanceRepo := repository.NewAssessmentInstanceRepository(db)

	assessmentInstanceService := service.NewAssessmentInstanceService(assessmentInstanceRepo, redisClient, cfg.ScoreCacheTTL, logger)
	ltiPusher := service.NewNATSLTIScorePusher(natsConn, logger)
	scoreUpdateService := service.NewScoreUpdateService(instanceQuestionRepo, submissionRepo, gradingJobRepo, assessmentInstanceService, ltiPusher, logger)
	submissionScoringService := service.NewSubmissionScoringService(instanceQuestionRepo, submissionRepo, gradingJobRepo, assessmentInstanceService, validate, logger)
	regradeService := service.NewRegradeService(instanceQuestionRepo, assessmentQuestionRepo, gradingJobRepo, assessmentInstanceService, natsConn, cfg.RegradeWorkers, logger)
	scoreUploadService := service.NewScoreUploadService(scoreUpdateService, instanceQuestionRepo, assessmentInstanceRepo, logger)

	instanceQuestionHandler := handler.NewInstanceQuestionHandler(scoreUpdateService, submissionScoringService, logger)
	scoreUploadHandler := handler.NewScoreUploadHandler(scoreUploadService, logger)
	regradeHandler := handler.NewRegradeHandler(regradeService, logger)
	assessmentInstanceHandler := handler.NewAssessmentInstanceHandler(assessmentInstanceService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		InstanceQuestionHandler:   instanceQuestionHandler,
		ScoreUploadHandler:        scoreUploadHandler,
		RegradeHandler:            regradeHandler,
		AssessmentInstanceHandler: assessmentInstanceHandler,
		JWTMiddleware:             middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
