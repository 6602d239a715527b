package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/analysis"
	"github.com/noah-isme/gema-grading-api/internal/config"
	"github.com/noah-isme/gema-grading-api/internal/database"
	"github.com/noah-isme/gema-grading-api/internal/events"
	"github.com/noah-isme/gema-grading-api/internal/handler"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/repository"
	"github.com/noah-isme/gema-grading-api/internal/router"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/pkg/ai"
	cloud "github.com/noah-isme/gema-grading-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "gema-grading-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := context.Background()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL, 5*time.Second)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, text cache and redis events disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
			probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, nats events disabled")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	storage, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	}

	completer, closeCompleter := buildCompleter(ctx, cfg, logger)
	defer closeCompleter()

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	var authorship analysis.AuthorshipChecker
	if completer != nil {
		authorship = analysis.NewAIChecker(completer)
	}
	plagiarism := analysis.NewShingleChecker(service.NewSubmissionCorpus(submissionRepo))
	scorer := analysis.NewScorer(authorship, plagiarism, logger)
	gate := analysis.NewRelevanceGate(completer, logger)
	publisher := events.NewPublisher(redisClient, natsConn, cfg.EventsChannel, logger)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	texts := service.NewTextSource(redisClient, cfg.TextCacheTTL, httpClient, cfg.UploadMaxBytes(), logger)

	assignmentService := service.NewAssignmentService(assignmentRepo, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, studentRepo, storage, gate, scorer, publisher, validate, logger)
	feedbackService := service.NewFeedbackService(submissionRepo, texts, completer, publisher, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.UploadMaxBytes()) + 1024*1024,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, cfg.UploadMaxBytes(), logger),
		FeedbackHandler:   handler.NewFeedbackHandler(feedbackService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		SubmitLimiter:     middleware.RateLimit("submissions", cfg.SubmitRateLimit, time.Minute),
		HealthProbes:      probes,
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Bool("ai_enabled", completer != nil).Msg("grading api listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

// buildCompleter returns a nil completer when no provider credentials are configured.
func buildCompleter(ctx context.Context, cfg config.Config, logger zerolog.Logger) (ai.Completer, func()) {
	noop := func() {}
	if !cfg.AIEnabled() {
		logger.Warn().Str("provider", cfg.AIProvider).Msg("no ai credentials, relevance gate fails open and feedback generation is disabled")
		return nil, noop
	}

	switch cfg.AIProvider {
	case "gemini":
		completer, err := ai.NewGeminiCompleter(ctx, ai.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			Logger: logger,
		})
		if err != nil {
			logger.Error().Err(err).Msg("failed to initialise gemini completer")
			return nil, noop
		}
		return completer, func() { _ = completer.Close() }
	default:
		completer, err := ai.NewOpenAICompleter(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			logger.Error().Err(err).Msg("failed to initialise openai completer")
			return nil, noop
		}
		return completer, noop
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
