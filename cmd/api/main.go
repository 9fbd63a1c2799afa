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
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathgrade-go-api/internal/config"
	"github.com/noah-isme/mathgrade-go-api/internal/database"
	"github.com/noah-isme/mathgrade-go-api/internal/events"
	"github.com/noah-isme/mathgrade-go-api/internal/grading"
	"github.com/noah-isme/mathgrade-go-api/internal/handler"
	"github.com/noah-isme/mathgrade-go-api/internal/middleware"
	"github.com/noah-isme/mathgrade-go-api/internal/provider"
	"github.com/noah-isme/mathgrade-go-api/internal/queue"
	"github.com/noah-isme/mathgrade-go-api/internal/resilience"
	"github.com/noah-isme/mathgrade-go-api/internal/router"
	"github.com/noah-isme/mathgrade-go-api/internal/verify"
	"github.com/noah-isme/mathgrade-go-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, events disabled")
		} else {
			defer natsConn.Drain()
		}
	}

	res := resilience.NewManager(resilience.Options{
		Logger: logger,
		Redis:  redisClient,
	})

	ctx := context.Background()

	openaiProvider := provider.NewOpenAIProvider(provider.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
		Logger: logger,
	})
	geminiProvider := provider.NewGeminiProvider(ctx, provider.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
		Logger: logger,
	})
	defer geminiProvider.Close()
	anthropicProvider := provider.NewAnthropicProvider(provider.AnthropicConfig{
		APIKey: cfg.AnthropicAPIKey,
		Model:  cfg.AnthropicModel,
		Logger: logger,
	})

	byName := map[string]provider.ChatProvider{
		"openai":    openaiProvider,
		"gemini":    geminiProvider,
		"anthropic": anthropicProvider,
	}
	ordered := make([]provider.ChatProvider, 0, len(cfg.FallbackOrder))
	for _, name := range cfg.FallbackOrder {
		if p, ok := byName[name]; ok {
			ordered = append(ordered, p)
		} else {
			logger.Warn().Str("provider", name).Msg("unknown provider in fallback order, skipping")
		}
	}
	chatManager := provider.NewManager(ordered, logger)

	mathpix := provider.NewMathpixProvider(provider.MathpixConfig{
		AppID:  cfg.MathpixAppID,
		AppKey: cfg.MathpixAppKey,
		Logger: logger,
	})
	wolfram := provider.NewWolframProvider(provider.WolframConfig{
		AppID:    cfg.WolframAppID,
		Timeout:  cfg.ProviderTimeout,
		CacheTTL: cfg.SolveCacheTTL,
		Logger:   logger,
	}, res)

	chainVerifier := verify.NewChainVerifier(chatManager, logger)
	verifier := verify.NewService(wolfram, chainVerifier, logger)

	gradingService := grading.NewService(chatManager, mathpix, verifier, grading.Defaults{
		RequireOCR:         cfg.RequireOCR,
		EnableVerification: cfg.EnableVerification,
		TrackCosts:         cfg.TrackCosts,
	}, logger)

	gradingQueue := queue.NewMemoryQueue()
	var broker events.Broker
	if natsConn != nil {
		broker = natsConn
	}
	publisher := events.NewPublisher(broker, logger)
	defer publisher.Close()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if cfg.WorkerEnabled {
		w := worker.New(gradingService, gradingQueue, publisher, worker.Config{
			PollInterval: cfg.WorkerPollInterval,
			MaxLease:     cfg.WorkerMaxLease,
			MaxAttempts:  cfg.WorkerMaxAttempts,
		}, logger)
		go w.Run(workerCtx)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	gradingHandler := handler.NewGradingHandler(gradingService, gradingQueue, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    32 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Use("/api/v1/grade", middleware.RateLimit("grade", 10, time.Minute))
	router.Register(app, cfg, router.Dependencies{
		GradingHandler: gradingHandler,
		GradingService: gradingService,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopWorker)
}

func waitForShutdown(app *fiber.App, stopWorker context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
