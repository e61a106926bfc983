package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/analytics"
	"github.com/fleetassist/backend/internal/api/handlers"
	"github.com/fleetassist/backend/internal/cache/redis"
	"github.com/fleetassist/backend/internal/contextcheck"
	"github.com/fleetassist/backend/internal/greeting"
	"github.com/fleetassist/backend/internal/grounding"
	"github.com/fleetassist/backend/internal/ingestion"
	"github.com/fleetassist/backend/internal/intent"
	"github.com/fleetassist/backend/internal/lexicon"
	"github.com/fleetassist/backend/internal/llm"
	"github.com/fleetassist/backend/internal/memory"
	"github.com/fleetassist/backend/internal/middleware/ratelimit"
	"github.com/fleetassist/backend/internal/rag"
	"github.com/fleetassist/backend/internal/safety"
	"github.com/fleetassist/backend/internal/search"
	"github.com/fleetassist/backend/internal/storage/sqlite"
	"github.com/fleetassist/backend/pkg/config"
	"github.com/fleetassist/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting fleetassist backend",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	lex, err := lexicon.Load(cfg.Lexicon.Path)
	if err != nil {
		logger.Fatal("failed to load lexicon", zap.Error(err))
	}

	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		logger.Fatal("failed to open sqlite", zap.Error(err))
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		logger.Fatal("failed to initialize schema", zap.Error(err))
	}

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	importer := ingestion.NewImporter(db)
	if err := importer.Seed(bootCtx, cfg.Corpus.SeedPath); err != nil {
		logger.Warn("corpus seeding failed, starting with existing corpus",
			zap.Error(err))
	}
	cancelBoot()

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = redis.NewClient(cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, running without profile cache",
				zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	classifier, err := intent.NewClassifier(lex)
	if err != nil {
		logger.Fatal("failed to build intent classifier", zap.Error(err))
	}

	gate, err := safety.NewGate(lex, safety.Config{
		SpamWindow:    time.Duration(cfg.Safety.SpamWindowSec) * time.Second,
		SpamRepeatMax: cfg.Safety.SpamRepeatMax,
		WarningLimit:  cfg.Safety.WarningLimit,
		HistoryCap:    cfg.Safety.HistoryCap,
	})
	if err != nil {
		logger.Fatal("failed to build safety gate", zap.Error(err))
	}

	memoryService := memory.NewService(db, nil)
	if cache != nil {
		memoryService = memory.NewService(db, cache)
	}
	generator := llm.NewClient(cfg.Generator)
	if !generator.Available() {
		logger.Warn("generator not configured, serving verbatim FAQ answers")
	}

	pipeline := rag.NewPipeline(rag.Deps{
		Gate:       gate,
		Classifier: classifier,
		Matcher:    search.NewMatcher(lex, classifier, cfg.Matcher.Threshold, cfg.Matcher.TopK),
		Validator:  contextcheck.NewValidator(classifier),
		Grounder:   grounding.NewGrounder(lex),
		Tagger:     analytics.NewTagger(lex),
		Corpus:     db,
		Generator:  generator,
		Sink:       analytics.NewSink(db),
		Memory:     memoryService,
	})

	faqHandler := handlers.NewFAQHandler(pipeline, greeting.NewService(memoryService), db)
	analyticsHandler := handlers.NewAnalyticsHandler(db)
	chatHandler := handlers.NewChatHandler(pipeline)
	adminHandler := handlers.NewAdminHandler(importer)

	limiter := ratelimit.NewLimiter(cfg.RateLimit.MaxRequestsPerMinute)
	defer limiter.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(fiberrecover.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1", limiter.Middleware())
	api.Post("/faq/search", faqHandler.Search)
	api.Get("/faq/greeting", faqHandler.Greeting)
	api.Get("/faq/all", faqHandler.List)
	api.Get("/analytics/stats", analyticsHandler.Stats)
	api.Get("/analytics/sentiments", analyticsHandler.Sentiments)
	api.Get("/analytics/intents", analyticsHandler.Intents)
	api.Post("/admin/import/html", adminHandler.ImportHTML)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(chatHandler.Handle))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("metrics listener started", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener failed", zap.Error(err))
		}
	}()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
