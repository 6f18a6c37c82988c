package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/config"
	"github.com/stemsi/tryout-backend/internal/database"
	"github.com/stemsi/tryout-backend/internal/handler"
	"github.com/stemsi/tryout-backend/internal/i18n"
	"github.com/stemsi/tryout-backend/internal/logger"
	"github.com/stemsi/tryout-backend/internal/middleware"
	"github.com/stemsi/tryout-backend/internal/repository"
	"github.com/stemsi/tryout-backend/internal/router"
	"github.com/stemsi/tryout-backend/internal/service"
	"github.com/stemsi/tryout-backend/internal/validator"
	"github.com/stemsi/tryout-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Tryout Backend")

	// ─── Initialize Validator & Messages ───────────────────────────────
	validator.Setup()
	if err := i18n.Init(cfg.DefaultLocale); err != nil {
		log.Warn().Err(err).Str("locale", cfg.DefaultLocale).Msg("Unknown default locale, using English")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	packageRepo := repository.NewPackageRepository(pool)
	subtestRepo := repository.NewSubtestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewQuizSessionRepository(pool)
	answerRepo := repository.NewUserAnswerRepository(pool)
	eventRepo := repository.NewSessionEventRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	identityService := service.NewIdentityService(cfg.JWTSecret, cfg.JWTExpiry)
	windowCache := service.NewRedisWindowCache(rdb, packageRepo, cfg.PackageCacheTTL, log)
	publisher := service.NewRedisEventPublisher(rdb, log)

	quizService := service.NewQuizService(service.QuizServiceDeps{
		Sessions:  sessionRepo,
		Answers:   answerRepo,
		Questions: questionRepo,
		Packages:  packageRepo,
		Subtests:  subtestRepo,
		Windows:   windowCache,
		Events:    publisher,
	}, cfg.FlushConcurrency, log)
	monitorService := service.NewMonitorService(sessionRepo, windowCache)

	// ─── Initialize Handlers ──────────────────────────────────────────
	auditQueue := worker.NewRedisQueue(rdb, config.WorkerKey.PersistSessionEventsQueue)

	handlers := &router.Handlers{
		Quiz:    handler.NewQuizHandler(quizService, log),
		WS:      handler.NewWSHandler(quizService, log, cfg.AllowedOrigins),
		Monitor: handler.NewMonitorHandler(rdb, monitorService, log),
		System:  handler.NewSystemHandler(
			map[string]handler.HealthCheck{
				"postgres": pool.Ping,
				"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			},
			map[string]handler.QueueDepth{
				"session_events": auditQueue.Len,
			},
			log,
		),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	auditWorker := worker.NewAuditWorker(auditQueue, eventRepo, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		auditWorker.Start(workerCtx)
	}()

	answerLimiter := middleware.NewRateLimiter(cfg.AnswerRateLimit, time.Minute)
	go answerLimiter.Run(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(identityService, handlers, cfg, answerLimiter, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the audit queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
