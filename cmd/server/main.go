package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/classware/cbt-backend/internal/config"
	"github.com/classware/cbt-backend/internal/database"
	"github.com/classware/cbt-backend/internal/grading"
	"github.com/classware/cbt-backend/internal/handler"
	"github.com/classware/cbt-backend/internal/logger"
	"github.com/classware/cbt-backend/internal/repository"
	"github.com/classware/cbt-backend/internal/router"
	"github.com/classware/cbt-backend/internal/service"
	"github.com/classware/cbt-backend/internal/validator"
	"github.com/classware/cbt-backend/internal/worker"
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
		Msg("Starting CBT Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

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
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	essayReviewRepo := repository.NewEssayReviewRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo)
	adminService := service.NewAdminService(adminRepo)
	examService := service.NewExamService(examRepo, questionRepo, rdb, log)
	questionService := service.NewQuestionService(questionRepo)
	settingService := service.NewSettingService(settingRepo, log)
	progressPublisher := service.NewProgressPublisher(rdb, log)
	sessionService := service.NewExamSessionService(examService, settingService, submissionRepo, rdb, progressPublisher, log)
	monitorService := service.NewMonitorService(monitorRepo, sessionService.Manager(), rdb, log)
	reviewService := service.NewReviewService(essayReviewRepo, submissionRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, studentService, adminService),
		StudentPortal: handler.NewStudentPortalHandler(sessionService, examService),
		StudentMgmt:   handler.NewStudentManagementHandler(studentService, authService, sessionService),
		Exam:          handler.NewExamHandler(examService, sessionService),
		Question:      handler.NewQuestionHandler(questionService),
		Review:        handler.NewReviewHandler(reviewService, log),
		Monitor:       handler.NewMonitorHandler(examService, monitorService, log),
		Setting:       handler.NewSettingHandler(settingService),
		WS:            handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	// The essay oracle is optional: without an API key, essays skip AI
	// suggestions and wait for manual review.
	var oracle grading.EssayOracle
	if cfg.OpenAIAPIKey != "" {
		oracle = grading.NewOpenAIOracle(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
		log.Info().Str("model", cfg.OpenAIModel).Msg("Essay grading oracle enabled")
	} else {
		log.Info().Msg("No OpenAI API key configured; essay suggestions disabled")
	}

	submissionWorker := worker.NewSubmissionWorker(pool, rdb, log)
	essayWorker := worker.NewEssayWorker(essayReviewRepo, rdb, oracle, log)

	go submissionWorker.Start(workerCtx)
	go essayWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published exams into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := examService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
