package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tripbuddy/tripbuddy-api/internal/config"
	"github.com/tripbuddy/tripbuddy-api/internal/generation"
	"github.com/tripbuddy/tripbuddy-api/internal/job"
	"github.com/tripbuddy/tripbuddy-api/internal/notify"
	"github.com/tripbuddy/tripbuddy-api/internal/platform/gemini"
	"github.com/tripbuddy/tripbuddy-api/internal/platform/postgres"
	"github.com/tripbuddy/tripbuddy-api/internal/service"
	"github.com/tripbuddy/tripbuddy-api/internal/store"
	"github.com/tripbuddy/tripbuddy-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	itineraryStore  store.ItineraryStore
	generationStore store.GenerationStore
	tripStore       store.TripStore
	jobStore        job.Store

	// Generation pipeline
	planner  generation.Planner
	notifier notify.Notifier
	queue    *job.Queue
	runner   *task.GenerationRunner

	// Service layer
	tripService *service.ItineraryService
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize stores
	app.itineraryStore = postgres.NewPostgresItineraryStore(db, logger)
	app.generationStore = postgres.NewPostgresGenerationStore(db, logger)
	app.tripStore = postgres.NewPostgresTripStore(db, logger)
	app.jobStore = postgres.NewPostgresJobStore(db, logger)

	// Create the LLM planner
	var err error
	app.planner, err = gemini.NewPlanner(
		ctx,
		cfg.LLM,
		logger.With("component", "llm_planner"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM planner: %w", err)
	}
	logger.Info("LLM planner initialized", "model", cfg.LLM.ModelName)

	// Initialize outcome notifier
	app.notifier = notify.NewMailer(notify.MailerConfig{
		Host:       cfg.Mail.SMTPHost,
		Port:       cfg.Mail.SMTPPort,
		Username:   cfg.Mail.SMTPUsername,
		Password:   cfg.Mail.SMTPPassword,
		FromEmail:  cfg.Mail.FromEmail,
		FromName:   cfg.Mail.FromName,
		AppBaseURL: cfg.Mail.AppBaseURL,
	}, logger)

	// Initialize the durable job queue and its worker pool
	app.queue = job.NewQueue(app.jobStore, cfg.Task.QueueSize, logger)

	processor, err := task.NewGenerationProcessor(
		db,
		app.itineraryStore,
		app.generationStore,
		app.tripStore,
		app.planner,
		app.notifier,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation processor: %w", err)
	}

	app.runner = task.NewGenerationRunner(app.queue, processor, task.RunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		MaxStarts:   cfg.Task.MaxStarts,
		StartWindow: time.Duration(cfg.Task.StartWindowSeconds) * time.Second,
	}, logger)
	app.runner.Start()

	// Re-dispatch jobs left over from a previous run. Workers are already
	// listening, so recovered jobs begin processing immediately.
	if err := app.queue.Recover(ctx); err != nil {
		return nil, fmt.Errorf("failed to recover persisted jobs: %w", err)
	}

	// Initialize the itinerary service
	app.tripService, err = service.NewItineraryService(
		db,
		app.itineraryStore,
		app.generationStore,
		app.tripStore,
		app.queue,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create itinerary service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources. Workers stop
// before the queue closes so no send races a closed channel.
func (app *application) cleanup() {
	if app.runner != nil {
		app.runner.Stop()
	}

	if app.queue != nil {
		app.queue.Close()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
