package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/arnold/productivityhub-api/internal/config"
	"github.com/arnold/productivityhub-api/internal/database"
	"github.com/arnold/productivityhub-api/internal/events"
	"github.com/arnold/productivityhub-api/internal/handlers"
	"github.com/arnold/productivityhub-api/internal/logging"
	"github.com/arnold/productivityhub-api/internal/metrics"
	"github.com/arnold/productivityhub-api/internal/middleware"
	"github.com/arnold/productivityhub-api/internal/routes"
	"github.com/arnold/productivityhub-api/internal/services"
	"github.com/arnold/productivityhub-api/internal/store"
)

// maxFilesPerNote sizes the request body limit for multipart note uploads.
const maxFilesPerNote = 5

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "productivityhub-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.UsesDefaultSecret() {
		log.Warn("JWT_SECRET is not set, using the development default")
	}

	db, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("database ready")

	var habits store.HabitStore
	switch cfg.HabitStore {
	case store.KindMemory:
		habits = store.NewMemoryHabitStore()
	default:
		habits = store.NewGormHabitStore(db)
	}
	log.Info("habit store selected", zap.String("kind", cfg.HabitStore))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	hub := events.NewHub(log)
	m.RegisterGauge("live_subscribers", "Open SSE and WebSocket session feeds.", func() float64 {
		return float64(hub.Count())
	})

	push := services.NewPushService(ctx, cfg.FCMServiceAccount, db, log)
	notifier := services.NewNotifier(db, push, log)
	worker := services.NewReminderWorker(db, notifier, hub, m, log, cfg.ReminderInterval)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	auth := middleware.NewAuth(cfg.JWTSecret)
	h := handlers.New(handlers.Deps{
		DB:         db,
		Habits:     habits,
		Auth:       auth,
		Hub:        hub,
		Metrics:    m,
		Log:        log,
		UploadsDir: cfg.UploadsDir,
		MaxUpload:  int64(cfg.MaxUploadMB) << 20,
	})
	app := routes.NewApp(routes.Options{
		Handler:     h,
		Auth:        auth,
		Metrics:     m,
		Log:         log,
		UploadsDir:  cfg.UploadsDir,
		CORSOrigins: cfg.CORSOrigins,
		BodyLimit:   (cfg.MaxUploadMB*maxFilesPerNote + 1) << 20,
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Port))
		serveErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-workerDone
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	// live feeds never finish on their own
	hub.Close()
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	<-workerDone
	log.Info("server stopped")
	return nil
}
