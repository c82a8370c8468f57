// Package app wires configuration, logging, the store, the collector and
// the pipeline into a running HTTP service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"socialpulse/internal/collector"
	"socialpulse/internal/config"
	"socialpulse/internal/crawler"
	"socialpulse/internal/infrastructure"
	customMiddleware "socialpulse/internal/middleware"
	"socialpulse/internal/services"
	"socialpulse/internal/store"
	handlers "socialpulse/internal/transport/http"
)

const (
	// Version is the build version reported by /version
	Version = "1.2.0"
	// AppName is the service display name
	AppName = "SocialPulse"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Store         *store.Store
	CrawlService  *services.CrawlService
	HealthService *services.HealthService
	Logger        *slog.Logger
}

// runStore adapts the concrete store to the pipeline's persistence boundary
type runStore struct {
	store *store.Store
}

func (r runStore) BeginRun(ctx context.Context) (crawler.RunSaver, error) {
	return r.store.BeginRun(ctx)
}

// NewApplication creates a new application instance with dependency
// injection. An unreachable store or an unloadable lexicon is fatal here:
// the service never starts half-wired.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	st, err := store.Open(context.Background(), cfg.Store.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	limiter := crawler.NewRateLimiter(cfg.API.RatePerSecond)
	client := collector.NewClient(cfg.API, limiter, logger)
	staging := collector.New(client, logger)
	status := crawler.NewStatusManager()

	pipeline, err := crawler.New(crawler.Options{
		Collector:     staging,
		Store:         runStore{store: st},
		Status:        status,
		MinTextLength: cfg.Pipeline.MinTextLength,
		LexiconPath:   cfg.Paths.LexiconFile,
		ModelPath:     cfg.Paths.ModelFile,
		DataDir:       cfg.Paths.DataDir,
		Logger:        logger,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to construct pipeline: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Store:         st,
		CrawlService:  services.NewCrawlService(pipeline, logger),
		HealthService: services.NewHealthService(Version, status, logger),
		Logger:        logger,
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// setupRouter assembles the middleware chain and mounts all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	crawlHandler := handlers.NewCrawlHandler(a.CrawlService, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Post("/collect", crawlHandler.Collect)
		r.Get("/status", crawlHandler.Status)
		r.Post("/stop", crawlHandler.Stop)
		r.Post("/reset", crawlHandler.Reset)

		r.Get("/health", healthHandler.Health)
		r.Get("/version", healthHandler.Version)
	})

	// Metrics stay outside the middleware group
	r.Handle("/metrics", promhttp.Handler())

	a.Router = r
}

// createServer builds the HTTP server from configuration
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server
func (a *Application) Start(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "listening",
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop shuts the application down gracefully
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	// A running pipeline observes the stop flag at its next checkpoint
	a.CrawlService.RequestStop(shutdownCtx)

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "error closing store", slog.String("error", err.Error()))
	}
	infrastructure.CloseLogFile()

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	}

	return a.Stop(ctx)
}
