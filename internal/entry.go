// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quest/internal/api"
	"github.com/starford/quest/internal/audio"
	"github.com/starford/quest/internal/credentials"
	"github.com/starford/quest/internal/generation"
	"github.com/starford/quest/internal/mcpserver"
	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/providers"
	"github.com/starford/quest/internal/settings"
	"github.com/starford/quest/internal/sse"
	"github.com/starford/quest/internal/storage"
	"github.com/starford/quest/internal/store"
	"github.com/starford/quest/internal/transfer"
	"github.com/starford/quest/internal/workflow"
)

const shutdownTimeout = 10 * time.Second

// core holds the components shared by the HTTP and MCP front ends.
type core struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	db       *store.DB
	keys     *credentials.Store
	prefs    *settings.Store
	worker   *audio.Worker
	gen      *generation.Service
}

func (c *core) close() {
	c.worker.Close()
	if err := c.db.Close(); err != nil {
		c.logger.Error("store close failed", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// buildCore opens storage and wires the generation pipeline. Logs go to w.
func buildCore(app *application, w io.Writer) (*core, error) {
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("sync_dir", cfg.Data.SyncDir),
		slog.String("local_dir", cfg.Data.LocalDir),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	syncArea, err := storage.NewFS(cfg.Data.SyncDir, 0o644)
	if err != nil {
		return nil, fmt.Errorf("init sync area: %w", err)
	}
	localArea, err := storage.NewFS(cfg.Data.LocalDir, 0o600)
	if err != nil {
		return nil, fmt.Errorf("init local area: %w", err)
	}

	secret := cfg.Credentials.InstallSecret
	if secret == "" {
		if secret, err = credentials.InstallSecret(localArea); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	reg := app.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	keys := credentials.NewStore(localArea, secret, logger)
	prefs := settings.NewStore(syncArea)
	worker := audio.NewWorker(cfg.Audio.DecodeWorkers, logger)
	caps := providers.NewHTTPSet(providers.Options{
		OpenAIBaseURL:     cfg.Providers.OpenAIBaseURL,
		GeminiBaseURL:     cfg.Providers.GeminiBaseURL,
		ElevenLabsBaseURL: cfg.Providers.ElevenLabsBaseURL,
		RequestsPerSecond: cfg.Providers.RequestsPerSecond,
		Burst:             cfg.Providers.Burst,
		HTTPClient:        app.httpClient,
		Logger:            logger,
	}, worker)
	gen := generation.New(db, keys, prefs, caps,
		generation.WithLogger(logger),
		generation.WithMetrics(generation.NewMetrics(reg)),
	)

	return &core{
		logger:   logger,
		registry: reg,
		db:       db,
		keys:     keys,
		prefs:    prefs,
		worker:   worker,
		gen:      gen,
	}, nil
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	c, err := buildCore(app, os.Stdout)
	if err != nil {
		return err
	}
	defer c.close()
	logger := c.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	handler := api.NewHandler(api.Deps{
		Store:       c.db,
		Generator:   c.gen,
		Credentials: c.keys,
		Settings:    c.prefs,
		Transfer:    transfer.New(c.db, c.prefs, logger),
		Events:      broker,
		Logger:      logger,
	})
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health and metrics endpoints (unauthenticated).
	r.Get("/health/live", healthHandler(nil))
	r.Get("/health/ready", healthHandler(c.db.Ping))
	r.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Reload the settings record when another process or machine changes it.
	g.Go(func() error {
		err := c.prefs.Watch(gCtx, logger, func(rec models.Settings) {
			broker.Publish(sse.Event{Type: sse.SettingsUpdated, Data: rec})
		})
		if err != nil {
			logger.Warn("settings watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Background jobs.
	g.Go(func() error {
		return workflow.New(c.db, c.prefs, broker, cfg.Jobs.Interval, logger).Run(gCtx)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Closing the broker ends open event streams so Shutdown can drain.
		broker.Close()
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		handler.Wait()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := buildCore(app, os.Stderr)
	if err != nil {
		return err
	}
	defer c.close()

	c.logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(c.db, c.gen, app.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
