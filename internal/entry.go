// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notely/internal/api"
	"github.com/starford/notely/internal/authservice"
	"github.com/starford/notely/internal/importer"
	"github.com/starford/notely/internal/mcpserver"
	"github.com/starford/notely/internal/noteservice"
	"github.com/starford/notely/internal/ratelimit"
	"github.com/starford/notely/internal/storage"
	"github.com/starford/notely/internal/store"
	"github.com/starford/notely/internal/token"
)

// components are the long-lived services shared by every command.
type components struct {
	store  *store.Store
	tokens *token.Service
	auth   *authservice.Service
	notes  *noteservice.Service
}

func (c *components) Close() error {
	return c.store.Close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	slog.SetDefault(app.logger)
	return app, nil
}

func (a *application) build() (*components, error) {
	cfg := a.config

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN,
		store.WithMaxOpenConns(cfg.Database.MaxOpenConns))
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	secret, fallback := cfg.Auth.SigningSecret()
	if fallback {
		a.logger.Warn("auth.jwt_secret is not set; signing tokens with the public development fallback",
			slog.String("environment", cfg.App.Environment))
	}
	tokens := token.New(secret, cfg.Auth.TokenTTL)

	auth, err := authservice.New(st, tokens, cfg.Auth.BcryptCost)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &components{
		store:  st,
		tokens: tokens,
		auth:   auth,
		notes:  noteservice.NewService(st),
	}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("environment", cfg.App.Environment),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := app.build()
	if err != nil {
		return err
	}
	defer c.Close()

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)
		defer limiter.Stop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.App.HTTP.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.App.HTTP.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"Retry-After"},
			MaxAge:         300,
		}))
	}

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", readyHandler(c.store))

	r.Mount("/api", api.NewRouter(c.auth, c.notes, c.tokens, limiter))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadTimeout:       cfg.App.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

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
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		timeout := cfg.App.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func readyHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := st.Ping(ctx); err != nil {
			slog.Error("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ServeMCP runs the MCP stdio server as the user identified by rawToken.
func ServeMCP(ctx context.Context, rawToken string, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	c, err := app.build()
	if err != nil {
		return err
	}
	defer c.Close()

	id, err := c.tokens.Verify(rawToken)
	if err != nil {
		return fmt.Errorf("mcp: %w", err)
	}

	app.logger.Info("Starting MCP server",
		slog.Int64("user_id", id.ID),
		slog.String("username", id.Username))

	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpserver.New(c.notes, id).ServeStdio()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Import loads every Markdown file under dir as a note owned by username.
func Import(ctx context.Context, dir, username string, opts ...Option) (importer.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return importer.Result{}, err
	}

	c, err := app.build()
	if err != nil {
		return importer.Result{}, err
	}
	defer c.Close()

	src, err := storage.NewFS(dir)
	if err != nil {
		return importer.Result{}, err
	}

	u, err := c.store.FindUserByUsername(ctx, username)
	if err != nil {
		return importer.Result{}, err
	}
	if u == nil {
		return importer.Result{}, fmt.Errorf("import: user %q does not exist", username)
	}

	res, err := importer.New(src, c.notes, app.logger).Import(ctx, u.ID)
	if err != nil {
		return res, fmt.Errorf("import: %w", err)
	}
	app.logger.Info("Import finished",
		slog.String("dir", src.Root()),
		slog.String("username", username),
		slog.Int("imported", res.Imported),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed))
	return res, nil
}
