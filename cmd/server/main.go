// StudyMate - AI Study Assistant Server
package main

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
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/studymate/internal/agent"
	"github.com/ashureev/studymate/internal/api"
	"github.com/ashureev/studymate/internal/config"
	"github.com/ashureev/studymate/internal/identity"
	"github.com/ashureev/studymate/internal/middleware"
	"github.com/ashureev/studymate/internal/session"
	"github.com/ashureev/studymate/internal/store"
	"github.com/ashureev/studymate/internal/tutor"
	"github.com/ashureev/studymate/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func openStore(cfg *config.Config) (store.Repository, error) {
	switch cfg.Store.Backend {
	case config.StoreSQLite:
		return store.NewSQLite(cfg.Store.DBPath)
	default:
		return store.NewMemory(), nil
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "store", cfg.Store.Backend)

	repo, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("store health check: %w", err)
	}

	gemini, err := agent.NewGeminiClient(ctx, agent.GeminiClientConfig{
		APIKey: cfg.Completion.APIKey,
		Model:  cfg.Completion.Model,
	}, logger)
	if err != nil {
		return err
	}

	svc := agent.NewService(gemini, repo, cfg.Completion.Timeout, logger)
	conns := tutor.NewConnManager()
	svc.OnSessionEnd(conns.CloseSession)

	r := newRouter(cfg, repo, svc, conns, gemini.Model())

	// No WriteTimeout: it would also apply to hijacked chat sockets.
	// Completion calls are bounded by the completion timeout instead.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return session.RunTTLWorker(gctx, repo, svc, cfg.Session.TTL, cfg.Session.SweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newRouter mounts every route of the server. Panel routes and the chat
// socket run behind the session middleware; /health and the page do not.
func newRouter(cfg *config.Config, repo store.Repository, svc *agent.Service, conns *tutor.ConnManager, model string) http.Handler {
	panels := api.NewPanelHandler(svc, model, cfg.MaxRequestBodySize, cfg.IsDevelopment())
	health := api.NewHealthHandler(repo)
	chatSocket := tutor.NewChatSocketHandler(svc, conns, cfg.AllowedOrigins(), cfg.IsDevelopment())
	sessions := identity.Middleware(repo, cfg.IsDevelopment())

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(slog.Default()))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	health.RegisterHealth(r)
	panels.RegisterRoutes(r, sessions)
	r.With(sessions).Get("/ws/chat", chatSocket.ServeHTTP)

	r.Handle("/*", web.SPAHandler())
	return r
}
