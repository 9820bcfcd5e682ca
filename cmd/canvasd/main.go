package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/canvasync/internal/server/handlers"
	"github.com/iudanet/canvasync/internal/server/hub"
	"github.com/iudanet/canvasync/internal/server/jwt"
	"github.com/iudanet/canvasync/internal/server/middleware"
	"github.com/iudanet/canvasync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

type config struct {
	addr          string
	dbPath        string
	jwtSecret     string
	passcodeHash  string
	tokenTTL      time.Duration
	sweepInterval time.Duration
	logLevel      string
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")

	cfg := config{}
	flag.StringVar(&cfg.addr, "addr", envOr("CANVASD_ADDR", ":8080"), "listen address")
	flag.StringVar(&cfg.dbPath, "db", envOr("CANVASD_DB", "canvasync.db"), "sqlite database path")
	flag.StringVar(&cfg.jwtSecret, "jwt-secret", os.Getenv("CANVASD_JWT_SECRET"), "JWT signing secret (required)")
	flag.StringVar(&cfg.passcodeHash, "passcode-hash", os.Getenv("CANVASD_PASSCODE_HASH"),
		"bcrypt hash of the shared board passcode (empty disables the check)")
	flag.DurationVar(&cfg.tokenTTL, "token-ttl", 24*time.Hour, "session token lifetime")
	flag.DurationVar(&cfg.sweepInterval, "sweep-interval", 30*time.Second, "stale presence sweep interval")
	flag.StringVar(&cfg.logLevel, "log-level", envOr("CANVASD_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := newLogger(cfg.logLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	if cfg.jwtSecret == "" {
		return errors.New("jwt secret is required (set -jwt-secret or CANVASD_JWT_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open project storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close project storage", "error", err)
		}
	}()

	tokens := jwt.NewService(cfg.jwtSecret, cfg.tokenTTL)
	boards := hub.New(hub.DefaultLivenessWindow, logger)
	go boards.RunSweeper(ctx, cfg.sweepInterval)

	joinHandler := handlers.NewJoinHandler(tokens, []byte(cfg.passcodeHash), logger)
	wsHandler := handlers.NewWSHandler(boards, tokens, logger)
	projectsHandler := handlers.NewProjectsHandler(store, boards, logger)

	authed := middleware.Auth(logger, tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/join", joinHandler.Join)
	mux.HandleFunc("GET /ws", wsHandler.Serve)
	mux.Handle("GET /api/projects", authed(http.HandlerFunc(projectsHandler.List)))
	mux.Handle("GET /api/projects/{id}", authed(http.HandlerFunc(projectsHandler.Get)))
	mux.Handle("PUT /api/projects/{id}", authed(http.HandlerFunc(projectsHandler.Save)))
	mux.Handle("DELETE /api/projects/{id}", authed(http.HandlerFunc(projectsHandler.Delete)))
	mux.Handle("POST /api/projects/{id}/load", authed(http.HandlerFunc(projectsHandler.Load)))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := middleware.Recovery(logger)(middleware.Logging(logger)(mux))

	server := &http.Server{
		Addr:              cfg.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", cfg.addr, "version", Version, "commit", GitCommit)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printVersion() {
	fmt.Printf("canvasd\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
