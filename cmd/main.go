// Command main serves the read-only inspector over a stats document.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/revstat/internal/adapters/http/api"
	"github.com/okian/revstat/internal/adapters/repository"
	app "github.com/okian/revstat/internal/app"
	"github.com/okian/revstat/internal/config"
	"github.com/okian/revstat/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(strings.ToLower(cfg.LogFormat))); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := serve(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "inspector failed", logger.Error(err))
		os.Exit(1)
	}
}

// newHandler wires the inspector routes over the configured stats document.
func newHandler(ctx context.Context, cfg *config.Config) http.Handler {
	store := repository.NewFileStore(cfg.StatsDB, repository.WithLockTimeout(cfg.LockTimeout()))
	svc := app.New(app.WithStore(store), app.WithLogger(logger.Get()))

	mux := http.NewServeMux()
	api.NewServer(svc, cfg.MaxLeaderboardLimit).Register(ctx, mux)
	return mux
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("stats_db", cfg.StatsDB))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}
