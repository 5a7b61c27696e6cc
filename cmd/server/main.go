// Command tc-server starts the trophycase HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/trophycase/internal/config"
	"github.com/and161185/trophycase/internal/logging"
	"github.com/and161185/trophycase/internal/server/httpapi"
	"github.com/and161185/trophycase/internal/service"
	"github.com/and161185/trophycase/internal/storage"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const sweepEvery = 10 * time.Minute

func main() {
	os.Exit(run(os.Args[1:]))
}

// run loads configuration, prepares storage and serves the API until
// SIGINT/SIGTERM. It returns the process exit code so deferred cleanup runs.
func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	logger, logCloser, err := logging.New(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
		_ = logCloser.Close()
	}()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("db", cfg.DBDriver),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, storage.SettingsFromConfig(cfg), logger)
	if err != nil {
		logger.Error("storage", zap.Error(err))
		return 1
	}
	defer backend.Close()

	// Services
	achSvc := service.NewAchievementService(backend.Store)
	sessSvc := service.NewSessionService(backend.Store, []byte(cfg.SessionKey), cfg.SessionTTL)
	authSvc := service.NewAuthService(backend.Store, achSvc, sessSvc, backend.Limiter, logger)

	api := httpapi.New(authSvc, achSvc, sessSvc, logger, httpapi.Options{
		CookieSecure: cfg.CookieSecure,
		CORSOrigins:  cfg.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweepSessions(ctx, sessSvc, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			return 1
		}
	}

	logger.Info("shutdown complete")
	return 0
}

// sweepSessions drops expired sessions until ctx is done.
func sweepSessions(ctx context.Context, sessions service.SessionService, log *zap.Logger) {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := sessions.Sweep(ctx)
			if err != nil {
				log.Warn("session sweep", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("session sweep", zap.Int64("removed", n))
			}
		}
	}
}
