package commands

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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/tokenvault/tokenvault/internal/app"
	"github.com/tokenvault/tokenvault/internal/config"
)

const shutdownTimeout = 30 * time.Second

// RunServer starts the token server with graceful shutdown support.
// Loads configuration, initializes the DI container, restores the registries
// from their XML snapshots, and starts the TCP and ops servers. Blocks until
// receiving SIGINT/SIGTERM or encountering a fatal error; a final snapshot is
// taken on the way out.
func RunServer(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting token vault", slog.String("version", version))

	// Ensure cleanup on exit; this also takes the final snapshot
	defer closeContainer(container, logger)

	// Get servers from container (this initializes all dependencies)
	tokenServer, err := container.TokenServer()
	if err != nil {
		return fmt.Errorf("failed to initialize token server: %w", err)
	}

	opsServer, err := container.OpsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize ops server: %w", err)
	}

	// Restore registries from disk before accepting connections
	container.SnapshotManager().Load()

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run servers and the periodic snapshot loop under one supervisor
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := tokenServer.Start(gctx); err != nil {
			return fmt.Errorf("token server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := opsServer.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server error: %w", err)
		}
		return nil
	})

	if cfg.SnapshotInterval > 0 {
		g.Go(func() error {
			return runSnapshotLoop(gctx, container, cfg.SnapshotInterval, logger)
		})
	}

	// Wait for shutdown signal or a failing server
	<-gctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErrors []error

	if err := tokenServer.Shutdown(shutdownCtx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("token server shutdown: %w", err))
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("ops server shutdown: %w", err))
	}
	if err := g.Wait(); err != nil {
		shutdownErrors = append(shutdownErrors, err)
	}

	if len(shutdownErrors) > 0 {
		return errors.Join(shutdownErrors...)
	}

	return nil
}

// runSnapshotLoop saves the registries every interval until the context ends.
// A failed save is logged and retried on the next tick.
func runSnapshotLoop(ctx context.Context, container *app.Container, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := container.SnapshotManager().Save(); err != nil {
				logger.Error("periodic snapshot failed", slog.Any("error", err))
			}
		}
	}
}
