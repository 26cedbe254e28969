// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	accountRepository "github.com/tokenvault/tokenvault/internal/account/repository"
	accountUsecase "github.com/tokenvault/tokenvault/internal/account/usecase"
	"github.com/tokenvault/tokenvault/internal/config"
	"github.com/tokenvault/tokenvault/internal/metrics"
	"github.com/tokenvault/tokenvault/internal/server"
	"github.com/tokenvault/tokenvault/internal/snapshot"
	tokenizationRepository "github.com/tokenvault/tokenvault/internal/tokenization/repository"
	tokenizationService "github.com/tokenvault/tokenvault/internal/tokenization/service"
	tokenizationUsecase "github.com/tokenvault/tokenvault/internal/tokenization/usecase"
)

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Registries
	userRepo *accountRepository.MemoryRepository
	cardRepo *tokenizationRepository.MemoryRepository

	// Use Cases
	accountUseCase      accountUsecase.UseCase
	tokenizationUseCase tokenizationUsecase.UseCase

	// Persistence
	snapshotManager *snapshot.Manager

	// Servers
	tokenServer *server.Server
	opsServer   *server.OpsServer

	// Initialization flags and mutex for thread-safety
	mu                      sync.Mutex
	loggerInit              sync.Once
	metricsProviderInit     sync.Once
	businessMetricsInit     sync.Once
	userRepoInit            sync.Once
	cardRepoInit            sync.Once
	accountUseCaseInit      sync.Once
	tokenizationUseCaseInit sync.Once
	snapshotManagerInit     sync.Once
	tokenServerInit         sync.Once
	opsServerInit           sync.Once
	initErrors              map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in
// configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// MetricsProvider returns the Prometheus metrics provider, or nil when
// metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// used when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		c.businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// UserRepository returns the in-memory user registry.
func (c *Container) UserRepository() *accountRepository.MemoryRepository {
	c.userRepoInit.Do(func() {
		c.userRepo = accountRepository.NewMemoryRepository()
	})
	return c.userRepo
}

// CardRepository returns the in-memory card and token registry.
func (c *Container) CardRepository() *tokenizationRepository.MemoryRepository {
	c.cardRepoInit.Do(func() {
		c.cardRepo = tokenizationRepository.NewMemoryRepository()
	})
	return c.cardRepo
}

// AccountUseCase returns the account use case instance.
func (c *Container) AccountUseCase() (accountUsecase.UseCase, error) {
	var err error
	c.accountUseCaseInit.Do(func() {
		var businessMetrics metrics.BusinessMetrics
		businessMetrics, err = c.BusinessMetrics()
		if err != nil {
			c.initErrors["accountUseCase"] = err
			return
		}
		c.accountUseCase = accountUsecase.NewAccountUseCase(c.UserRepository(), businessMetrics)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accountUseCase"]; exists {
		return nil, storedErr
	}
	return c.accountUseCase, nil
}

// TokenizationUseCase returns the tokenization use case instance.
func (c *Container) TokenizationUseCase() (tokenizationUsecase.UseCase, error) {
	var err error
	c.tokenizationUseCaseInit.Do(func() {
		var businessMetrics metrics.BusinessMetrics
		businessMetrics, err = c.BusinessMetrics()
		if err != nil {
			c.initErrors["tokenizationUseCase"] = err
			return
		}
		c.tokenizationUseCase = tokenizationUsecase.NewTokenizationUseCase(
			tokenizationService.NewTokenizer(),
			c.CardRepository(),
			c.config.TokenMaxAttempts,
			businessMetrics,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenizationUseCase"]; exists {
		return nil, storedErr
	}
	return c.tokenizationUseCase, nil
}

// SnapshotManager returns the XML snapshot manager for both registries.
func (c *Container) SnapshotManager() *snapshot.Manager {
	c.snapshotManagerInit.Do(func() {
		c.snapshotManager = snapshot.NewManager(
			c.config.UsersFile,
			c.config.CardsFile,
			c.UserRepository(),
			c.CardRepository(),
			c.Logger(),
		)
	})
	return c.snapshotManager
}

// TokenServer returns the TCP server instance.
func (c *Container) TokenServer() (*server.Server, error) {
	var err error
	c.tokenServerInit.Do(func() {
		var accounts accountUsecase.UseCase
		accounts, err = c.AccountUseCase()
		if err != nil {
			c.initErrors["tokenServer"] = err
			return
		}

		var tokens tokenizationUsecase.UseCase
		tokens, err = c.TokenizationUseCase()
		if err != nil {
			c.initErrors["tokenServer"] = err
			return
		}

		var businessMetrics metrics.BusinessMetrics
		businessMetrics, err = c.BusinessMetrics()
		if err != nil {
			c.initErrors["tokenServer"] = err
			return
		}

		c.tokenServer = server.NewServer(
			c.config.ServerHost,
			c.config.ServerPort,
			c.Logger(),
			accounts,
			tokens,
			businessMetrics,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenServer"]; exists {
		return nil, storedErr
	}
	return c.tokenServer, nil
}

// OpsServer returns the operational HTTP server instance.
func (c *Container) OpsServer() (*server.OpsServer, error) {
	var err error
	c.opsServerInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["opsServer"] = err
			return
		}
		c.opsServer = server.NewOpsServer(
			c.config.MetricsHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["opsServer"]; exists {
		return nil, storedErr
	}
	return c.opsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown servers if initialized
	if c.tokenServer != nil {
		if err := c.tokenServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("token server shutdown: %w", err))
		}
	}
	if c.opsServer != nil {
		if err := c.opsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("ops server shutdown: %w", err))
		}
	}

	// Persist final registry state if the snapshot manager was used
	if c.snapshotManager != nil {
		if err := c.snapshotManager.Save(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("snapshot save: %w", err))
		}
	}

	// Flush metrics if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log
// level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}
