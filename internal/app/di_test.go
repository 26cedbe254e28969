package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenvault/tokenvault/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		LogLevel:         "info",
		ServerHost:       "127.0.0.1",
		ServerPort:       0,
		UsersFile:        filepath.Join(dir, "users.xml"),
		CardsFile:        filepath.Join(dir, "cards.xml"),
		TokenMaxAttempts: 100,
		MetricsEnabled:   false,
		MetricsHost:      "127.0.0.1",
		MetricsPort:      0,
	}
}

func TestContainer(t *testing.T) {
	t.Run("Success_NewContainer", func(t *testing.T) {
		cfg := testConfig(t)
		container := NewContainer(cfg)

		require.NotNil(t, container)
		assert.Same(t, cfg, container.Config())
	})

	t.Run("Success_LoggerIsSingleton", func(t *testing.T) {
		container := NewContainer(testConfig(t))

		logger := container.Logger()
		require.NotNil(t, logger)
		assert.Same(t, logger, container.Logger())
	})

	t.Run("Success_MetricsDisabledYieldsNilProviderAndNoOp", func(t *testing.T) {
		container := NewContainer(testConfig(t))

		provider, err := container.MetricsProvider()
		require.NoError(t, err)
		assert.Nil(t, provider)

		businessMetrics, err := container.BusinessMetrics()
		require.NoError(t, err)
		assert.NotNil(t, businessMetrics)
	})

	t.Run("Success_MetricsEnabled", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.MetricsEnabled = true
		cfg.MetricsNamespace = "tokenvault_test"
		container := NewContainer(cfg)

		provider, err := container.MetricsProvider()
		require.NoError(t, err)
		require.NotNil(t, provider)

		businessMetrics, err := container.BusinessMetrics()
		require.NoError(t, err)
		assert.NotNil(t, businessMetrics)
	})

	t.Run("Success_RegistriesAreSingletons", func(t *testing.T) {
		container := NewContainer(testConfig(t))

		assert.Same(t, container.UserRepository(), container.UserRepository())
		assert.Same(t, container.CardRepository(), container.CardRepository())
	})

	t.Run("Success_UseCasesBuild", func(t *testing.T) {
		container := NewContainer(testConfig(t))

		accounts, err := container.AccountUseCase()
		require.NoError(t, err)
		assert.NotNil(t, accounts)

		tokens, err := container.TokenizationUseCase()
		require.NoError(t, err)
		assert.NotNil(t, tokens)
	})

	t.Run("Success_ServersBuild", func(t *testing.T) {
		container := NewContainer(testConfig(t))

		tokenServer, err := container.TokenServer()
		require.NoError(t, err)
		assert.NotNil(t, tokenServer)

		opsServer, err := container.OpsServer()
		require.NoError(t, err)
		assert.NotNil(t, opsServer)
	})

	t.Run("Success_ShutdownSavesSnapshot", func(t *testing.T) {
		cfg := testConfig(t)
		container := NewContainer(cfg)

		container.SnapshotManager().Load()
		require.NoError(t, container.Shutdown(context.Background()))

		assert.FileExists(t, cfg.UsersFile)
		assert.FileExists(t, cfg.CardsFile)
	})
}
