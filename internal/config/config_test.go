package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLogLevel(t *testing.T) {
	t.Run("development defaults to debug", func(t *testing.T) {
		t.Setenv("ENV", "development")
		t.Setenv("LOG_LEVEL", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("production defaults to info", func(t *testing.T) {
		t.Setenv("ENV", "production")
		t.Setenv("LOG_LEVEL", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("explicit level wins over environment", func(t *testing.T) {
		t.Setenv("ENV", "development")
		t.Setenv("LOG_LEVEL", "warn")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})
}

func TestLoadOptimizationDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "best1bin", cfg.Optimization.Strategy)
	assert.Equal(t, 15, cfg.Optimization.PopSize)
	assert.Equal(t, 0.01, cfg.Optimization.Tol)
}
