package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yml := `
trading:
  symbol: "BTCUSDT"
  initial_balance: 2500
  auto_trade: true
  max_daily_loss: 100
  strategy: "momentum"
simulator:
  min_latency_ms: 10
  max_latency_ms: 20
  close_latency_ms: 5
  open_failure_rate: 0
  close_failure_rate: 0.5
database:
  dsn: "file::memory:"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 2500.0, cfg.Trading.InitialBalance)
	assert.Equal(t, "momentum", cfg.Trading.Strategy)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	// Unset keys fall back to defaults.
	assert.Equal(t, 0.001, cfg.Trading.FeeRate)
	assert.Equal(t, "stream", cfg.Trading.FeedMode)
	assert.Equal(t, 15*time.Second, cfg.Trading.AnalysisEvery())

	eng := cfg.Engine()
	assert.True(t, eng.AutoTrade)
	assert.Equal(t, 100.0, eng.MaxDailyLoss)
	assert.Equal(t, 0.05, eng.MaxDrawdownPct)

	faults := cfg.Simulator.Faults()
	assert.Equal(t, 10*time.Millisecond, faults.MinLatency)
	assert.Equal(t, 20*time.Millisecond, faults.MaxLatency)
	assert.Equal(t, 5*time.Millisecond, faults.CloseLatency)
	assert.Equal(t, 0.5, faults.CloseFailureRate)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", cfg.Trading.Symbol)
	assert.Equal(t, 10000.0, cfg.Trading.InitialBalance)
	assert.Equal(t, 500.0, cfg.Trading.MaxDailyLoss)
	assert.Equal(t, 0.05, cfg.Simulator.OpenFailureRate)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TRADING_MAX_DAILY_LOSS", "250")
	t.Setenv("LOGGER_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 250.0, cfg.Trading.MaxDailyLoss)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRADING_STRATEGY=remote\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TRADING_STRATEGY") })

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "remote", cfg.Trading.Strategy)
}
