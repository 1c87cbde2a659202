package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkovalev/crypto_score_bot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
exchange:
  api_key: key
  api_secret: secret
trading:
  symbol: ETHUSDT
  interval: 4h
daemon:
  poll_interval_ms: 2000
  cooldown_window_ms: 600000
risk:
  max_position_size_usd: 2500
signals:
  long_threshold: 0.3
  short_threshold: -0.3
logging:
  level: debug
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.Trading.Symbol)
	assert.Equal(t, "4h", cfg.Trading.Interval)
	assert.Equal(t, 2*time.Second, cfg.Daemon.PollInterval())
	assert.Equal(t, 10*time.Minute, cfg.Daemon.CooldownWindow())
	assert.Equal(t, 2500.0, cfg.Risk.MaxPositionSizeUSD)
	assert.Equal(t, 0.3, cfg.Signals.LongThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.HasCredentials())

	// Omitted sections keep their defaults.
	assert.Equal(t, 30*time.Minute, cfg.Daemon.ReversalWindow())
	assert.Equal(t, 0.01, cfg.Risk.MaxRiskPct)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_Validation(t *testing.T) {
	_, err := config.Load(writeConfig(t, "trading:\n  symbol: \"\"\n"))
	assert.Error(t, err, "empty symbol")

	_, err = config.Load(writeConfig(t, "risk:\n  max_risk_pct: 1.5\n"))
	assert.Error(t, err, "risk fraction out of range")

	_, err = config.Load(writeConfig(t, "signals:\n  long_threshold: -0.5\n  short_threshold: 0.5\n"))
	assert.Error(t, err, "inverted thresholds")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "BTCUSDT", cfg.Trading.Symbol)
	assert.False(t, cfg.HasCredentials(), "no credentials means simulation mode")
	assert.Equal(t, time.Second, cfg.Daemon.PollInterval())
	assert.Equal(t, 5*time.Minute, cfg.Daemon.CooldownWindow())
	assert.Equal(t, 1000.0, cfg.Risk.MaxPositionSizeUSD)
}
