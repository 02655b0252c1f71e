package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 4.0, cfg.Trading.Leverage, 1e-9)
	assert.InDelta(t, 2000.0, cfg.Trading.SMAThreshold, 1e-9)
	assert.InDelta(t, 10.0, cfg.Trading.VolumeScale, 1e-9)
	assert.Equal(t, 96, cfg.Trading.MaxDeferralDays)
	assert.Equal(t, 360, cfg.Trading.DaysInYear)
	assert.InDelta(t, 0.65, cfg.Risk.LegDelta, 1e-9)
	assert.InDelta(t, 20.0, cfg.Risk.ScenarioLimit, 1e-9)
	assert.InDelta(t, 10.0, cfg.Risk.OverlayLimit, 1e-9)
	assert.InDelta(t, 0.01, cfg.Risk.EquityDeltaLimit, 1e-9)
	assert.Equal(t, 10, cfg.Risk.MaxCandidates)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.GCP.UseSecrets)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
account:
  gateway_url: https://localhost:5001
  account_id: U777
  offline: true
  static_net_liquidation: 50000
trading:
  leverage: 2
  volume_scale: 8
risk:
  scenario_limit: 15
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "https://localhost:5001", cfg.Account.GatewayURL)
	assert.Equal(t, "U777", cfg.Account.AccountID)
	assert.True(t, cfg.Account.Offline)
	assert.InDelta(t, 50000.0, cfg.Account.StaticNetLiquidation, 1e-9)
	assert.InDelta(t, 2.0, cfg.Trading.Leverage, 1e-9)
	assert.InDelta(t, 8.0, cfg.Trading.VolumeScale, 1e-9)
	assert.InDelta(t, 15.0, cfg.Risk.ScenarioLimit, 1e-9)

	// Untouched sections keep their defaults.
	assert.InDelta(t, 2000.0, cfg.Trading.SMAThreshold, 1e-9)
	assert.InDelta(t, 0.65, cfg.Risk.LegDelta, 1e-9)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HEDGE_GATEWAY_URL", "https://gw.example:5000")
	t.Setenv("HEDGE_ACCOUNT_ID", "U42")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8081\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example:5000", cfg.Account.GatewayURL)
	assert.Equal(t, "U42", cfg.Account.AccountID)
}
