package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8700", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Sampling.Interval)
	assert.Equal(t, 5, cfg.Sampling.WindowSize)
	assert.Equal(t, 0.5, cfg.Sampling.ResourceGrowth)
	assert.Equal(t, 0.3, cfg.Sampling.MemoryGrowth)
	assert.Equal(t, "conservative", cfg.Cleanup.AutoTier)
	assert.Equal(t, 30*time.Second, cfg.Cleanup.Cooldown)
	assert.Equal(t, 0.5, cfg.Cleanup.MaxReclaimRatio)
	assert.Equal(t, 0.70, cfg.Pressure.WarnRatio)
	assert.Equal(t, 0.85, cfg.Pressure.AggressiveRatio)
	assert.Equal(t, 0.95, cfg.Pressure.EmergencyRatio)
	assert.Equal(t, 3, cfg.Pressure.ReclaimAttempts)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SAMPLE_INTERVAL", "10s")
	t.Setenv("CLEANUP_AUTO_TIER", "moderate")
	t.Setenv("CLEANUP_MAX_RECLAIM_RATIO", "0.25")
	t.Setenv("PRESSURE_LIMIT_BYTES", "1073741824")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Sampling.Interval)
	assert.Equal(t, "moderate", cfg.Cleanup.AutoTier)
	assert.Equal(t, 0.25, cfg.Cleanup.MaxReclaimRatio)
	assert.Equal(t, uint64(1073741824), cfg.Pressure.LimitBytes)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("SAMPLE_INTERVAL", "not-a-duration")

	_, err := Load()
	assert.Error(t, err)
}

func TestDefaultMatchesEnvDefaults(t *testing.T) {
	loaded, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), loaded)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("CLEANUP_COOLDOWN", "bogus")

	cfg := LoadOrDefault()
	require.NotNil(t, cfg)
	assert.Equal(t, 30*time.Second, cfg.Cleanup.Cooldown)
}
