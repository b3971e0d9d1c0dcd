package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8093", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, filepath.Join("data", "events"), cfg.Data.EventsDir)
	assert.Equal(t, "pro", cfg.Data.Variant)
	assert.Equal(t, 365, cfg.Data.LookbackDays)
	assert.Equal(t, float64(1), cfg.Data.MinQty)
	assert.False(t, cfg.Data.IncludeLive)
	assert.Equal(t, 120, cfg.Train.Rounds)
	assert.Equal(t, 0.1, cfg.Train.LearningRate)
	assert.Equal(t, 0.2, cfg.Train.ValFraction)
	assert.Equal(t, 50, cfg.Train.MinRows)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/var/pipeline")
	t.Setenv("EVENTS_DIR", "/var/events")
	t.Setenv("EVENT_VARIANT", "lite")
	t.Setenv("LOOKBACK_DAYS", "30")
	t.Setenv("MIN_QTY", "10")
	t.Setenv("INCLUDE_LIVE", "true")
	t.Setenv("TRAIN_ROUNDS", "200")
	t.Setenv("VAL_FRACTION", "0.3")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/pipeline", cfg.Data.Dir)
	assert.Equal(t, "/var/events", cfg.Data.EventsDir)
	assert.Equal(t, "lite", cfg.Data.Variant)
	assert.Equal(t, 30, cfg.Data.LookbackDays)
	assert.Equal(t, float64(10), cfg.Data.MinQty)
	assert.True(t, cfg.Data.IncludeLive)
	assert.Equal(t, 200, cfg.Train.Rounds)
	assert.Equal(t, 0.3, cfg.Train.ValFraction)
	assert.Equal(t, "production", cfg.Env)
}

func TestLoad_EventsDirDefaultsUnderDataDir(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/state")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/state", "events"), cfg.Data.EventsDir)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("ENV", "sandbox")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidValFraction(t *testing.T) {
	t.Setenv("VAL_FRACTION", "1.5")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BadIntFallsBackToDefault(t *testing.T) {
	t.Setenv("TRAIN_ROUNDS", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Train.Rounds)
}
