package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rawwerks/monty/internal/config"
	"github.com/rawwerks/monty/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monty.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONTY_CONFIG", writeConfig(t, ""))

	cfg, err := config.Load(nil)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, 500*time.Millisecond, cfg.SampleInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.RegisterInterval)
	assert.Equal(t, 60*time.Second, cfg.Retention)
	assert.Equal(t, 50, cfg.FPS)
	assert.Equal(t, 20*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, "/dev/cpu/0/msr", cfg.MSRPath)
	assert.Equal(t, int64(0x611), cfg.MSROffset)
	assert.Equal(t, "hwmon", cfg.SensorBackend)
	assert.Equal(t, "coretemp", cfg.SensorChip)
	assert.Equal(t, "temp1", cfg.SensorFeature)
	assert.False(t, cfg.JSON)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("MONTY_CONFIG", writeConfig(t, `
sample_interval = "1s"
fps = 25
sensor_backend = "host"
sensor_feature = "package"
log_level = "debug"
`))

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.SampleInterval)
	assert.Equal(t, 25, cfg.FPS)
	assert.Equal(t, "host", cfg.SensorBackend)
	assert.Equal(t, "package", cfg.SensorFeature)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	t.Setenv("MONTY_CONFIG", writeConfig(t, `fps = 25`))
	t.Setenv("MONTY_SENSOR_CHIP", "k10temp")

	cfg, err := config.Load([]string{"--fps", "30", "--json"})
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.FPS)
	assert.True(t, cfg.JSON)
	assert.Equal(t, "k10temp", cfg.SensorChip)
}

func TestLoadInvalidFile(t *testing.T) {
	t.Setenv("MONTY_CONFIG", writeConfig(t, "This is not a valid TOML file"))

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestValidation(t *testing.T) {
	t.Setenv("MONTY_CONFIG", writeConfig(t, ""))

	_, err := config.Load([]string{"--sensor-backend", "acpi"})
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig), "unknown backend must be rejected")

	_, err = config.Load([]string{"--fps", "0"})
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig), "zero fps must be rejected")

	_, err = config.Load([]string{"--sample-interval", "5ms"})
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInterval), "sampling faster than a frame must be rejected")
	assert.Contains(t, err.Error(), "shorter than one frame")
}

func TestUnknownFlag(t *testing.T) {
	t.Setenv("MONTY_CONFIG", writeConfig(t, ""))

	_, err := config.Load([]string{"--nope"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestSensorFeatureFollowsBackend(t *testing.T) {
	t.Setenv("MONTY_CONFIG", writeConfig(t, ""))

	cfg, err := config.Load([]string{"--sensor-backend", "host"})
	require.NoError(t, err)
	assert.Equal(t, "package", cfg.SensorFeature)

	cfg, err = config.Load([]string{"--sensor-backend", "host", "--sensor-feature", "core_0"})
	require.NoError(t, err)
	assert.Equal(t, "core_0", cfg.SensorFeature, "explicit feature wins")

	t.Setenv("MONTY_CONFIG", writeConfig(t, `sensor_backend = "host"`))
	cfg, err = config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "package", cfg.SensorFeature)
}
