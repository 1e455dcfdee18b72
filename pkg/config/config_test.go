package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 50, cfg.RateLimit.MaxPerSession)
	assert.Equal(t, 1.0, cfg.Session.ActionProbability)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit.MaxPerSession = -1
	cfg.Session.ActionProbability = 1.5
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max per session must be at least 1")
	assert.Contains(t, err.Error(), "action probability must be between 0 and 1")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidateRejectsZeroCaps(t *testing.T) {
	// A zero cap would deny every permit forever; it must fail validation
	// instead of producing a run that can never act.
	cfg := DefaultConfig()
	cfg.RateLimit.MaxPerSession = 0
	cfg.RateLimit.MaxPerHour = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max per session must be at least 1")
	assert.Contains(t, err.Error(), "max per hour must be at least 1")
}

func TestValidateDelayOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit.MinActionDelay = 10 * time.Second
	cfg.RateLimit.MaxActionDelay = 3 * time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min action delay greater than max action delay")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
rate_limit:
  max_per_session: 5
  max_per_hour: 3
session:
  action_probability: 0.4
filter:
  hashtags: ["golang"]
  exclude_reposts: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 5, cfg.RateLimit.MaxPerSession)
	assert.Equal(t, 3, cfg.RateLimit.MaxPerHour)
	assert.Equal(t, 0.4, cfg.Session.ActionProbability)
	assert.Equal(t, []string{"golang"}, cfg.Filter.Hashtags)
	assert.True(t, cfg.Filter.ExcludeReposts)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, 20, cfg.Session.BatchLimit)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit: ["), 0600))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FEEDBOT_USERNAME", "gopher")
	t.Setenv("FEEDBOT_AUTH_TOKEN", "tok")
	t.Setenv("FEEDBOT_MAX_PER_SESSION", "7")
	t.Setenv("FEEDBOT_HEADLESS", "false")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "gopher", cfg.Account.Username)
	assert.Equal(t, "tok", cfg.Account.AuthToken)
	assert.Equal(t, 7, cfg.RateLimit.MaxPerSession)
	assert.False(t, cfg.Browser.Headless)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"max-per-session": 10,
		"max-per-hour":    4,
		"duration":        15 * time.Minute,
		"probability":     0.25,
		"output":          "/tmp/results",
		"log-level":       "warn",
	})

	assert.Equal(t, 10, cfg.RateLimit.MaxPerSession)
	assert.Equal(t, 4, cfg.RateLimit.MaxPerHour)
	assert.Equal(t, 15*time.Minute, cfg.Session.Duration)
	assert.Equal(t, 0.25, cfg.Session.ActionProbability)
	assert.Equal(t, "/tmp/results", cfg.Output.BaseDirectory)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FEEDBOT_MAX_PER_SESSION", "7")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	cfg.MergeCommandLineFlags(map[string]interface{}{"max-per-session": 2})

	assert.Equal(t, 2, cfg.RateLimit.MaxPerSession)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.RateLimit.MaxPerHour = 12
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 12, loaded.RateLimit.MaxPerHour)
}
