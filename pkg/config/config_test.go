package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "max", cfg.Bot.Name)
	assert.Equal(t, 12, cfg.Safety.MaxRepliesPerHour)
	assert.NotEmpty(t, cfg.Paths.Socket)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
  "bot": {"name": "ada", "triggers": ["ada", 42]},
  "safety": {"max_replies_per_hour": 3, "cooldown_seconds": 120, "quiet_hours_enabled": true, "quiet_hours_start": 23, "quiet_hours_end": 7, "skip_if_last_from_self": true},
  "paths": {"data_dir": "` + dir + `"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ada", cfg.Bot.Name)
	assert.Equal(t, FlexibleStringSlice{"ada", "42"}, cfg.Bot.Triggers)
	assert.Equal(t, 3, cfg.Safety.MaxRepliesPerHour)
	assert.Equal(t, filepath.Join(dir, "wingmate.sock"), cfg.Paths.Socket)
	assert.Equal(t, filepath.Join(dir, "contacts.yaml"), cfg.Paths.Contacts)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("WINGMATE_BOT_NAME", "vera")
	t.Setenv("WINGMATE_PROVIDER_MODEL", "gpt-4o")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "vera", cfg.Bot.Name)
	assert.Equal(t, "gpt-4o", cfg.Provider.Model)
}

func TestSaveConfigPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	require.NoError(t, SaveConfig(path, DefaultConfig()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg Config
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Equal(t, "max", cfg.Bot.Name)
}

func TestFlexibleStringSlice(t *testing.T) {
	var f FlexibleStringSlice
	require.NoError(t, json.Unmarshal([]byte(`["a", 123, true]`), &f))
	assert.Equal(t, FlexibleStringSlice{"a", "123", "true"}, f)
}
