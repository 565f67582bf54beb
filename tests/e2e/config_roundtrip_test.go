package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tinyland-inc/wingmate/pkg/config"
)

// TestConfigRoundtrip verifies that a saved config loads back with the
// same values and that environment variables overlay the file.
func TestConfigRoundtrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := config.DefaultConfig()
	cfg.Bot.Name = "nova"
	cfg.Bot.Triggers = []string{"nova", "wingmate"}
	cfg.Transports.WhatsApp.Enabled = true
	cfg.Transports.WhatsApp.Command = "node bridge/index.js"
	cfg.Safety.MaxRepliesPerHour = 7
	cfg.Paths.DataDir = tmpDir

	if err := config.SaveConfig(path, cfg); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms: got %o, want 600", perm)
	}

	loaded, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if loaded.Bot.Name != "nova" {
		t.Errorf("bot.name: got %s, want nova", loaded.Bot.Name)
	}
	if len(loaded.Bot.Triggers) != 2 {
		t.Errorf("bot.triggers: got %v", loaded.Bot.Triggers)
	}
	if !loaded.Transports.WhatsApp.Enabled {
		t.Error("transports.whatsapp.enabled lost in roundtrip")
	}
	if loaded.Safety.MaxRepliesPerHour != 7 {
		t.Errorf("safety.max_replies_per_hour: got %d, want 7", loaded.Safety.MaxRepliesPerHour)
	}
	if loaded.Paths.Database == "" {
		t.Error("paths.database not resolved from data dir")
	}
}

func TestConfigEnvOverlay(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := config.DefaultConfig()
	cfg.Paths.DataDir = tmpDir
	if err := config.SaveConfig(path, cfg); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	t.Setenv("WINGMATE_BOT_NAME", "envbot")
	t.Setenv("WINGMATE_PROVIDER_API_KEY", "sk-from-env")
	t.Setenv("WINGMATE_SAFETY_COOLDOWN_SECONDS", "45")

	loaded, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if loaded.Bot.Name != "envbot" {
		t.Errorf("bot.name: got %s, want envbot", loaded.Bot.Name)
	}
	if loaded.Provider.APIKey != "sk-from-env" {
		t.Errorf("provider.api_key: got %s", loaded.Provider.APIKey)
	}
	if loaded.Safety.CooldownSeconds != 45 {
		t.Errorf("safety.cooldown_seconds: got %d, want 45", loaded.Safety.CooldownSeconds)
	}
}
