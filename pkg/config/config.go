// Package config loads the JSON config file and applies environment
// variable overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/tinyland-inc/wingmate/pkg/providers"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", v))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Bot        BotConfig        `json:"bot"`
	Transports TransportsConfig `json:"transports"`
	Provider   providers.Config `json:"provider"        envPrefix:"WINGMATE_PROVIDER_"`
	Safety     SafetyConfig     `json:"safety"`
	Agent      AgentConfig      `json:"agent"`
	Heartbeat  HeartbeatConfig  `json:"heartbeat"`
	Paths      PathsConfig      `json:"paths"`
}

type BotConfig struct {
	Name     string              `env:"WINGMATE_BOT_NAME"     json:"name"`
	Tone     string              `env:"WINGMATE_BOT_TONE"     json:"tone"`
	Triggers FlexibleStringSlice `env:"WINGMATE_BOT_TRIGGERS" json:"triggers"`
}

type TransportsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	IMessage IMessageConfig `json:"imessage"`
	Discord  DiscordConfig  `json:"discord"`
}

type WhatsAppConfig struct {
	Enabled   bool   `env:"WINGMATE_TRANSPORTS_WHATSAPP_ENABLED"    json:"enabled"`
	Command   string `env:"WINGMATE_TRANSPORTS_WHATSAPP_COMMAND"    json:"command"`
	WorkDir   string `env:"WINGMATE_TRANSPORTS_WHATSAPP_WORK_DIR"   json:"work_dir"`
	BridgeURL string `env:"WINGMATE_TRANSPORTS_WHATSAPP_BRIDGE_URL" json:"bridge_url"`
}

type IMessageConfig struct {
	Enabled      bool   `env:"WINGMATE_TRANSPORTS_IMESSAGE_ENABLED"       json:"enabled"`
	DBPath       string `env:"WINGMATE_TRANSPORTS_IMESSAGE_DB_PATH"       json:"db_path"`
	PollInterval int    `env:"WINGMATE_TRANSPORTS_IMESSAGE_POLL_INTERVAL" json:"poll_interval"` // seconds, min 1
}

type DiscordConfig struct {
	Enabled   bool                `env:"WINGMATE_TRANSPORTS_DISCORD_ENABLED"    json:"enabled"`
	Token     string              `env:"WINGMATE_TRANSPORTS_DISCORD_TOKEN"      json:"token"`
	AllowFrom FlexibleStringSlice `env:"WINGMATE_TRANSPORTS_DISCORD_ALLOW_FROM" json:"allow_from"`
}

type SafetyConfig struct {
	MaxRepliesPerHour  int  `env:"WINGMATE_SAFETY_MAX_REPLIES_PER_HOUR" json:"max_replies_per_hour"`
	CooldownSeconds    int  `env:"WINGMATE_SAFETY_COOLDOWN_SECONDS"     json:"cooldown_seconds"`
	QuietHoursEnabled  bool `env:"WINGMATE_SAFETY_QUIET_HOURS_ENABLED"  json:"quiet_hours_enabled"`
	QuietHoursStart    int  `env:"WINGMATE_SAFETY_QUIET_HOURS_START"    json:"quiet_hours_start"`
	QuietHoursEnd      int  `env:"WINGMATE_SAFETY_QUIET_HOURS_END"      json:"quiet_hours_end"`
	SkipIfLastFromSelf bool `env:"WINGMATE_SAFETY_SKIP_IF_LAST_FROM_SELF" json:"skip_if_last_from_self"`
}

type AgentConfig struct {
	ContextWindow int `env:"WINGMATE_AGENT_CONTEXT_WINDOW" json:"context_window"`
}

type HeartbeatConfig struct {
	Enabled       bool   `env:"WINGMATE_HEARTBEAT_ENABLED"        json:"enabled"`
	Schedule      string `env:"WINGMATE_HEARTBEAT_SCHEDULE"       json:"schedule"`
	RetentionDays int    `env:"WINGMATE_HEARTBEAT_RETENTION_DAYS" json:"retention_days"`
}

type PathsConfig struct {
	DataDir  string `env:"WINGMATE_PATHS_DATA_DIR" json:"data_dir"`
	Socket   string `env:"WINGMATE_PATHS_SOCKET"   json:"socket"`
	Database string `env:"WINGMATE_PATHS_DATABASE" json:"database"`
	Contacts string `env:"WINGMATE_PATHS_CONTACTS" json:"contacts"`
	Groups   string `env:"WINGMATE_PATHS_GROUPS"   json:"groups"`
	Rules    string `env:"WINGMATE_PATHS_RULES"    json:"rules"`
}

// DefaultConfig returns the starter configuration written by onboard.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Name: "max",
			Tone: "casual",
		},
		Transports: TransportsConfig{
			WhatsApp: WhatsAppConfig{
				Command: "node bridge/index.js",
			},
			IMessage: IMessageConfig{
				DBPath:       "~/Library/Messages/chat.db",
				PollInterval: 2,
			},
		},
		Provider: providers.Config{
			Name:      "openai",
			Model:     "gpt-4o-mini",
			MaxTokens: 512,
		},
		Safety: SafetyConfig{
			MaxRepliesPerHour:  12,
			CooldownSeconds:    120,
			QuietHoursEnabled:  true,
			QuietHoursStart:    23,
			QuietHoursEnd:      7,
			SkipIfLastFromSelf: true,
		},
		Agent: AgentConfig{
			ContextWindow: 20,
		},
		Heartbeat: HeartbeatConfig{
			Enabled:       true,
			Schedule:      "0 4 * * *",
			RetentionDays: 90,
		},
		Paths: PathsConfig{
			DataDir: "~/.wingmate",
		},
	}
}

// LoadConfig reads the JSON file at path, falls back to defaults when it
// does not exist, and applies WINGMATE_* env overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			cfg.resolvePaths()
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.resolvePaths()
	return cfg, nil
}

// SaveConfig writes the config as indented JSON, creating the parent
// directory when needed. Config files hold API keys, hence 0600.
func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// DataDir returns the expanded data directory.
func (c *Config) DataDir() string {
	return expandHome(c.Paths.DataDir)
}

// resolvePaths expands ~ and fills path fields that were left empty with
// locations under the data dir.
func (c *Config) resolvePaths() {
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "~/.wingmate"
	}
	dataDir := expandHome(c.Paths.DataDir)
	c.Paths.DataDir = dataDir

	fill := func(field *string, name string) {
		if *field == "" {
			*field = filepath.Join(dataDir, name)
		} else {
			*field = expandHome(*field)
		}
	}
	fill(&c.Paths.Socket, "wingmate.sock")
	fill(&c.Paths.Database, "messages.db")
	fill(&c.Paths.Contacts, "contacts.yaml")
	fill(&c.Paths.Groups, "groups.yaml")
	fill(&c.Paths.Rules, "rules.yaml")

	c.Transports.IMessage.DBPath = expandHome(c.Transports.IMessage.DBPath)
	if c.Transports.WhatsApp.WorkDir != "" {
		c.Transports.WhatsApp.WorkDir = expandHome(c.Transports.WhatsApp.WorkDir)
	}
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
