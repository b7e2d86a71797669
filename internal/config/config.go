package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 8080
	DefaultStoreBackend  = "file"
	DefaultMaxTokens     = 2500
	DefaultMaxEvents     = 200
	DefaultContextLimit  = 5
	DefaultSweepSchedule = "0 */10 * * * *"
	DefaultBufSize       = 100
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Store    StoreConfig    `json:"store"`
	Engine   EngineConfig   `json:"engine"`
	Rules    RulesConfig    `json:"rules"`
	Channels ChannelsConfig `json:"channels"`
	GC       GCConfig       `json:"gc"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type StoreConfig struct {
	Backend string `json:"backend"` // "file" or "sqlite"
	Path    string `json:"path"`
}

type EngineConfig struct {
	MaxTokens    int `json:"maxTokens"`
	MaxEvents    int `json:"maxEvents"`
	ContextLimit int `json:"contextLimit"`
}

type RulesConfig struct {
	Path string `json:"path,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	WebChat  WebChatConfig  `json:"webchat"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type WebChatConfig struct {
	Enabled   bool     `json:"enabled"`
	Port      int      `json:"port,omitempty"`
	AllowFrom []string `json:"allowFrom"`
}

type GCConfig struct {
	SweepEnabled  bool   `json:"sweepEnabled"`
	SweepSchedule string `json:"sweepSchedule"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Store: StoreConfig{
			Backend: DefaultStoreBackend,
			Path:    filepath.Join(ConfigDir(), "memory.json"),
		},
		Engine: EngineConfig{
			MaxTokens:    DefaultMaxTokens,
			MaxEvents:    DefaultMaxEvents,
			ContextLimit: DefaultContextLimit,
		},
		Channels: ChannelsConfig{},
		GC: GCConfig{
			SweepEnabled:  true,
			SweepSchedule: DefaultSweepSchedule,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".recall")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	return loadConfigFrom(ConfigPath())
}

func loadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if host := os.Getenv("RECALL_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("RECALL_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = parsed
		}
	}
	if backend := os.Getenv("RECALL_STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if path := os.Getenv("RECALL_STORE_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if path := os.Getenv("RECALL_RULES_PATH"); path != "" {
		cfg.Rules.Path = path
	}
	if maxTokens := os.Getenv("RECALL_MAX_TOKENS"); maxTokens != "" {
		if parsed, err := strconv.Atoi(maxTokens); err == nil {
			cfg.Engine.MaxTokens = parsed
		}
	}
	if maxEvents := os.Getenv("RECALL_MAX_EVENTS"); maxEvents != "" {
		if parsed, err := strconv.Atoi(maxEvents); err == nil {
			cfg.Engine.MaxEvents = parsed
		}
	}
	if token := os.Getenv("RECALL_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if enabled := os.Getenv("RECALL_GC_SWEEP"); enabled != "" {
		if parsed, err := strconv.ParseBool(enabled); err == nil {
			cfg.GC.SweepEnabled = parsed
		}
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultConfig().Store.Path
	}
	if cfg.Engine.MaxTokens <= 0 {
		cfg.Engine.MaxTokens = DefaultMaxTokens
	}
	if cfg.Engine.MaxEvents <= 0 {
		cfg.Engine.MaxEvents = DefaultMaxEvents
	}
	if cfg.Engine.ContextLimit <= 0 {
		cfg.Engine.ContextLimit = DefaultContextLimit
	}
	if cfg.GC.SweepSchedule == "" {
		cfg.GC.SweepSchedule = DefaultSweepSchedule
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
