package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultModel               = "gpt-4o-mini"
	DefaultMaxTokens           = 1024
	DefaultTemperature         = 0.7
	DefaultMaxRetries          = 3
	DefaultHost                = "0.0.0.0"
	DefaultPort                = 18460
	DefaultBufSize             = 100
	DefaultSnapshotTTLHours    = 24
	DefaultAutosaveInterval    = "30s"
	DefaultAbandonInterval     = "10s"
	DefaultAbandonAfterSeconds = 120
	DefaultScrollThresholdPx   = 100
	DefaultEnrichCacheSize     = 256
)

type Config struct {
	Assistant AssistantConfig `json:"assistant"`
	Provider  ProviderConfig  `json:"provider"`
	Session   SessionConfig   `json:"session"`
	Enrich    EnrichConfig    `json:"enrich"`
	Notify    NotifyConfig    `json:"notify"`
	Gateway   GatewayConfig   `json:"gateway"`
}

type AssistantConfig struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	MaxRetries  int     `json:"maxRetries"`
	// Funnel selects the intake variant: "full" (default) or "scripted".
	Funnel string `json:"funnel,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
}

type SessionConfig struct {
	DBPath              string `json:"dbPath,omitempty"`
	SnapshotTTLHours    int    `json:"snapshotTtlHours"`
	AutosaveInterval    string `json:"autosaveInterval"`
	AbandonInterval     string `json:"abandonInterval"`
	AbandonAfterSeconds int    `json:"abandonAfterSeconds"`
	ScrollThresholdPx   int    `json:"scrollThresholdPx"`
}

type EnrichConfig struct {
	Enabled   bool   `json:"enabled"`
	BaseURL   string `json:"baseUrl,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
	CacheSize int    `json:"cacheSize,omitempty"`
}

type NotifyConfig struct {
	Telegram TelegramNotifyConfig `json:"telegram"`
	Webhook  WebhookNotifyConfig  `json:"webhook"`
}

type TelegramNotifyConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chatId"`
}

type WebhookNotifyConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Secret  string `json:"secret,omitempty"`
}

type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func DefaultConfig() *Config {
	return &Config{
		Assistant: AssistantConfig{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			MaxRetries:  DefaultMaxRetries,
			Funnel:      "full",
		},
		Provider: ProviderConfig{},
		Session: SessionConfig{
			DBPath:              filepath.Join(ConfigDir(), "data", "sessions.db"),
			SnapshotTTLHours:    DefaultSnapshotTTLHours,
			AutosaveInterval:    DefaultAutosaveInterval,
			AbandonInterval:     DefaultAbandonInterval,
			AbandonAfterSeconds: DefaultAbandonAfterSeconds,
			ScrollThresholdPx:   DefaultScrollThresholdPx,
		},
		Enrich: EnrichConfig{
			CacheSize: DefaultEnrichCacheSize,
		},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".leadflow")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	// A .env in the working directory is optional; missing is fine.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
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
	if key := os.Getenv("LEADFLOW_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("LEADFLOW_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("LEADFLOW_MODEL"); model != "" {
		cfg.Assistant.Model = model
	}
	if dbPath := os.Getenv("LEADFLOW_SESSION_DB"); dbPath != "" {
		cfg.Session.DBPath = dbPath
	}
	if token := os.Getenv("LEADFLOW_TELEGRAM_TOKEN"); token != "" {
		cfg.Notify.Telegram.Token = token
	}
	if chatID := os.Getenv("LEADFLOW_TELEGRAM_CHAT_ID"); chatID != "" {
		if parsed, err := strconv.ParseInt(chatID, 10, 64); err == nil {
			cfg.Notify.Telegram.ChatID = parsed
		}
	}
	if url := os.Getenv("LEADFLOW_WEBHOOK_URL"); url != "" {
		cfg.Notify.Webhook.URL = url
		cfg.Notify.Webhook.Enabled = true
	}
	if url := os.Getenv("LEADFLOW_ENRICH_URL"); url != "" {
		cfg.Enrich.BaseURL = url
		cfg.Enrich.Enabled = true
	}
	if key := os.Getenv("LEADFLOW_ENRICH_API_KEY"); key != "" {
		cfg.Enrich.APIKey = key
	}

	if cfg.Session.DBPath == "" {
		cfg.Session.DBPath = DefaultConfig().Session.DBPath
	}
	if cfg.Session.SnapshotTTLHours <= 0 {
		cfg.Session.SnapshotTTLHours = DefaultSnapshotTTLHours
	}
	if cfg.Session.AutosaveInterval == "" {
		cfg.Session.AutosaveInterval = DefaultAutosaveInterval
	}
	if cfg.Session.AbandonInterval == "" {
		cfg.Session.AbandonInterval = DefaultAbandonInterval
	}
	if cfg.Session.AbandonAfterSeconds <= 0 {
		cfg.Session.AbandonAfterSeconds = DefaultAbandonAfterSeconds
	}
	if cfg.Session.ScrollThresholdPx <= 0 {
		cfg.Session.ScrollThresholdPx = DefaultScrollThresholdPx
	}
	if cfg.Enrich.CacheSize <= 0 {
		cfg.Enrich.CacheSize = DefaultEnrichCacheSize
	}
	if cfg.Assistant.MaxRetries <= 0 {
		cfg.Assistant.MaxRetries = DefaultMaxRetries
	}
	if cfg.Assistant.Funnel == "" {
		cfg.Assistant.Funnel = "full"
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
