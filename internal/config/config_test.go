package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Assistant.Model != DefaultModel {
		t.Errorf("model = %q, want %q", cfg.Assistant.Model, DefaultModel)
	}
	if cfg.Assistant.MaxTokens != DefaultMaxTokens {
		t.Errorf("maxTokens = %d, want %d", cfg.Assistant.MaxTokens, DefaultMaxTokens)
	}
	if cfg.Assistant.Funnel != "full" {
		t.Errorf("funnel = %q, want 'full'", cfg.Assistant.Funnel)
	}
	if cfg.Gateway.Host != DefaultHost {
		t.Errorf("host = %q, want %q", cfg.Gateway.Host, DefaultHost)
	}
	if cfg.Gateway.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.Gateway.Port, DefaultPort)
	}
	if cfg.Session.SnapshotTTLHours != DefaultSnapshotTTLHours {
		t.Errorf("snapshotTtlHours = %d, want %d", cfg.Session.SnapshotTTLHours, DefaultSnapshotTTLHours)
	}
	if cfg.Session.AbandonAfterSeconds != DefaultAbandonAfterSeconds {
		t.Errorf("abandonAfterSeconds = %d, want %d", cfg.Session.AbandonAfterSeconds, DefaultAbandonAfterSeconds)
	}
	if cfg.Session.ScrollThresholdPx != DefaultScrollThresholdPx {
		t.Errorf("scrollThresholdPx = %d, want %d", cfg.Session.ScrollThresholdPx, DefaultScrollThresholdPx)
	}
	if cfg.Session.DBPath == "" {
		t.Error("session db path should not be empty")
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("LEADFLOW_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Assistant.Model != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, cfg.Assistant.Model)
	}
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	dir := filepath.Join(tmpDir, ".leadflow")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	fileCfg := map[string]any{
		"assistant": map[string]any{"model": "from-file"},
		"provider":  map[string]any{"apiKey": "file-key"},
	}
	data, _ := json.Marshal(fileCfg)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LEADFLOW_API_KEY", "env-key")
	t.Setenv("LEADFLOW_TELEGRAM_CHAT_ID", "12345")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Assistant.Model != "from-file" {
		t.Errorf("model = %q, want 'from-file'", cfg.Assistant.Model)
	}
	// LEADFLOW_API_KEY wins over the file value
	if cfg.Provider.APIKey != "env-key" {
		t.Errorf("apiKey = %q, want 'env-key'", cfg.Provider.APIKey)
	}
	if cfg.Notify.Telegram.ChatID != 12345 {
		t.Errorf("telegram chatId = %d, want 12345", cfg.Notify.Telegram.ChatID)
	}
	// Fields absent from the file keep their defaults
	if cfg.Session.AbandonAfterSeconds != DefaultAbandonAfterSeconds {
		t.Errorf("abandonAfterSeconds = %d, want default", cfg.Session.AbandonAfterSeconds)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("LEADFLOW_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LEADFLOW_TELEGRAM_CHAT_ID", "")

	cfg := DefaultConfig()
	cfg.Assistant.Funnel = "scripted"
	cfg.Notify.Webhook.URL = "https://crm.example.com/hook"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig error: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if loaded.Assistant.Funnel != "scripted" {
		t.Errorf("funnel = %q, want 'scripted'", loaded.Assistant.Funnel)
	}
	if loaded.Notify.Webhook.URL != "https://crm.example.com/hook" {
		t.Errorf("webhook url = %q", loaded.Notify.Webhook.URL)
	}
}
