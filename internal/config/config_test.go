package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  chat_id: -100200300
server:
  name: "Survival"
  ws_url: "ws://mc.example:8765"
  host: "mc.example"
  port: 25566
  reconnect_attempts: 3
  reconnect_delay: 5s
storage:
  dir: "/var/lib/bridge"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.ChatID != -100200300 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Server.WSURL != "ws://mc.example:8765" || cfg.Server.Port != 25566 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Server.ReconnectDelay != 5*time.Second {
		t.Fatalf("reconnect delay = %v", cfg.Server.ReconnectDelay)
	}
	if cfg.Storage.Dir != "/var/lib/bridge" {
		t.Fatalf("storage dir = %q", cfg.Storage.Dir)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  chat_id: 1
server:
  ws_url: "ws://localhost:8765"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 25565 {
		t.Fatalf("default port = %d", cfg.Server.Port)
	}
	if cfg.Server.ReconnectAttempts != 10 || cfg.Server.ReconnectDelay != 2*time.Second {
		t.Fatalf("default reconnect = %+v", cfg.Server)
	}
	if cfg.Storage.Dir != "data" || cfg.Log.File != "logs/bridge.log" || cfg.Log.Level != "info" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "file-token"
  chat_id: 1
server:
  ws_url: "ws://from-file"
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("BRIDGE_WS_URL", "ws://from-env")
	t.Setenv("MC_SERVER_PORT", "25570")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Server.WSURL != "ws://from-env" || cfg.Server.Port != 25570 {
		t.Fatalf("server = %+v", cfg.Server)
	}
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-42")
	t.Setenv("BRIDGE_WS_URL", "ws://localhost:8765")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.ChatID != -42 {
		t.Fatalf("chat id = %d", cfg.Telegram.ChatID)
	}
}

func TestLoadRejectsMissingRequired(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no token", "telegram:\n  chat_id: 1\nserver:\n  ws_url: ws://x\n"},
		{"no chat id", "telegram:\n  token: t\nserver:\n  ws_url: ws://x\n"},
		{"no ws url", "telegram:\n  token: t\n  chat_id: 1\n"},
		{"bad port", "telegram:\n  token: t\n  chat_id: 1\nserver:\n  ws_url: ws://x\n  port: 99999\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatal("Load accepted an invalid config")
			}
		})
	}
}
