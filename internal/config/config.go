package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TelegramConfig locates the bot and the single bridged group chat.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
	Proxy  string `yaml:"proxy"`
}

// ServerConfig locates the game server: the websocket link for events and
// the public address used by the status ping.
type ServerConfig struct {
	Name              string        `yaml:"name"`
	WSURL             string        `yaml:"ws_url"`
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type LocaleConfig struct {
	File string `yaml:"file"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type AppConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Locale   LocaleConfig   `yaml:"locale"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads the YAML file at path when it exists, applies environment
// overrides on top, fills defaults and validates. An empty path skips
// the file and configures from the environment alone.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{
		Server: ServerConfig{
			Port:              25565,
			ReconnectAttempts: 10,
			ReconnectDelay:    2 * time.Second,
		},
		Storage: StorageConfig{Dir: "data"},
		Log:     LogConfig{File: "logs/bridge.log", Level: "info"},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.Telegram.Token == "" {
		return nil, errors.New("telegram token is required (telegram.token or TELEGRAM_BOT_TOKEN)")
	}
	if cfg.Telegram.ChatID == 0 {
		return nil, errors.New("telegram chat id is required (telegram.chat_id or TELEGRAM_CHAT_ID)")
	}
	if cfg.Server.WSURL == "" {
		return nil, errors.New("server websocket url is required (server.ws_url or BRIDGE_WS_URL)")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("server port %d out of range", cfg.Server.Port)
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setString(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setInt64(&cfg.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&cfg.Telegram.Proxy, "TELEGRAM_PROXY")

	setString(&cfg.Server.Name, "MC_SERVER_NAME")
	setString(&cfg.Server.WSURL, "BRIDGE_WS_URL")
	setString(&cfg.Server.Host, "MC_SERVER_HOST")
	setInt(&cfg.Server.Port, "MC_SERVER_PORT")

	setString(&cfg.Storage.Dir, "BRIDGE_DATA_DIR")
	setString(&cfg.Locale.File, "BRIDGE_LOCALE_FILE")
	setString(&cfg.Log.File, "LOG_FILE")
	setString(&cfg.Log.Level, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
