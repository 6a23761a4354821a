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

type AppConfig struct {
	ServerURL string `yaml:"server_url"`

	ReconnectMaxAttempts int           `yaml:"reconnect_max_attempts"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay"`
	SettleDelay          time.Duration `yaml:"settle_delay"`
	NoticeTTL            time.Duration `yaml:"notice_ttl"`

	MsgCatalogDir string `yaml:"msg_catalog_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ReconnectMaxAttempts: 5,
		ReconnectDelay:       3 * time.Second,
		SettleDelay:          500 * time.Millisecond,
		NoticeTTL:            5 * time.Second,
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// the environment, in that order; environment values win.
func Load(path string) (*AppConfig, error) {
	cfg := defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("CHESS_SERVER_URL")); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_RECONNECT_MAX_ATTEMPTS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReconnectMaxAttempts = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_RECONNECT_DELAY")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ReconnectDelay = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_SETTLE_DELAY")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SettleDelay = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_NOTICE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.NoticeTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_MSG_CATALOG_DIR")); v != "" {
		cfg.MsgCatalogDir = v
	}

	if cfg.ServerURL == "" {
		return nil, errors.New("CHESS_SERVER_URL is required")
	}
	if !strings.HasPrefix(cfg.ServerURL, "ws://") && !strings.HasPrefix(cfg.ServerURL, "wss://") {
		return nil, fmt.Errorf("server url %q must be ws:// or wss://", cfg.ServerURL)
	}

	return cfg, nil
}
