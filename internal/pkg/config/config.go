// Package config loads the service configuration from defaults, an optional
// YAML file and REMINDERS_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. REMINDERS_SERVER_PORT sets server.port.
const EnvPrefix = "REMINDERS_"

type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Line          LineConfig          `koanf:"line"`
	Log           LogConfig           `koanf:"log"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type DatabaseConfig struct {
	Path     string `koanf:"path"`
	LogLevel string `koanf:"log_level"` // silent, error, warn, info
}

type NotificationsConfig struct {
	Permission bool   `koanf:"permission"` // whether the local center may deliver alerts
	Location   string `koanf:"location"`   // IANA zone for daily triggers, "Local" for the host zone
}

type LineConfig struct {
	Enabled       bool   `koanf:"enabled"`
	ChannelSecret string `koanf:"channel_secret"`
	ChannelToken  string `koanf:"channel_token"`
	RecipientID   string `koanf:"recipient_id"` // LINE user that receives fired alerts
}

type LogConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":              8080,
		"database.path":            "reminders.db",
		"database.log_level":       "warn",
		"notifications.permission": true,
		"notifications.location":   "Local",
		"line.enabled":             false,
		"line.channel_secret":      "",
		"line.channel_token":       "",
		"line.recipient_id":        "",
		"log.level":                "info",
		"log.file":                 "",
	}
}

// Load reads configuration. A missing configPath file is not an error.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// Unprefixed variables of the LINE bot deployment; REMINDERS_* still wins.
	legacy := map[string]interface{}{}
	for name, key := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			legacy[key] = v
		}
	}
	if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load legacy env vars: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

var legacyEnv = map[string]string{
	"PORT":                 "server.port",
	"CHANNEL_SECRET":       "line.channel_secret",
	"CHANNEL_ACCESS_TOKEN": "line.channel_token",
	"BLUEPRINT_DB_URL":     "database.path",
}

// envKey maps REMINDERS_LINE_CHANNEL_SECRET to line.channel_secret.
// The first underscore separates the section from the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Database.LogLevel {
	case "silent", "error", "warn", "info":
	default:
		return fmt.Errorf("unknown database.log_level: %s (supported: silent, error, warn, info)", c.Database.LogLevel)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Line.Enabled {
		if c.Line.ChannelSecret == "" || c.Line.ChannelToken == "" {
			return fmt.Errorf("line.channel_secret and line.channel_token are required when line.enabled is set")
		}
		if c.Line.RecipientID == "" {
			return fmt.Errorf("line.recipient_id is required when line.enabled is set")
		}
	}
	return nil
}

// Location resolves notifications.location.
func (c *Config) Location() (*time.Location, error) {
	switch c.Notifications.Location {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Notifications.Location)
	if err != nil {
		return nil, fmt.Errorf("unknown notifications.location %q: %w", c.Notifications.Location, err)
	}
	return loc, nil
}
