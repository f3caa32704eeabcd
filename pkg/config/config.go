// Package config loads assistant configuration from a YAML file with
// environment variable overrides for deploy-time secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	Gemini  GeminiConfig  `yaml:"gemini"`
	Script  ScriptConfig  `yaml:"script"`
	History HistoryConfig `yaml:"history"`

	// Language is the active display language, "es" or "en".
	Language string `yaml:"language"`
}

// GeminiConfig configures the conversational endpoint.
type GeminiConfig struct {
	APIKey    string `yaml:"api_key"`
	ChatModel string `yaml:"chat_model"`
	LiveModel string `yaml:"live_model"`
	Voice     string `yaml:"voice"`
}

// ScriptConfig configures the spreadsheet submission endpoint.
type ScriptConfig struct {
	URL string `yaml:"url"`
}

// HistoryConfig configures the conversation store driver.
type HistoryConfig struct {
	Driver string      `yaml:"driver"` // memory, file or redis
	Path   string      `yaml:"path"`   // file driver
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis history driver.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			ChatModel: "gemini-2.5-flash",
			LiveModel: "gemini-2.5-flash-native-audio-preview-12-2025",
			Voice:     "Zephyr",
		},
		History: HistoryConfig{
			Driver: "memory",
		},
		Language: "es",
	}
}

// Load reads the YAML file at path, applies it over the defaults, then
// applies environment overrides. A missing file is not an error; the
// defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %q: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	} else if v := os.Getenv("GOOGLE_API_KEY"); v != "" && c.Gemini.APIKey == "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("SAGE_SCRIPT_URL"); v != "" {
		c.Script.URL = v
	}
	if v := os.Getenv("SAGE_LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := os.Getenv("SAGE_HISTORY_DRIVER"); v != "" {
		c.History.Driver = v
	}
	if v := os.Getenv("SAGE_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("SAGE_REDIS_ADDR"); v != "" {
		c.History.Redis.Addr = v
	}
	if v := os.Getenv("SAGE_REDIS_PASSWORD"); v != "" {
		c.History.Redis.Password = v
	}
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini api key is required (set GEMINI_API_KEY)")
	}
	switch c.History.Driver {
	case "memory":
	case "file":
		if c.History.Path == "" {
			return fmt.Errorf("history path is required for the file driver")
		}
	case "redis":
		if c.History.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown history driver %q", c.History.Driver)
	}
	if c.Language != "es" && c.Language != "en" {
		return fmt.Errorf("language must be es or en, got %q", c.Language)
	}
	return nil
}
