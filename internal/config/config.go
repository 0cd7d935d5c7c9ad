// Package config loads the service configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	AppName    string `yaml:"app_name"`
	AppVersion string `yaml:"app_version"`
	Debug      bool   `yaml:"debug"`

	Server   ServerConfig   `yaml:"server"`
	Rules    RulesConfig    `yaml:"rules"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	CORSOrigins      []string      `yaml:"cors_origins"`
	MaxMessageLength int           `yaml:"max_message_length"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

// RulesConfig points at the rule source and controls hot reload.
type RulesConfig struct {
	File     string        `yaml:"file"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// DatabaseConfig configures the SQLite conversation store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		AppName:    "Rule-Based Chatbot",
		AppVersion: "1.0.0",
		Debug:      false,
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:5173",
			},
			MaxMessageLength: 1000,
			ShutdownTimeout:  10 * time.Second,
		},
		Rules: RulesConfig{
			File:     "rules/chatbot_rules.yaml",
			Watch:    true,
			Debounce: 500 * time.Millisecond,
		},
		Database: DatabaseConfig{
			Path: "chatbot.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
			// defaults
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Server.Port = p
	}
	if host := os.Getenv("RULEBOT_HOST"); host != "" {
		c.Server.Host = host
	}
	if origins := os.Getenv("RULEBOT_CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}
	if file := os.Getenv("RULEBOT_RULES_FILE"); file != "" {
		c.Rules.File = file
	}
	if db := os.Getenv("RULEBOT_DATABASE"); db != "" {
		c.Database.Path = db
	}
	if level := os.Getenv("RULEBOT_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if debug := os.Getenv("RULEBOT_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err != nil {
			return fmt.Errorf("invalid RULEBOT_DEBUG %q: %w", debug, err)
		}
		c.Debug = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxMessageLength <= 0 {
		return fmt.Errorf("max_message_length must be positive, got %d", c.Server.MaxMessageLength)
	}
	if c.Rules.File == "" {
		return fmt.Errorf("rules file not configured (set rules.file or RULEBOT_RULES_FILE)")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path not configured (set database.path or RULEBOT_DATABASE)")
	}
	return nil
}

// Address is the host:port the HTTP server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AllowedOrigins returns the CORS allow list; debug mode allows every origin.
func (c *Config) AllowedOrigins() []string {
	if c.Debug {
		return []string{"*"}
	}
	return c.Server.CORSOrigins
}
