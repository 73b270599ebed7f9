// Package config provides YAML-based configuration loading for the gateway.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level gateway configuration, loaded from toolgate.yaml.
type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Context   ContextConfig   `yaml:"context"`
	Athena    ToolConfig      `yaml:"athena"`
	Moad      ToolConfig      `yaml:"moad"`
	Retention RetentionConfig `yaml:"retention"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// MySQLConfig holds connection settings for the durable store.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig holds the context-cache connection settings.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// ContextConfig bounds conversational context storage.
type ContextConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
	MaxLength  int `yaml:"max_length"`
}

// ToolConfig points at one external tool endpoint.
type ToolConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// RetentionConfig drives the optional request-log retention sweep.
// Schedule is a 5-field cron expression; empty disables the sweep.
type RetentionConfig struct {
	Schedule string `yaml:"schedule"`
	Days     int    `yaml:"days"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Production reports whether the gateway runs in production mode, which
// controls how much error detail crosses the HTTP boundary.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.MySQL.Host == "" {
		c.MySQL.Host = "127.0.0.1"
	}
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.User == "" {
		c.MySQL.User = "root"
	}
	if c.MySQL.Database == "" {
		c.MySQL.Database = "toolgate"
	}
	if c.Context.TTLSeconds == 0 {
		c.Context.TTLSeconds = 3600
	}
	if c.Context.MaxLength == 0 {
		c.Context.MaxLength = 500
	}
	if c.Retention.Schedule != "" && c.Retention.Days == 0 {
		c.Retention.Days = 30
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Env != "development" && c.Env != "production" {
		errs = append(errs, fmt.Sprintf("env must be development or production, got %q", c.Env))
	}
	if c.Redis.URL == "" {
		errs = append(errs, "redis.url is required")
	}
	if c.Athena.URL == "" {
		errs = append(errs, "athena.url is required")
	}
	if c.Athena.APIKey == "" {
		errs = append(errs, "athena.api_key is required")
	}
	if c.Moad.URL == "" {
		errs = append(errs, "moad.url is required")
	}
	if c.Moad.APIKey == "" {
		errs = append(errs, "moad.api_key is required")
	}
	if c.Context.MaxLength < 0 {
		errs = append(errs, "context.max_length must not be negative")
	}
	if c.Retention.Days < 0 {
		errs = append(errs, "retention.days must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
