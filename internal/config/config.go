// Package config handles outagebot configuration loading and validation.
//
// # Configuration Sources
//
// Configuration is loaded from (in order of precedence):
// 1. Command-line flags
// 2. Environment variables (OUTAGEBOT_*, OP_CONNECT_*), including a .env file
// 3. Config file (YAML)
// 4. Defaults
//
// # Example Config File
//
//	server:
//	  listen: ":8080"
//	  read_timeout: 10s
//
//	store:
//	  backend: redis
//	  url: redis://localhost:6379/0
//	  key_prefix: "lita:handlers:outage_counter:"
//
//	tracker:
//	  timezone: America/New_York
//
//	rate_limit:
//	  commands_per_minute: 30
//	  burst: 5
//
//	secrets:
//	  onepassword:
//	    host: http://op-connect:8080
//	    vault_id: 4f3b...
//	    item: outagebot-redis
//	    field: url
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config is the complete bot configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Secrets   SecretsConfig   `yaml:"secrets"`
}

// ServerConfig defines the HTTP listener the chat host posts commands to.
type ServerConfig struct {
	Listen       string        `yaml:"listen"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// StoreConfig selects and addresses the outage store.
type StoreConfig struct {
	Backend    string `yaml:"backend"`              // redis, postgres or sqlite
	URL        string `yaml:"url"`                  // redis:// or postgres:// URL
	KeyPrefix  string `yaml:"key_prefix,omitempty"` // Redis only
	SQLitePath string `yaml:"sqlite_path,omitempty"`
}

// TrackerConfig controls how "today" is determined.
type TrackerConfig struct {
	// Timezone is an IANA zone name; empty means the host's local zone.
	Timezone string `yaml:"timezone"`
}

// RateLimitConfig bounds how fast a single chat user can issue commands.
type RateLimitConfig struct {
	CommandsPerMinute int `yaml:"commands_per_minute"` // 0 disables limiting
	Burst             int `yaml:"burst"`
}

// SecretsConfig configures where credentials come from.
type SecretsConfig struct {
	OnePassword OnePasswordConfig `yaml:"onepassword"`
}

// OnePasswordConfig points at a 1Password Connect item holding the store URL.
type OnePasswordConfig struct {
	Host    string `yaml:"host"`     // OP_CONNECT_HOST
	Token   string `yaml:"-"`        // OP_CONNECT_TOKEN, never read from file
	VaultID string `yaml:"vault_id"` // OP_VAULT_ID
	Item    string `yaml:"item"`     // item title
	Field   string `yaml:"field"`    // field label, default "url"
}

// Enabled reports whether the store URL should be fetched from 1Password.
func (c OnePasswordConfig) Enabled() bool {
	return c.Host != "" && c.Item != ""
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Store: StoreConfig{
			Backend:    BackendRedis,
			URL:        "redis://localhost:6379/0",
			KeyPrefix:  DefaultRedisKeyPrefix,
			SQLitePath: "./outages.db",
		},
		RateLimit: RateLimitConfig{
			CommandsPerMinute: DefaultCommandsPerMinute,
			Burst:             DefaultRateLimitBurst,
		},
		Secrets: SecretsConfig{
			OnePassword: OnePasswordConfig{
				Field: "url",
			},
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are not overwritten. A missing default file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides:
// - OUTAGEBOT_LISTEN
// - OUTAGEBOT_STORE_BACKEND
// - OUTAGEBOT_STORE_URL
// - OUTAGEBOT_STORE_KEY_PREFIX
// - OUTAGEBOT_SQLITE_PATH
// - OUTAGEBOT_TIMEZONE
// - OUTAGEBOT_RATE_LIMIT_PER_MINUTE
// - OP_CONNECT_HOST, OP_CONNECT_TOKEN, OP_VAULT_ID
// - OUTAGEBOT_OP_ITEM, OUTAGEBOT_OP_FIELD
func (c *Config) ApplyEnvOverrides() {
	setString(&c.Server.Listen, "OUTAGEBOT_LISTEN")
	setString(&c.Store.Backend, "OUTAGEBOT_STORE_BACKEND")
	setString(&c.Store.URL, "OUTAGEBOT_STORE_URL")
	setString(&c.Store.KeyPrefix, "OUTAGEBOT_STORE_KEY_PREFIX")
	setString(&c.Store.SQLitePath, "OUTAGEBOT_SQLITE_PATH")
	setString(&c.Tracker.Timezone, "OUTAGEBOT_TIMEZONE")
	setString(&c.Secrets.OnePassword.Host, "OP_CONNECT_HOST")
	setString(&c.Secrets.OnePassword.Token, "OP_CONNECT_TOKEN")
	setString(&c.Secrets.OnePassword.VaultID, "OP_VAULT_ID")
	setString(&c.Secrets.OnePassword.Item, "OUTAGEBOT_OP_ITEM")
	setString(&c.Secrets.OnePassword.Field, "OUTAGEBOT_OP_FIELD")

	if v := os.Getenv("OUTAGEBOT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.CommandsPerMinute = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendRedis, BackendPostgres:
		if c.Store.URL == "" && !c.Secrets.OnePassword.Enabled() {
			return fmt.Errorf("store.url is required for the %s backend", c.Store.Backend)
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if c.Secrets.OnePassword.Enabled() {
		if c.Secrets.OnePassword.Token == "" || c.Secrets.OnePassword.VaultID == "" {
			return fmt.Errorf("secrets.onepassword requires OP_CONNECT_TOKEN and vault_id")
		}
	}

	if _, err := c.Tracker.Location(); err != nil {
		return err
	}

	if c.RateLimit.CommandsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if c.RateLimit.CommandsPerMinute > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit.burst must be at least 1 when commands_per_minute is set")
	}
	return nil
}

// Location resolves the configured time zone.
func (c TrackerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid tracker.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
