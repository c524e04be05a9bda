package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
	if cfg.Store.Backend != BackendRedis {
		t.Errorf("default backend: got %s, want %s", cfg.Store.Backend, BackendRedis)
	}
	if cfg.Store.KeyPrefix != DefaultRedisKeyPrefix {
		t.Errorf("default key prefix: got %q", cfg.Store.KeyPrefix)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "bot.yaml", `
server:
  listen: ":9090"
  read_timeout: 3s
store:
  backend: sqlite
  sqlite_path: /var/lib/outagebot/outages.db
tracker:
  timezone: UTC
rate_limit:
  commands_per_minute: 12
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Server.Listen != ":9090" {
		t.Errorf("listen: got %q", cfg.Server.Listen)
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("read_timeout: got %v", cfg.Server.ReadTimeout)
	}
	// Unset fields keep their defaults.
	if cfg.Server.WriteTimeout != 10*time.Second {
		t.Errorf("write_timeout default lost: got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.SQLitePath != "/var/lib/outagebot/outages.db" {
		t.Errorf("store: got %+v", cfg.Store)
	}
	if cfg.RateLimit.CommandsPerMinute != 12 || cfg.RateLimit.Burst != DefaultRateLimitBurst {
		t.Errorf("rate_limit: got %+v", cfg.RateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeFile(t, "bad.yaml", "server: [not, a, map]\n")
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OUTAGEBOT_LISTEN", "127.0.0.1:7000")
	t.Setenv("OUTAGEBOT_STORE_BACKEND", "postgres")
	t.Setenv("OUTAGEBOT_STORE_URL", "postgres://bot@db/outages")
	t.Setenv("OUTAGEBOT_TIMEZONE", "Europe/Berlin")
	t.Setenv("OUTAGEBOT_RATE_LIMIT_PER_MINUTE", "3")
	t.Setenv("OP_CONNECT_TOKEN", "op-token")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Server.Listen != "127.0.0.1:7000" {
		t.Errorf("listen: got %q", cfg.Server.Listen)
	}
	if cfg.Store.Backend != BackendPostgres || cfg.Store.URL != "postgres://bot@db/outages" {
		t.Errorf("store: got %+v", cfg.Store)
	}
	if cfg.Tracker.Timezone != "Europe/Berlin" {
		t.Errorf("timezone: got %q", cfg.Tracker.Timezone)
	}
	if cfg.RateLimit.CommandsPerMinute != 3 {
		t.Errorf("rate limit: got %d", cfg.RateLimit.CommandsPerMinute)
	}
	if cfg.Secrets.OnePassword.Token != "op-token" {
		t.Errorf("1Password token not applied")
	}
}

func TestApplyEnvOverrides_InvalidNumberIgnored(t *testing.T) {
	t.Setenv("OUTAGEBOT_RATE_LIMIT_PER_MINUTE", "lots")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.RateLimit.CommandsPerMinute != DefaultCommandsPerMinute {
		t.Errorf("invalid number should keep default, got %d", cfg.RateLimit.CommandsPerMinute)
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "OUTAGEBOT_DOTENV_TEST_ZONE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=Asia/Tokyo\n")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv(key); got != "Asia/Tokyo" {
		t.Errorf("got %q, want Asia/Tokyo", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Error("expected error for an explicit missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Store.Backend = "memcached" }, "unknown store backend"},
		{"redis without url", func(c *Config) { c.Store.URL = "" }, "store.url is required"},
		{"redis url from 1password", func(c *Config) {
			c.Store.URL = ""
			c.Secrets.OnePassword = OnePasswordConfig{Host: "http://op", Token: "t", VaultID: "v", Item: "redis", Field: "url"}
		}, ""},
		{"1password without token", func(c *Config) {
			c.Secrets.OnePassword = OnePasswordConfig{Host: "http://op", VaultID: "v", Item: "redis"}
		}, "OP_CONNECT_TOKEN"},
		{"sqlite without path", func(c *Config) {
			c.Store.Backend = BackendSQLite
			c.Store.SQLitePath = ""
		}, "sqlite_path"},
		{"bad timezone", func(c *Config) { c.Tracker.Timezone = "Mars/Olympus_Mons" }, "invalid tracker.timezone"},
		{"negative rate", func(c *Config) { c.RateLimit.CommandsPerMinute = -1 }, "must not be negative"},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }, "burst must be at least 1"},
		{"limiting disabled", func(c *Config) {
			c.RateLimit.CommandsPerMinute = 0
			c.RateLimit.Burst = 0
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestTrackerLocation(t *testing.T) {
	loc, err := TrackerConfig{}.Location()
	if err != nil || loc != time.Local {
		t.Errorf("empty timezone should be local, got %v, %v", loc, err)
	}

	loc, err = TrackerConfig{Timezone: "UTC"}.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("got %v, %v", loc, err)
	}
}
