package config

import "time"

// Store connection configuration.
const (
	// RedisConnectionTimeout is the timeout for the initial Redis ping.
	RedisConnectionTimeout = 5 * time.Second

	// DatabasePingTimeout is the timeout for SQL connectivity checks.
	DatabasePingTimeout = 5 * time.Second

	// StoreOperationTimeout bounds a single command's store round trips.
	StoreOperationTimeout = 5 * time.Second

	// DefaultRedisKeyPrefix matches the namespace the Lita outage counter
	// handler wrote under, so existing history is picked up unchanged.
	DefaultRedisKeyPrefix = "lita:handlers:outage_counter:"
)

// Outage history.
const (
	// MaxDaysAgo is the furthest back a missed outage can be recorded.
	MaxDaysAgo = 100 * 366
)

// Command rate limiting.
const (
	// DefaultCommandsPerMinute is the sustained per-user command rate.
	DefaultCommandsPerMinute = 30

	// DefaultRateLimitBurst is how many commands a user may send back to back.
	DefaultRateLimitBurst = 5

	// LimiterIdleTTL is how long an idle user's limiter is kept.
	LimiterIdleTTL = 10 * time.Minute
)

// HTTP server settings.
const (
	// MaxCommandBodyBytes caps the size of an incoming command request.
	MaxCommandBodyBytes = 16 << 10

	// ShutdownTimeout is how long in-flight requests get on shutdown.
	ShutdownTimeout = 10 * time.Second
)

// Health reporting.
const (
	// HealthCacheTTL is how long a collected health snapshot is reused.
	HealthCacheTTL = 10 * time.Second

	// HighUsagePercent marks the process degraded above this CPU or memory usage.
	HighUsagePercent = 90.0
)
