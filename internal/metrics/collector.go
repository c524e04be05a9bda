// Package metrics provides health collection for the outage bot.
package metrics

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/pilot-net/outage-counter/internal/config"
	"github.com/pilot-net/outage-counter/pkg/types"
)

// Pinger is the part of the outage store the collector needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Collector gathers process and store health with caching.
type Collector struct {
	store   Pinger
	backend string
	logger  *slog.Logger

	startTime time.Time

	// Cached values with TTL
	mu            sync.RWMutex
	cachedHealth  *types.BotHealth
	cacheExpiry   time.Time
	cacheDuration time.Duration
}

// NewCollector creates a collector that pings st, labelled with its backend name.
func NewCollector(st Pinger, backend string, logger *slog.Logger) *Collector {
	return &Collector{
		store:         st,
		backend:       backend,
		logger:        logger.With("component", "metrics"),
		startTime:     time.Now(),
		cacheDuration: config.HealthCacheTTL,
	}
}

// GetHealth returns the current health snapshot. Results are cached for
// HealthCacheTTL so frequent probes do not hammer the store.
func (c *Collector) GetHealth(ctx context.Context) *types.BotHealth {
	c.mu.RLock()
	if c.cachedHealth != nil && time.Now().Before(c.cacheExpiry) {
		health := *c.cachedHealth
		c.mu.RUnlock()
		return &health
	}
	c.mu.RUnlock()

	health := c.collectHealth(ctx)

	c.mu.Lock()
	c.cachedHealth = health
	c.cacheExpiry = time.Now().Add(c.cacheDuration)
	c.mu.Unlock()

	copied := *health
	return &copied
}

func (c *Collector) collectHealth(ctx context.Context) *types.BotHealth {
	health := &types.BotHealth{
		Timestamp: time.Now(),
		Process:   c.collectProcessHealth(),
		Store:     c.collectStoreHealth(ctx),
	}

	switch {
	case health.Store.Status == types.HealthUnhealthy:
		health.Status = types.HealthUnhealthy
	case health.Process.Status == types.HealthDegraded:
		health.Status = types.HealthDegraded
	default:
		health.Status = types.HealthHealthy
	}
	return health
}

func (c *Collector) collectProcessHealth() types.ProcessHealth {
	health := types.ProcessHealth{
		Status:        types.HealthHealthy,
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		c.logger.Debug("process metrics unavailable", "error", err)
		return health
	}

	if cpu, err := proc.CPUPercent(); err == nil {
		health.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		health.MemoryMB = float64(mem.RSS) / (1024 * 1024)
	}
	if memPct, err := proc.MemoryPercent(); err == nil {
		health.MemoryPercent = float64(memPct)
	}

	if health.MemoryPercent > config.HighUsagePercent || health.CPUPercent > config.HighUsagePercent {
		health.Status = types.HealthDegraded
	}
	return health
}

func (c *Collector) collectStoreHealth(ctx context.Context) types.StoreHealth {
	health := types.StoreHealth{
		Status:  types.HealthHealthy,
		Backend: c.backend,
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.DatabasePingTimeout)
	defer cancel()

	start := time.Now()
	err := c.store.Ping(pingCtx)
	health.LatencyMs = float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		c.logger.Warn("store ping failed", "backend", c.backend, "error", err)
		health.Status = types.HealthUnhealthy
		health.Error = err.Error()
	}
	return health
}
