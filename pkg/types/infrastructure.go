package types

import "time"

// Health status values.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// BotHealth contains process and store health for the health endpoint.
type BotHealth struct {
	Status    string        `json:"status"` // healthy, degraded, unhealthy
	Timestamp time.Time     `json:"timestamp"`
	Process   ProcessHealth `json:"process"`
	Store     StoreHealth   `json:"store"`
}

// ProcessHealth contains runtime metrics of the bot process.
type ProcessHealth struct {
	Status        string  `json:"status"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryMB      float64 `json:"memory_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// StoreHealth reports reachability of the outage store.
type StoreHealth struct {
	Status    string  `json:"status"`
	Backend   string  `json:"backend"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}
