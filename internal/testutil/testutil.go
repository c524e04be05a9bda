// Package testutil provides testing utilities and fixtures for the outage bot.
//
// This package contains:
//   - Test loggers
//   - A fixed clock so "today" is deterministic
//   - MemoryStore, an in-memory outage date set with failure injection
//
// # Usage
//
//	today := testutil.Today
//	st := testutil.NewMemoryStore(testutil.DaysAgo(today, 30, 20, 10)...)
//	tr := tracker.New(st, testutil.NewTestLogger(), tracker.WithClock(testutil.FixedClock(today)))
package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pilot-net/outage-counter/pkg/types"
)

// Today is the fixed calendar date used by tests.
var Today = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

// NewTestLogger returns a logger that discards all output.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FixedClock returns a clock that always reads t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// DaysAgo returns today minus each offset, in argument order.
func DaysAgo(today time.Time, offsets ...int) []time.Time {
	dates := make([]time.Time, len(offsets))
	for i, n := range offsets {
		dates[i] = types.AddDays(today, -n)
	}
	return dates
}

// DateStrings formats today minus each offset as YYYY-MM-DD.
func DateStrings(today time.Time, offsets ...int) []string {
	return types.FormatDates(DaysAgo(today, offsets...))
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore is an in-memory outage date set. It satisfies store.Store.
type MemoryStore struct {
	mu    sync.Mutex
	dates map[string]time.Time
	err   error
	calls int
}

// NewMemoryStore creates a store seeded with the given days.
func NewMemoryStore(days ...time.Time) *MemoryStore {
	m := &MemoryStore{dates: make(map[string]time.Time)}
	for _, d := range days {
		m.dates[types.FormatDate(d)] = types.DateOf(d)
	}
	return m
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many store operations were attempted.
func (m *MemoryStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Strings returns the stored days sorted ascending.
func (m *MemoryStore) Strings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	dates := make([]time.Time, 0, len(m.dates))
	for _, d := range m.dates {
		dates = append(dates, d)
	}
	types.SortDates(dates)
	return types.FormatDates(dates)
}

func (m *MemoryStore) begin() error {
	m.calls++
	return m.err
}

func (m *MemoryStore) AddDate(ctx context.Context, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return err
	}
	m.dates[types.FormatDate(day)] = types.DateOf(day)
	return nil
}

func (m *MemoryStore) RemoveDate(ctx context.Context, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return err
	}
	delete(m.dates, types.FormatDate(day))
	return nil
}

func (m *MemoryStore) ListDates(ctx context.Context) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(m.dates))
	for _, d := range m.dates {
		dates = append(dates, d)
	}
	return dates, nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return err
	}
	m.dates = make(map[string]time.Time)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin()
}

func (m *MemoryStore) Close() error {
	return nil
}
