// Package tracker records outage dates and derives outage-free streak statistics.
//
// The tracker holds no state of its own. Every operation reads or writes the
// injected store, and the last outage is always derived as the latest stored
// date, so removing a date can never leave a stale "last outage" behind.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pilot-net/outage-counter/internal/config"
	"github.com/pilot-net/outage-counter/internal/store"
	"github.com/pilot-net/outage-counter/pkg/types"
)

var (
	// ErrInvalidDate is returned for a date that cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidArgument is returned for a day count that is negative,
	// non-numeric or larger than config.MaxDaysAgo.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStoreUnavailable wraps any failure talking to the outage store.
	ErrStoreUnavailable = errors.New("outage store unavailable")
)

// Tracker is the outage counter.
type Tracker struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source used to determine today.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLocation sets the time zone whose calendar defines today.
// Without it the clock's own location is used.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		t.loc = loc
	}
}

// New creates a tracker backed by st.
func New(st store.Store, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:  st,
		logger: logger.With("component", "tracker"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Today returns the current calendar date.
func (t *Tracker) Today() time.Time {
	now := t.now()
	if t.loc != nil {
		now = now.In(t.loc)
	}
	return types.DateOf(now)
}

// LastOutage describes the most recent recorded outage.
type LastOutage struct {
	Found   bool
	Date    time.Time
	DaysAgo int
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// sortedDates reads the whole set and sorts it ascending.
func (t *Tracker) sortedDates(ctx context.Context) ([]time.Time, error) {
	dates, err := t.store.ListDates(ctx)
	if err != nil {
		return nil, storeError("listing outage dates", err)
	}
	types.SortDates(dates)
	return dates, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Reset deletes all recorded outages.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.store.Clear(ctx); err != nil {
		return storeError("clearing outage dates", err)
	}
	t.logger.Info("outage history reset")
	return nil
}

// RecordOutageToday records an outage for today and returns the date.
func (t *Tracker) RecordOutageToday(ctx context.Context) (time.Time, error) {
	today := t.Today()
	if err := t.store.AddDate(ctx, today); err != nil {
		return time.Time{}, storeError("recording outage", err)
	}
	t.logger.Info("outage recorded", "date", types.FormatDate(today))
	return today, nil
}

// RecordOutageDaysAgo records an outage n days before today and returns the date.
func (t *Tracker) RecordOutageDaysAgo(ctx context.Context, n int) (time.Time, error) {
	if n < 0 || n > config.MaxDaysAgo {
		return time.Time{}, fmt.Errorf("%w: days ago must be between 0 and %d, got %d",
			ErrInvalidArgument, config.MaxDaysAgo, n)
	}

	day := types.AddDays(t.Today(), -n)
	if err := t.store.AddDate(ctx, day); err != nil {
		return time.Time{}, storeError("recording outage", err)
	}
	t.logger.Info("past outage recorded", "date", types.FormatDate(day), "days_ago", n)
	return day, nil
}

// RemoveOutageDate deletes a recorded outage. Removing a date that was never
// recorded is not an error.
func (t *Tracker) RemoveOutageDate(ctx context.Context, day time.Time) error {
	if err := t.store.RemoveDate(ctx, day); err != nil {
		return storeError("removing outage date", err)
	}
	t.logger.Info("outage date removed", "date", types.FormatDate(day))
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// LastOutageReport returns the latest recorded outage and how long ago it was.
func (t *Tracker) LastOutageReport(ctx context.Context) (LastOutage, error) {
	dates, err := t.sortedDates(ctx)
	if err != nil {
		return LastOutage{}, err
	}
	return lastOutage(dates, t.Today()), nil
}

func lastOutage(sorted []time.Time, today time.Time) LastOutage {
	if len(sorted) == 0 {
		return LastOutage{}
	}
	last := sorted[len(sorted)-1]
	return LastOutage{
		Found:   true,
		Date:    last,
		DaysAgo: types.DaysBetween(last, today),
	}
}

// AverageStreak returns the mean number of outage-free days between
// consecutive outages, counting the current streak. It is 0 with no history.
func (t *Tracker) AverageStreak(ctx context.Context) (float64, error) {
	dates, err := t.sortedDates(ctx)
	if err != nil {
		return 0, err
	}
	return averageStreak(dates, t.Today()), nil
}

// LongestStreak returns the longest outage-free run in days, counting the
// current streak. It is 0 with no history.
func (t *Tracker) LongestStreak(ctx context.Context) (int, error) {
	dates, err := t.sortedDates(ctx)
	if err != nil {
		return 0, err
	}
	return longestStreak(dates, t.Today()), nil
}

// ListAllOutages returns every recorded outage, oldest first.
func (t *Tracker) ListAllOutages(ctx context.Context) ([]time.Time, error) {
	return t.sortedDates(ctx)
}

// Summary computes every statistic from a single read of the store.
func (t *Tracker) Summary(ctx context.Context) (*types.OutageSummary, error) {
	dates, err := t.sortedDates(ctx)
	if err != nil {
		return nil, err
	}
	today := t.Today()

	summary := &types.OutageSummary{
		Today:         types.FormatDate(today),
		AverageStreak: averageStreak(dates, today),
		LongestStreak: longestStreak(dates, today),
		OutageCount:   len(dates),
		Dates:         types.FormatDates(dates),
	}
	if last := lastOutage(dates, today); last.Found {
		date := types.FormatDate(last.Date)
		days := last.DaysAgo
		summary.LastOutage = &date
		summary.DaysSinceLastOutage = &days
	}
	return summary, nil
}
