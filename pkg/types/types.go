// Package types defines the domain types shared by the tracker, the stores and the API.
//
// # Dates
//
// Outages are recorded by calendar day. A day is carried as a time.Time set to
// midnight UTC of that calendar date (see DateOf), so two values for the same
// day always compare equal and day arithmetic never crosses a DST boundary.
//
// Dates are written as YYYY-MM-DD. Input also accepts the unpadded YYYY-M-D form
// that chat users tend to type.
package types

import (
	"fmt"
	"slices"
	"time"
)

// DateLayout is the canonical storage and display format of an outage date.
const DateLayout = "2006-01-02"

// inputDateLayout accepts both padded and unpadded month/day.
const inputDateLayout = "2006-1-2"

const day = 24 * time.Hour

// DateOf returns the calendar date of t (in t's location) as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-M-D or YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(inputDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDates renders each date as YYYY-MM-DD, preserving order.
func FormatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = FormatDate(d)
	}
	return out
}

// DaysBetween returns the whole number of days from one calendar date to another.
// The result is negative when to is before from.
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)) / day)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return DateOf(t).AddDate(0, 0, n)
}

// SortDates sorts dates ascending in place.
func SortDates(dates []time.Time) {
	slices.SortFunc(dates, time.Time.Compare)
}

// =============================================================================
// API PAYLOADS
// =============================================================================

// CommandRequest is a chat message forwarded by the host.
type CommandRequest struct {
	Text    string `json:"text"`
	User    string `json:"user,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// CommandResponse carries the reply to post back to the channel.
type CommandResponse struct {
	Reply string `json:"reply"`
}

// OutageSummary is the full set of streak statistics at a point in time.
type OutageSummary struct {
	Today               string   `json:"today"`
	LastOutage          *string  `json:"last_outage,omitempty"`
	DaysSinceLastOutage *int     `json:"days_since_last_outage,omitempty"`
	AverageStreak       float64  `json:"average_streak"`
	LongestStreak       int      `json:"longest_streak"`
	OutageCount         int      `json:"outage_count"`
	Dates               []string `json:"dates"`
}
