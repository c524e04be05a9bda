package tracker

import (
	"time"

	"github.com/pilot-net/outage-counter/pkg/types"
)

// streaks returns the outage-free streaks, in days, implied by the sorted
// outage dates: the gap between each consecutive pair, then the gap from the
// latest outage to today. No outages means no streaks.
func streaks(sorted []time.Time, today time.Time) []int {
	if len(sorted) == 0 {
		return nil
	}

	gaps := make([]int, 0, len(sorted))
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, types.DaysBetween(sorted[i-1], sorted[i]))
	}
	return append(gaps, types.DaysBetween(sorted[len(sorted)-1], today))
}

// averageStreak is the mean streak length, or 0 without any outage.
func averageStreak(sorted []time.Time, today time.Time) float64 {
	gaps := streaks(sorted, today)
	if len(gaps) == 0 {
		return 0
	}

	sum := 0
	for _, g := range gaps {
		sum += g
	}
	return float64(sum) / float64(len(gaps))
}

// longestStreak is the longest streak, or 0 without any outage.
func longestStreak(sorted []time.Time, today time.Time) int {
	longest := 0
	for _, g := range streaks(sorted, today) {
		if g > longest {
			longest = g
		}
	}
	return longest
}
