package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/pilot-net/outage-counter/internal/tracker"
	"github.com/pilot-net/outage-counter/pkg/types"
)

const listHeader = "List of current outage dates in order from oldest to most recent \n"

// Dispatcher runs parsed commands against a tracker and renders the replies.
type Dispatcher struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher for tr.
func NewDispatcher(tr *tracker.Tracker, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		tracker: tr,
		logger:  logger.With("component", "dispatcher"),
	}
}

// Handle parses text and executes it. Bad parameters become a "Sorry" reply
// with a nil error; ErrUnknownCommand and tracker.ErrStoreUnavailable are
// returned to the caller.
func (d *Dispatcher) Handle(ctx context.Context, text string) (string, error) {
	cmd, err := Parse(text)
	if err != nil {
		var inputErr *InputError
		if errors.As(err, &inputErr) {
			d.logger.Debug("rejected command input", "text", text, "error", err)
			return inputErr.Reply, nil
		}
		return "", err
	}

	reply, err := d.Execute(ctx, cmd)
	if err != nil {
		if errors.Is(err, tracker.ErrInvalidArgument) || errors.Is(err, tracker.ErrInvalidDate) {
			return "Sorry, " + err.Error() + ".", nil
		}
		return "", err
	}
	return reply, nil
}

// Execute runs cmd and returns the chat reply.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) (string, error) {
	d.logger.Debug("executing command", "kind", cmd.Kind.String())

	switch cmd.Kind {
	case Reset:
		if err := d.tracker.Reset(ctx); err != nil {
			return "", err
		}
		return "All collected data deleted and new outage counter set up.", nil

	case NewOutage:
		day, err := d.tracker.RecordOutageToday(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("The outage counter has reset to %s.", types.FormatDate(day)), nil

	case OutageDaysAgo:
		day, err := d.tracker.RecordOutageDaysAgo(ctx, cmd.DaysAgo)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("The new outage has been logged for %s, which was %d days ago.",
			types.FormatDate(day), cmd.DaysAgo), nil

	case RemoveDate:
		if err := d.tracker.RemoveOutageDate(ctx, cmd.Date); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s has been deleted from the date database.", types.FormatDate(cmd.Date)), nil

	case LastOutage:
		last, err := d.tracker.LastOutageReport(ctx)
		if err != nil {
			return "", err
		}
		if !last.Found {
			return "There has not been an outage yet.", nil
		}
		return fmt.Sprintf("The last outage was on %s, which was %d days ago.",
			types.FormatDate(last.Date), last.DaysAgo), nil

	case Average:
		avg, err := d.tracker.AverageStreak(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("The average number of days without an outage is %s days.", FormatAverage(avg)), nil

	case HighScore:
		longest, err := d.tracker.LongestStreak(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("The longest streak of days without an outage is %d days.", longest), nil

	case ShowAll:
		dates, err := d.tracker.ListAllOutages(ctx)
		if err != nil {
			return "", err
		}
		return listHeader + strings.Join(types.FormatDates(dates), "\n"), nil

	case Help:
		return HelpText(), nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Kind)
	}
}

// FormatAverage renders a streak average the way the chat replies always
// have: no streak yet is "0", whole numbers keep one decimal ("10.0") and
// fractions print in full.
func FormatAverage(v float64) string {
	if v == 0 {
		return "0"
	}
	if math.Trunc(v) == v {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
