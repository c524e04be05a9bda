// Package command turns chat messages into typed outage tracker commands and
// renders the tracker's answers as chat replies.
//
// Matching is case-insensitive and looks for the command phrase anywhere in the
// message, so "@bot The site went down!" is a NewOutage command. Parameters are
// parsed here, at the host boundary; the tracker only ever receives a
// validated day count or calendar date.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pilot-net/outage-counter/internal/config"
	"github.com/pilot-net/outage-counter/internal/tracker"
	"github.com/pilot-net/outage-counter/pkg/types"
)

// Kind identifies a command.
type Kind int

const (
	Unknown Kind = iota
	Reset
	LastOutage
	NewOutage
	Average
	HighScore
	OutageDaysAgo
	RemoveDate
	ShowAll
	Help
)

var kindNames = map[Kind]string{
	Unknown:       "unknown",
	Reset:         "reset",
	LastOutage:    "last_outage",
	NewOutage:     "new_outage",
	Average:       "average",
	HighScore:     "high_score",
	OutageDaysAgo: "outage_days_ago",
	RemoveDate:    "remove_date",
	ShowAll:       "show_all",
	Help:          "help",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Command is a parsed chat command with its typed parameters.
type Command struct {
	Kind    Kind
	DaysAgo int       // OutageDaysAgo only
	Date    time.Time // RemoveDate only
}

// ErrUnknownCommand is returned when a message matches no command phrase.
var ErrUnknownCommand = errors.New("unknown command")

// InputError is a recognized command with a bad parameter. Reply is meant
// for the user; Err is tracker.ErrInvalidArgument or tracker.ErrInvalidDate.
type InputError struct {
	Err   error
	Reply string
}

func (e *InputError) Error() string {
	return e.Err.Error() + ": " + e.Reply
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// route describes one command phrase.
type route struct {
	kind   Kind
	phrase string
	usage  string
	help   string
}

// routes lists the commands in help order.
var routes = []route{
	{Reset, "reset the outage counter", "reset the outage counter",
		"Deletes all previous records."},
	{LastOutage, "when was the last outage", "when was the last outage",
		"Shows the last date the site was down, along with the count."},
	{NewOutage, "the site went down", "the site went down",
		"Records an outage today and restarts the counter."},
	{Average, "what is the average outage", "what is the average outage",
		"Shows the team's average streak without an outage."},
	{HighScore, "what is the high score", "what is the high score",
		"Shows the longest streak without an outage."},
	{OutageDaysAgo, "there was a new outage", "there was a new outage N days ago",
		"Records a missed outage N days in the past."},
	{RemoveDate, "remove outage date", "remove outage date YYYY-MM-DD",
		"Deletes a mistyped outage date."},
	{ShowAll, "show all outage dates", "show all outage dates",
		"Lists all the outage dates."},
}

// Parse matches text against the known command phrases.
func Parse(text string) (Command, error) {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")

	for _, r := range routes {
		idx := strings.Index(norm, r.phrase)
		if idx < 0 {
			continue
		}
		args := strings.Fields(norm[idx+len(r.phrase):])

		switch r.kind {
		case OutageDaysAgo:
			n, err := parseDaysAgo(args)
			if err != nil {
				return Command{}, err
			}
			return Command{Kind: OutageDaysAgo, DaysAgo: n}, nil

		case RemoveDate:
			d, err := parseDateArg(args)
			if err != nil {
				return Command{}, err
			}
			return Command{Kind: RemoveDate, Date: d}, nil

		default:
			return Command{Kind: r.kind}, nil
		}
	}

	if norm == "help" || strings.Contains(norm, "outage help") {
		return Command{Kind: Help}, nil
	}
	return Command{}, ErrUnknownCommand
}

// parseDaysAgo reads "N days ago" (or "1 day ago").
func parseDaysAgo(args []string) (int, error) {
	usage := "Sorry, I need a whole number of days, like \"there was a new outage 5 days ago\"."
	if len(args) < 3 || (args[1] != "days" && args[1] != "day") || trimPunct(args[2]) != "ago" {
		return 0, &InputError{Err: tracker.ErrInvalidArgument, Reply: usage}
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, &InputError{
			Err:   tracker.ErrInvalidArgument,
			Reply: fmt.Sprintf("Sorry, %q is not a number of days. The count must be zero or more.", args[0]),
		}
	}
	if n > config.MaxDaysAgo {
		return 0, &InputError{
			Err:   tracker.ErrInvalidArgument,
			Reply: fmt.Sprintf("Sorry, I can only record outages up to %d days back.", config.MaxDaysAgo),
		}
	}
	return n, nil
}

// parseDateArg reads a YYYY-M-D date.
func parseDateArg(args []string) (time.Time, error) {
	if len(args) == 0 {
		return time.Time{}, &InputError{
			Err:   tracker.ErrInvalidDate,
			Reply: "Sorry, which date? Use YYYY-MM-DD, like \"remove outage date 2016-2-23\".",
		}
	}

	raw := trimPunct(args[0])
	d, err := types.ParseDate(raw)
	if err != nil {
		return time.Time{}, &InputError{
			Err:   tracker.ErrInvalidDate,
			Reply: fmt.Sprintf("Sorry, %q is not a valid date. Use YYYY-MM-DD, like 2016-2-23.", raw),
		}
	}
	return d, nil
}

func trimPunct(s string) string {
	return strings.TrimRight(s, ".,!?;:")
}

// HelpText lists every command phrase with its description.
func HelpText() string {
	var b strings.Builder
	b.WriteString("Outage counter commands:")
	for _, r := range routes {
		fmt.Fprintf(&b, "\n%s - %s", r.usage, r.help)
	}
	return b.String()
}
