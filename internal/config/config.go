// Package config holds the flag defaults and parsing shared by every
// emlop subcommand.
package config

import (
	"fmt"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/vincentdephily/emlop-sub000/internal/filter"
	"github.com/vincentdephily/emlop-sub000/internal/parser"
	"github.com/vincentdephily/emlop-sub000/internal/table"
	"github.com/vincentdephily/emlop-sub000/internal/timeutil"
)

// Raw is the set of flags every subcommand accepts before they're
// resolved into typed values (time bounds need `now` and the command's
// CommandStart history to resolve "Nth invocation" bounds, so resolution
// happens after parsing the flags).
type Raw struct {
	Logfile string
	From    string
	To      string
	Package []string
	Exact   bool
	Show    string
	Utc     bool
	Date    string
	Duration string
	Color   string
	Tab     bool
}

// Resolved is Raw after its string flags have been parsed into the types
// the rest of the program works with.
type Resolved struct {
	Logfile    string
	FromBound  timeutil.Bound
	ToBound    timeutil.Bound
	Pkg        filter.Str
	Show       parser.Show
	Loc        *time.Location
	DateStyle  timeutil.DateStyle
	DurStyle   timeutil.DurationStyle
	Theme      table.Theme
	TableStyle table.Style
}

// Resolve validates and converts r into a Resolved, given the current
// time (for relative date parsing) and whether stdout is attached to a
// terminal (the default theme is colored only when it is).
func Resolve(r Raw, now time.Time, stdoutIsTerm bool) (Resolved, error) {
	loc := timeutil.GetOffset(r.Utc)

	var from, to timeutil.Bound
	var err error
	if r.From != "" {
		if from, err = timeutil.ParseDate(r.From, now, loc); err != nil {
			return Resolved{}, fmt.Errorf("--from: %w", err)
		}
	}
	if r.To != "" {
		if to, err = timeutil.ParseDate(r.To, now, loc); err != nil {
			return Resolved{}, fmt.Errorf("--to: %w", err)
		}
	}

	pkg, err := resolvePkg(r.Package, r.Exact)
	if err != nil {
		return Resolved{}, fmt.Errorf("--package: %w", err)
	}

	show, err := resolveShow(r.Show)
	if err != nil {
		return Resolved{}, fmt.Errorf("--show: %w", err)
	}

	dateStyle, err := timeutil.ParseDateStyle(r.Date)
	if err != nil {
		return Resolved{}, fmt.Errorf("--date: %w", err)
	}
	durStyle, err := timeutil.ParseDurationStyle(r.Duration)
	if err != nil {
		return Resolved{}, fmt.Errorf("--duration: %w", err)
	}

	theme := table.PlainTheme()
	if stdoutIsTerm {
		theme = table.DefaultTheme()
	}
	theme, err = theme.Update(r.Color)
	if err != nil {
		return Resolved{}, fmt.Errorf("--color: %w", err)
	}

	style := table.StyleColumns
	if r.Tab {
		style = table.StyleTab
	}

	return Resolved{
		Logfile:    r.Logfile,
		FromBound:  from,
		ToBound:    to,
		Pkg:        pkg,
		Show:       show,
		Loc:        loc,
		DateStyle:  dateStyle,
		DurStyle:   durStyle,
		Theme:      theme,
		TableStyle: style,
	}, nil
}

func resolvePkg(terms []string, exact bool) (filter.Str, error) {
	switch {
	case len(terms) == 0:
		return filter.NewMatchAll(), nil
	case exact:
		return filter.NewExact(terms...), nil
	case len(terms) == 1:
		return filter.NewRegex(terms[0])
	default:
		return filter.NewRegexSet(terms...)
	}
}

func resolveShow(letters string) (parser.Show, error) {
	show := parser.Show{}
	if letters == "" {
		letters = "mus"
	}
	for _, c := range letters {
		switch c {
		case 'm':
			show.Merge = true
		case 'u':
			show.Unmerge = true
		case 's':
			show.Sync = true
		case 'c':
			show.Command = true
		case 'a':
			show.Merge, show.Unmerge, show.Sync, show.Command = true, true, true, true
		default:
			return parser.Show{}, fmt.Errorf("unknown --show letter %q", string(c))
		}
	}
	return show, nil
}

// StdoutIsTerminal reports whether fd 1 looks like a terminal, used to
// pick the default (colored vs plain) theme.
func StdoutIsTerminal(fd uintptr) bool { return isatty.IsTerminal(fd) }
