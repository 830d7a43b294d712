// Package parser turns emerge.log lines into a stream of events, filtering
// by time window and package atom as it goes.
package parser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vincentdephily/emlop-sub000/internal/event"
	"github.com/vincentdephily/emlop-sub000/internal/filter"
	"github.com/vincentdephily/emlop-sub000/internal/logsource"
	"github.com/vincentdephily/emlop-sub000/internal/timeutil"
)

// Show selects which event kinds are worth emitting; a merge/unmerge/sync
// line outside of Show's selection is discarded before the package-atom
// filter is even consulted, since it's cheaper than running the regex.
type Show struct {
	Merge   bool
	Unmerge bool
	Sync    bool
	Command bool
}

// Options configures a parse run.
type Options struct {
	Window Window
	Pkg    filter.Str
	Show   Show
}

// Window aliases filter.Window for callers that only need the parser.
type Window = filter.Window

// channelCapacity bounds the event channel so a slow table renderer
// back-pressures the log reader instead of letting it buffer an entire
// 100k-line emerge.log in memory.
const channelCapacity = 256

// Stream parses src in a background goroutine and returns a channel of
// events; it closes the channel when the file is exhausted, ctx is
// canceled, or the caller stops draining and the goroutine exits on a
// blocked send once ctx is done. Read errors on individual lines are
// logged and skipped; a read error does not stop the parse.
func Stream(ctx context.Context, src *logsource.Source, opt Options) <-chan event.Event {
	out := make(chan event.Event, channelCapacity)
	go func() {
		defer close(out)
		var prevTS int64
		for {
			line, n, err := src.ReadLine()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				slog.Warn("read error", "file", src.Name(), "line", n, "err", err)
				continue
			}
			ts, rest, ok := parseTS(line, opt.Window)
			if !ok {
				continue
			}
			if prevTS > ts {
				slog.Warn("system clock jump", "from", timeutil.FmtUTC(prevTS), "to", timeutil.FmtUTC(ts))
			}
			prevTS = ts
			ev, ok := dispatch(ts, rest, opt)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// parseTS extracts the leading "<unix>:" timestamp (portage writes a
// colon right after the epoch seconds), applies the time window, and
// returns the remainder of the line with leading spaces trimmed.
func parseTS(line string, w Window) (int64, string, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) {
		return 0, "", false
	}
	ts, err := strconv.ParseInt(line[:i], 10, 64)
	if err != nil {
		return 0, "", false
	}
	if !w.Contains(ts) {
		return 0, "", false
	}
	rest := strings.TrimLeft(line[i+1:], " ")
	return ts, rest, true
}

func dispatch(ts int64, s string, opt Options) (event.Event, bool) {
	showMerge := opt.Show.Merge
	showUnmerge := opt.Show.Unmerge
	if ev, ok := parseMergeStart(showMerge, ts, s, opt.Pkg); ok {
		return ev, true
	}
	if ev, ok := parseMergeStop(showMerge, ts, s, opt.Pkg); ok {
		return ev, true
	}
	if ev, ok := parseUnmergeStart(showUnmerge, ts, s, opt.Pkg); ok {
		return ev, true
	}
	if ev, ok := parseUnmergeStop(showUnmerge, ts, s, opt.Pkg); ok {
		return ev, true
	}
	if ev, ok := parseSyncStart(opt.Show.Sync, ts, s); ok {
		return ev, true
	}
	if ev, ok := parseSyncStop(opt.Show.Sync, ts, s, opt.Pkg); ok {
		return ev, true
	}
	if ev, ok := parseCommandStart(opt.Show.Command, ts, s); ok {
		return ev, true
	}
	return event.Event{}, false
}

// findVersion scans atom ("category/pkg-version") left to right for the
// first "-" immediately followed by an ASCII digit; that's where the
// version starts. It returns (0, false) if no such split exists, and
// otherwise applies pkgFilter to the "category/pkg" part before
// confirming the split, exactly as emerge's own atom grammar requires a
// digit to start a version.
func findVersion(atom string, pkgFilter filter.Str) (int, bool) {
	pos := 0
	for {
		i := strings.IndexByte(atom[pos:], '-')
		if i < 0 {
			return 0, false
		}
		pos += i
		if pos > 0 && pos+1 < len(atom) && atom[pos+1] >= '0' && atom[pos+1] <= '9' {
			if !pkgFilter.Match(atom[:pos]) {
				return 0, false
			}
			return pos + 1, true
		}
		pos++
	}
}

func fields(s string) []string { return strings.Fields(s) }

func parseMergeStart(enabled bool, ts int64, line string, pkgFilter filter.Str) (event.Event, bool) {
	if !enabled || !strings.HasPrefix(line, ">>> emer") {
		return event.Event{}, false
	}
	toks := fields(line)
	if len(toks) < 6 {
		return event.Event{}, false
	}
	key := toks[5]
	pos, ok := findVersion(key, pkgFilter)
	if !ok {
		return event.Event{}, false
	}
	return event.Event{Kind: event.MergeStart, TS: ts, Key: key, VersionPos: pos}, true
}

func parseMergeStop(enabled bool, ts int64, line string, pkgFilter filter.Str) (event.Event, bool) {
	if !enabled || !strings.HasPrefix(line, "::: comp") {
		return event.Event{}, false
	}
	toks := fields(line)
	if len(toks) < 7 {
		return event.Event{}, false
	}
	key := toks[6]
	pos, ok := findVersion(key, pkgFilter)
	if !ok {
		return event.Event{}, false
	}
	return event.Event{Kind: event.MergeStop, TS: ts, Key: key, VersionPos: pos}, true
}

func parseUnmergeStart(enabled bool, ts int64, line string, pkgFilter filter.Str) (event.Event, bool) {
	if !enabled || !strings.HasPrefix(line, "=== Unmerging...") {
		return event.Event{}, false
	}
	toks := fields(line)
	if len(toks) < 3 || len(toks[2]) < 2 {
		return event.Event{}, false
	}
	key := strings.Trim(toks[2], "()")
	pos, ok := findVersion(key, pkgFilter)
	if !ok {
		return event.Event{}, false
	}
	return event.Event{Kind: event.UnmergeStart, TS: ts, Key: key, VersionPos: pos}, true
}

func parseUnmergeStop(enabled bool, ts int64, line string, pkgFilter filter.Str) (event.Event, bool) {
	if !enabled || !strings.HasPrefix(line, ">>> unmerge success") {
		return event.Event{}, false
	}
	toks := fields(line)
	if len(toks) < 4 {
		return event.Event{}, false
	}
	key := toks[3]
	pos, ok := findVersion(key, pkgFilter)
	if !ok {
		return event.Event{}, false
	}
	return event.Event{Kind: event.UnmergeStop, TS: ts, Key: key, VersionPos: pos}, true
}

func parseSyncStart(enabled bool, ts int64, line string) (event.Event, bool) {
	if !enabled {
		return event.Event{}, false
	}
	if strings.HasPrefix(line, ">>> Syncing") ||
		strings.HasPrefix(line, ">>> Starting rsync") ||
		strings.HasPrefix(line, ">>> starting rsync") {
		return event.Event{Kind: event.SyncStart, TS: ts}, true
	}
	return event.Event{}, false
}

func parseSyncStop(enabled bool, ts int64, line string, pkgFilter filter.Str) (event.Event, bool) {
	if !enabled || !strings.HasPrefix(line, "=== Sync completed") {
		return event.Event{}, false
	}
	repo := "unknown"
	if i := strings.LastIndexAny(line, "/ "); i >= 0 {
		repo = strings.TrimSpace(line[i+1:])
	} else {
		slog.Warn("sync repo name not found", "ts", ts, "line", line)
	}
	if !pkgFilter.Match(repo) {
		return event.Event{}, false
	}
	return event.Event{Kind: event.SyncStop, TS: ts, Repo: repo}, true
}

// parseCommandStart recognizes the invocation-marker lines portage writes
// at the start of every command: "*** emerge <args>" in older logs, and
// "Started emerge on: <date>" (followed by a separate "*** emerge <args>"
// line) in newer ones. Used to resolve --from/--to values expressed as
// "the Nth invocation" rather than a date.
func parseCommandStart(enabled bool, ts int64, line string) (event.Event, bool) {
	if !enabled {
		return event.Event{}, false
	}
	switch {
	case strings.HasPrefix(line, "*** emerge "):
		return event.Event{Kind: event.CommandStart, TS: ts, Line: strings.TrimPrefix(line, "*** ")}, true
	case strings.HasPrefix(line, "Started emerge on:"):
		return event.Event{Kind: event.CommandStart, TS: ts,
			Line: strings.TrimSpace(strings.TrimPrefix(line, "Started emerge on:"))}, true
	default:
		return event.Event{}, false
	}
}
