// Package command wires the parser, aggregator, predictor, and table
// packages together into the log/stats/predict/accuracy subcommands.
package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/vincentdephily/emlop-sub000/internal/aggregate"
	"github.com/vincentdephily/emlop-sub000/internal/event"
	"github.com/vincentdephily/emlop-sub000/internal/filter"
	"github.com/vincentdephily/emlop-sub000/internal/logsource"
	"github.com/vincentdephily/emlop-sub000/internal/parser"
	"github.com/vincentdephily/emlop-sub000/internal/predict"
	"github.com/vincentdephily/emlop-sub000/internal/pretend"
	"github.com/vincentdephily/emlop-sub000/internal/procinfo"
	"github.com/vincentdephily/emlop-sub000/internal/resume"
	"github.com/vincentdephily/emlop-sub000/internal/table"
	"github.com/vincentdephily/emlop-sub000/internal/timeutil"
)

// Common bundles the options every subcommand shares.
type Common struct {
	Logfile    string
	Window     filter.Window
	Pkg        filter.Str
	Show       parser.Show
	Loc        *time.Location
	DateStyle  timeutil.DateStyle
	DurStyle   timeutil.DurationStyle
	TableStyle table.Style
	Theme      table.Theme
}

func (c Common) fmtDate(ts int64) string { return timeutil.FormatDate(ts, c.DateStyle, c.Loc) }
func (c Common) fmtDur(d int64) string   { return timeutil.FormatDuration(d, c.DurStyle) }

// Log runs the "emlop log" subcommand: a straightforward listing of
// merge/unmerge/sync/command events with their resolved duration, writing
// to out. first/last limit the output to that many rows from the start
// and/or end of the matching set (0 means unbounded on that side), with a
// "(skip N)" marker row standing in for whatever falls between them.
func Log(ctx context.Context, c Common, first, last int, out io.Writer) (bool, error) {
	src, err := logsource.Open(c.Logfile)
	if err != nil {
		return false, err
	}
	defer src.Close()

	tr := aggregate.NewTracker()
	tbl := table.New(out, 3, c.TableStyle, "")
	tbl.Align(2, table.AlignLeft)
	tbl.SkipStyle(c.Theme.Skip, c.Theme.Qmark)
	foundOne := false

	for ev := range parser.Stream(ctx, src, parser.Options{Window: c.Window, Pkg: c.Pkg, Show: c.Show}) {
		switch ev.Kind {
		case event.MergeStart, event.MergeStop, event.UnmergeStart, event.UnmergeStop:
			m, ok := tr.Merge(ev)
			if !ok {
				continue
			}
			foundOne = true
			color := c.Theme.Merge
			if ev.Kind == event.UnmergeStop {
				color = c.Theme.Unmerge
			}
			tbl.Row([][]string{
				{c.fmtDate(m.Stop)},
				{c.Theme.Duration, c.fmtDur(m.Duration), c.Theme.Qmark},
				{color, m.Ebuild + "-" + m.Version, c.Theme.Qmark},
			})
		case event.SyncStart, event.SyncStop:
			d, ok := tr.Sync(ev)
			if !ok {
				continue
			}
			foundOne = true
			tbl.Row([][]string{
				{c.fmtDate(ev.TS)},
				{c.Theme.Duration, c.fmtDur(d), c.Theme.Qmark},
				{c.Theme.Sync, "Sync", c.Theme.Qmark},
			})
		case event.CommandStart:
			foundOne = true
			tbl.Row([][]string{
				{c.fmtDate(ev.TS)},
				{""},
				{c.Theme.Count, ev.Line, c.Theme.Qmark},
			})
		}
	}
	tbl.Limit(first, last)
	return foundOne, tbl.Flush()
}

// StatsOptions configures the stats subcommand.
type StatsOptions struct {
	Common
	Group   timeutil.Timespan
	Average predict.Average
	Limit   int
}

// Stats runs the "emlop stats" subcommand: per-(period, package) totals
// and a rolling-average prediction for each package row, with per-repo
// sync rows reported separately. Rows are emitted in chronological order
// of period, and lexicographically by package/repo within a period,
// matching how emerge's own atom ordering reads.
func Stats(ctx context.Context, o StatsOptions, out io.Writer) (bool, error) {
	src, err := logsource.Open(o.Logfile)
	if err != nil {
		return false, err
	}
	defer src.Close()

	tr := aggregate.NewTracker()
	grouper := aggregate.NewGrouper(o.Group, o.Loc, o.Limit)
	foundOne := false

	for ev := range parser.Stream(ctx, src, parser.Options{Window: o.Window, Pkg: o.Pkg, Show: o.Show}) {
		switch ev.Kind {
		case event.MergeStart, event.MergeStop:
			m, ok := tr.Merge(ev)
			if !ok || m.Duration < 0 {
				continue
			}
			foundOne = true
			grouper.AddMerge(m.Stop, m.Ebuild, m.Duration, false)
		case event.UnmergeStart, event.UnmergeStop:
			m, ok := tr.Merge(ev)
			if ok && m.Duration >= 0 {
				foundOne = true
				grouper.AddMerge(m.Stop, m.Ebuild, m.Duration, true)
			}
		case event.SyncStart, event.SyncStop:
			d, ok := tr.Sync(ev)
			if ok && d >= 0 {
				foundOne = true
				grouper.AddSync(ev.TS, ev.Repo, d)
			}
		}
	}

	tbl := table.New(out, 5, o.TableStyle, "")
	tbl.Align(0, table.AlignLeft)
	tbl.Align(1, table.AlignLeft)
	for _, b := range grouper.Buckets() {
		if b.MergeCount > 0 {
			predicted := "?"
			if est, ok := predict.Estimate(b.MergeDurations(), o.Average); ok {
				predicted = o.fmtDur(est)
			}
			tbl.Row([][]string{
				{b.Key},
				{b.Pkg},
				{c2s(b.MergeCount)},
				{o.fmtDur(b.MergeTime)},
				{predicted},
			})
		}
		if b.UnmergeCount > 0 {
			tbl.Row([][]string{
				{b.Key},
				{b.Pkg + " (unmerge)"},
				{c2s(b.UnmergeCount)},
				{o.fmtDur(b.UnmergeTime)},
				{""},
			})
		}
		if b.SyncCount > 0 {
			tbl.Row([][]string{
				{b.Key},
				{b.Pkg + " (sync)"},
				{c2s(b.SyncCount)},
				{o.fmtDur(b.SyncTime)},
				{""},
			})
		}
	}
	return foundOne, tbl.Flush()
}

func c2s(n int) string { return fmt.Sprintf("%d", n) }

// fmtSignedDur renders a prediction error, which may be negative
// (overestimate) unlike every other duration in emlop's output.
func fmtSignedDur(d int64, c Common) string {
	if d < 0 {
		return "-" + c.fmtDur(-d)
	}
	return "+" + c.fmtDur(d)
}

// PredictOptions configures the predict subcommand.
type PredictOptions struct {
	Common
	Average  predict.Average
	Resume   resume.Kind
	ResumeDB string
	Now      int64
}

// pendingAtom is one package name from C6 (pretend) or C7 (resume) that
// the predict command needs a duration estimate for.
type pendingAtom struct {
	ebuild, version string
}

// logState is what a single pass over the log gives the predict command:
// completed-merge history per package (for Estimate) and the timestamp of
// the most recent still-open MergeStart per "ebuild-version" key (for
// in-progress detection).
type logState struct {
	histories map[string]*aggregate.History
	starts    map[string]int64
}

// Predict runs the "emlop predict" subcommand. The candidate package list
// always comes from C6 (emerge --pretend piped to stdin, preferred) or C7
// (the --resume list); /proc inspection only locates the earliest running
// emerge process, which anchors "in progress" detection: a candidate is
// in-progress if the log shows a MergeStart for it after that process
// started, and queued otherwise.
func Predict(o PredictOptions, stdin io.Reader, out io.Writer) (bool, error) {
	tEmerge := earliestEmergeStart()

	var pending []pendingAtom
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		for _, pk := range pretend.Parse(stdin, "-") {
			pending = append(pending, pendingAtom{ebuild: pk.Ebuild, version: pk.Version})
		}
	}
	if len(pending) == 0 && o.Resume != resume.KindNo && o.ResumeDB != "" {
		if store, err := resume.Open(o.ResumeDB); err == nil {
			defer store.Close()
			if atoms, err := store.List(o.Resume, tEmerge != 0); err == nil {
				for _, a := range atoms {
					pending = append(pending, pendingAtom{ebuild: a.Ebuild, version: a.Version})
				}
			}
		}
	}

	tbl := table.New(out, 4, o.TableStyle, "")
	tbl.Align(0, table.AlignLeft)
	if len(pending) == 0 {
		return false, tbl.Flush()
	}

	state, err := scanLog(o.Logfile, o.Window, o.Pkg, o.Show)
	if err != nil {
		return false, err
	}

	var totalRemaining int64
	for _, p := range pending {
		var durs []int64
		if h, ok := state.histories[p.ebuild]; ok {
			durs = h.Durations()
		}
		est, ok := predict.Estimate(durs, o.Average)
		var estSecs int64
		if ok {
			estSecs = est
		}
		var start int64
		if ts, running := state.starts[p.ebuild+"-"+p.version]; running && tEmerge != 0 && ts > tEmerge {
			start = ts
		}
		row := predict.NewRow(p.ebuild, p.version, start, o.Now, estSecs, ok)
		estStr, remStr := "?", "?"
		if ok {
			estStr, remStr = o.fmtDur(row.Estimate), o.fmtDur(row.Remaining)
			totalRemaining += row.Remaining
		}
		tbl.Row([][]string{
			{o.fmtDur(row.Elapsed)},
			{remStr},
			{estStr},
			{p.ebuild + "-" + p.version},
		})
	}
	tbl.Row([][]string{
		{""}, {o.fmtDur(totalRemaining)}, {""},
		{"estimate, done " + o.fmtDate(o.Now+totalRemaining)},
	})
	return true, tbl.Flush()
}

// earliestEmergeStart returns the start time of the oldest running emerge
// process, or 0 if none is running (every candidate is then treated as
// merely queued, never in-progress).
func earliestEmergeStart() int64 {
	procs, err := procinfo.GetAll(new([]string))
	if err != nil {
		slog.Warn("process inspection unavailable", "err", err)
		return 0
	}
	var earliest int64
	for _, p := range procs {
		if p.Kind != procinfo.KindEmerge {
			continue
		}
		if earliest == 0 || p.Start < earliest {
			earliest = p.Start
		}
	}
	return earliest
}

// scanLog walks the log once, pairing completed merges into per-package
// history and tracking the most recent still-open MergeStart per package,
// both of which the predict command needs.
func scanLog(logfile string, win filter.Window, pkg filter.Str, show parser.Show) (*logState, error) {
	src, err := logsource.Open(logfile)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	tr := aggregate.NewTracker()
	state := &logState{histories: map[string]*aggregate.History{}, starts: map[string]int64{}}
	opt := parser.Options{Window: win, Pkg: pkg, Show: parser.Show{Merge: true, Command: show.Command}}
	for ev := range parser.Stream(context.Background(), src, opt) {
		if ev.Kind != event.MergeStart && ev.Kind != event.MergeStop {
			continue
		}
		key := ev.Ebuild() + "-" + ev.Version()
		if ev.Kind == event.MergeStart {
			state.starts[key] = ev.TS
		}
		m, ok := tr.Merge(ev)
		if !ok {
			continue
		}
		delete(state.starts, key)
		if m.Duration < 0 {
			continue
		}
		h, ok := state.histories[m.Ebuild]
		if !ok {
			h = aggregate.NewHistory(0)
			state.histories[m.Ebuild] = h
		}
		h.Add(m.Duration)
	}
	return state, nil
}

// Accuracy runs the "emlop accuracy" subcommand, comparing past predicted
// durations against what actually happened: for every completed merge it
// re-derives what Estimate would have predicted from the history
// available strictly before that merge, and reports the error.
func Accuracy(ctx context.Context, c Common, avg predict.Average, limit int, out io.Writer) (bool, error) {
	src, err := logsource.Open(c.Logfile)
	if err != nil {
		return false, err
	}
	defer src.Close()

	tr := aggregate.NewTracker()
	histories := map[string]*aggregate.History{}
	tbl := table.New(out, 4, c.TableStyle, "")
	tbl.Align(0, table.AlignLeft)
	foundOne := false

	for ev := range parser.Stream(ctx, src, parser.Options{Window: c.Window, Pkg: c.Pkg, Show: parser.Show{Merge: true}}) {
		if ev.Kind != event.MergeStart && ev.Kind != event.MergeStop {
			continue
		}
		m, ok := tr.Merge(ev)
		if !ok || m.Duration < 0 {
			continue
		}
		h, ok := histories[m.Ebuild]
		if !ok {
			h = aggregate.NewHistory(limit)
			histories[m.Ebuild] = h
		}
		if est, ok := predict.Estimate(h.Durations(), avg); ok {
			foundOne = true
			errSecs := m.Duration - est
			tbl.Row([][]string{
				{m.Ebuild + "-" + m.Version},
				{c.fmtDur(m.Duration)},
				{c.fmtDur(est)},
				{fmtSignedDur(errSecs, c)},
			})
		}
		h.Add(m.Duration)
	}
	return foundOne, tbl.Flush()
}
