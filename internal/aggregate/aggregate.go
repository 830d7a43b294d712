// Package aggregate pairs merge/unmerge Start and Stop events into
// durations, keeps a bounded history per package, and groups totals into
// (time bucket, package-or-repo) buckets for the stats command.
package aggregate

import (
	"sort"
	"time"

	"github.com/vincentdephily/emlop-sub000/internal/event"
	"github.com/vincentdephily/emlop-sub000/internal/timeutil"
)

// Merge is one completed (or still-pending) build: Stop/Duration are only
// valid once the matching Stop event has arrived.
type Merge struct {
	Ebuild   string
	Version  string
	Start    int64
	Stop     int64
	Duration int64 // seconds; -1 for a Stop with no matching Start, per FormatDuration's "unknown" convention
}

// Tracker pairs Start/Stop events sharing the same ebuild+version key. A
// second Start for the same key before its Stop arrives overwrites the
// first: an interrupted build that was retried without portage ever
// logging the first attempt's failure should not also claim the eventual
// success's duration.
type Tracker struct {
	pending map[string]int64
	sync    int64
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker { return &Tracker{pending: map[string]int64{}} }

// Merge records a MergeStart/MergeStop or UnmergeStart/UnmergeStop pair.
// It returns a completed Merge (ok=true) on a Stop that has a matching
// Start, and (Merge{}, false) otherwise (a Start, or an unmatched Stop).
func (t *Tracker) Merge(ev event.Event) (Merge, bool) {
	key := ev.Key
	if ev.Kind == event.UnmergeStart || ev.Kind == event.UnmergeStop {
		key = "unmerge:" + key
	}
	switch ev.Kind {
	case event.MergeStart, event.UnmergeStart:
		t.pending[key] = ev.TS
		return Merge{}, false
	case event.MergeStop, event.UnmergeStop:
		start, ok := t.pending[key]
		if !ok {
			return Merge{Ebuild: ev.Ebuild(), Version: ev.Version(), Stop: ev.TS, Duration: -1}, true
		}
		delete(t.pending, key)
		return Merge{Ebuild: ev.Ebuild(), Version: ev.Version(), Start: start, Stop: ev.TS, Duration: ev.TS - start}, true
	default:
		return Merge{}, false
	}
}

// Sync records a SyncStart/SyncStop pair, returning the completed
// duration on Stop.
func (t *Tracker) Sync(ev event.Event) (int64, bool) {
	switch ev.Kind {
	case event.SyncStart:
		t.sync = ev.TS
		return 0, false
	case event.SyncStop:
		if t.sync == 0 {
			return -1, true
		}
		d := ev.TS - t.sync
		t.sync = 0
		return d, true
	default:
		return 0, false
	}
}

// History is a bounded, most-recent-first duration list for one package,
// used by the predictor to compute a rolling average/median.
type History struct {
	limit int
	durs  []int64 // most recent first
}

// NewHistory returns a History keeping at most limit entries (0 means
// unlimited).
func NewHistory(limit int) *History { return &History{limit: limit} }

// Add records a new duration as the most recent one, evicting the oldest
// entry if limit is exceeded. Negative (unknown) durations are not
// recorded: they carry no predictive information.
func (h *History) Add(d int64) {
	if d < 0 {
		return
	}
	h.durs = append([]int64{d}, h.durs...)
	if h.limit > 0 && len(h.durs) > h.limit {
		h.durs = h.durs[:h.limit]
	}
}

// Durations returns the recorded durations, most recent first.
func (h *History) Durations() []int64 { return h.durs }

// Bucket is one (group, package-or-repo) pair's running totals. Key is
// the period string from the Grouper's Timespan ("" for the ungrouped
// span), for sync rows as well as merge/unmerge rows; Pkg holds the
// package atom for merge/unmerge rows or the repo name for sync rows. History keeps a bounded,
// most-recent-first tail of this bucket's own merge durations, which is
// what the stats command feeds to the predictor for that row.
type Bucket struct {
	Key          string
	Pkg          string
	MergeCount   int
	MergeTime    int64
	UnmergeCount int
	UnmergeTime  int64
	SyncCount    int
	SyncTime     int64
	history      *History
}

// MergeDurations returns this bucket's bounded merge-duration history,
// most recent first.
func (b *Bucket) MergeDurations() []int64 { return b.history.Durations() }

// Grouper accumulates Bucket totals keyed by (Timespan bucket key, package
// or repo), preserving first-seen order for groups (buckets are walked
// chronologically as events arrive, so insertion order is chronological
// order) and emitting packages/repos within a group in lexicographic order.
type Grouper struct {
	span       timeutil.Timespan
	loc        *time.Location
	limit      int
	groupOrder []string
	groups     map[string]map[string]*Bucket
}

// NewGrouper returns a Grouper bucketing by span in loc. SpanNone collapses
// every period into a single group keyed "". limit bounds each bucket's
// own merge-duration history (0 means unlimited), same convention as
// History.
func NewGrouper(span timeutil.Timespan, loc *time.Location, limit int) *Grouper {
	return &Grouper{span: span, loc: loc, limit: limit, groups: map[string]map[string]*Bucket{}}
}

func (g *Grouper) bucket(ts int64, pkg string) *Bucket {
	key := g.span.Key(ts, g.loc)
	byPkg, ok := g.groups[key]
	if !ok {
		byPkg = map[string]*Bucket{}
		g.groups[key] = byPkg
		g.groupOrder = append(g.groupOrder, key)
	}
	b, ok := byPkg[pkg]
	if !ok {
		b = &Bucket{Key: key, Pkg: pkg, history: NewHistory(g.limit)}
		byPkg[pkg] = b
	}
	return b
}

// AddMerge folds a completed merge/unmerge duration into pkg's bucket for
// ts's period.
func (g *Grouper) AddMerge(ts int64, pkg string, dur int64, unmerge bool) {
	b := g.bucket(ts, pkg)
	known := dur
	if known < 0 {
		known = 0
	}
	if unmerge {
		b.UnmergeCount++
		b.UnmergeTime += known
		return
	}
	b.MergeCount++
	b.MergeTime += known
	b.history.Add(dur)
}

// AddSync folds a completed sync duration into repo's bucket for ts's
// period.
func (g *Grouper) AddSync(ts int64, repo string, dur int64) {
	b := g.bucket(ts, repo)
	if dur < 0 {
		dur = 0
	}
	b.SyncCount++
	b.SyncTime += dur
}

// Buckets returns the accumulated buckets: groups in chronological order,
// packages/repos within each group in lexicographic order.
func (g *Grouper) Buckets() []*Bucket {
	out := make([]*Bucket, 0, len(g.groups))
	for _, key := range g.groupOrder {
		byPkg := g.groups[key]
		names := make([]string, 0, len(byPkg))
		for name := range byPkg {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, byPkg[name])
		}
	}
	return out
}
