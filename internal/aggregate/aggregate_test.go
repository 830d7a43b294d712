package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentdephily/emlop-sub000/internal/event"
	"github.com/vincentdephily/emlop-sub000/internal/timeutil"
)

func mergeEvent(kind event.Kind, ts int64, key string) event.Event {
	pos := 0
	for i := 0; i < len(key); i++ {
		if key[i] == '-' && i+1 < len(key) && key[i+1] >= '0' && key[i+1] <= '9' {
			pos = i + 1
			break
		}
	}
	return event.Event{Kind: kind, TS: ts, Key: key, VersionPos: pos}
}

func TestTrackerPairsStartStop(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.Merge(mergeEvent(event.MergeStart, 100, "app-editors/vim-8.0"))
	assert.False(t, ok)

	m, ok := tr.Merge(mergeEvent(event.MergeStop, 150, "app-editors/vim-8.0"))
	require.True(t, ok)
	assert.Equal(t, "app-editors/vim", m.Ebuild)
	assert.Equal(t, "8.0", m.Version)
	assert.Equal(t, int64(50), m.Duration)
}

func TestTrackerSecondStartOverwritesFirst(t *testing.T) {
	tr := NewTracker()
	tr.Merge(mergeEvent(event.MergeStart, 100, "app-editors/vim-8.0"))
	tr.Merge(mergeEvent(event.MergeStart, 200, "app-editors/vim-8.0"))
	m, ok := tr.Merge(mergeEvent(event.MergeStop, 250, "app-editors/vim-8.0"))
	require.True(t, ok)
	assert.Equal(t, int64(50), m.Duration)
}

func TestTrackerUnmatchedStopIsUnknownDuration(t *testing.T) {
	tr := NewTracker()
	m, ok := tr.Merge(mergeEvent(event.MergeStop, 100, "app-editors/vim-8.0"))
	require.True(t, ok)
	assert.Equal(t, int64(-1), m.Duration)
}

func TestTrackerSyncPairing(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.Sync(event.Event{Kind: event.SyncStart, TS: 100})
	assert.False(t, ok)
	d, ok := tr.Sync(event.Event{Kind: event.SyncStop, TS: 130})
	require.True(t, ok)
	assert.Equal(t, int64(30), d)
}

func TestHistoryBoundedAndMostRecentFirst(t *testing.T) {
	h := NewHistory(2)
	h.Add(10)
	h.Add(20)
	h.Add(30)
	assert.Equal(t, []int64{30, 20}, h.Durations())
}

func TestHistoryIgnoresNegativeDurations(t *testing.T) {
	h := NewHistory(0)
	h.Add(10)
	h.Add(-1)
	assert.Equal(t, []int64{10}, h.Durations())
}

func TestGrouperChronologicalOrder(t *testing.T) {
	g := NewGrouper(timeutil.SpanDay, time.UTC, 0)
	day1 := time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC).Unix()
	day2 := time.Date(2020, 1, 2, 10, 0, 0, 0, time.UTC).Unix()
	g.AddMerge(day1, "app-editors/vim", 60, false)
	g.AddMerge(day2, "app-editors/vim", 30, false)
	g.AddMerge(day1, "app-editors/vim", 40, false)

	buckets := g.Buckets()
	require.Len(t, buckets, 2)
	assert.Equal(t, "2020-01-01", buckets[0].Key)
	assert.Equal(t, 2, buckets[0].MergeCount)
	assert.Equal(t, int64(100), buckets[0].MergeTime)
	assert.Equal(t, "2020-01-02", buckets[1].Key)
	assert.Equal(t, int64(30), buckets[1].MergeTime)
}

func TestGrouperOrdersPackagesLexicographicallyWithinGroup(t *testing.T) {
	g := NewGrouper(timeutil.SpanNone, time.UTC, 0)
	g.AddMerge(100, "www-client/chromium", 10, false)
	g.AddMerge(100, "app-editors/vim", 20, false)
	g.AddMerge(100, "dev-lang/go", 30, false)

	buckets := g.Buckets()
	require.Len(t, buckets, 3)
	assert.Equal(t, "app-editors/vim", buckets[0].Pkg)
	assert.Equal(t, "dev-lang/go", buckets[1].Pkg)
	assert.Equal(t, "www-client/chromium", buckets[2].Pkg)
}

func TestGrouperSumConsistency(t *testing.T) {
	g := NewGrouper(timeutil.SpanNone, time.UTC, 0)
	g.AddMerge(100, "app-editors/vim", 10, false)
	g.AddMerge(200, "app-editors/vim", 20, true)
	g.AddSync(300, "gentoo", 5)
	buckets := g.Buckets()
	require.Len(t, buckets, 2)
	var vim, sync *Bucket
	for _, b := range buckets {
		switch b.Pkg {
		case "app-editors/vim":
			vim = b
		case "gentoo":
			sync = b
		}
	}
	require.NotNil(t, vim)
	require.NotNil(t, sync)
	assert.Equal(t, int64(10), vim.MergeTime)
	assert.Equal(t, int64(20), vim.UnmergeTime)
	assert.Equal(t, int64(5), sync.SyncTime)
}

func TestGrouperBucketMergeDurationsBounded(t *testing.T) {
	g := NewGrouper(timeutil.SpanNone, time.UTC, 2)
	g.AddMerge(100, "www-client/chromium", 21678, false)
	g.AddMerge(200, "www-client/chromium", 28563, false)
	g.AddMerge(300, "www-client/chromium", 27727, false)

	buckets := g.Buckets()
	require.Len(t, buckets, 1)
	assert.Equal(t, 3, buckets[0].MergeCount)
	assert.Equal(t, []int64{27727, 28563}, buckets[0].MergeDurations())
}
