package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentdephily/emlop-sub000/internal/filter"
	"github.com/vincentdephily/emlop-sub000/internal/parser"
	"github.com/vincentdephily/emlop-sub000/internal/predict"
	"github.com/vincentdephily/emlop-sub000/internal/resume"
	"github.com/vincentdephily/emlop-sub000/internal/table"
	"github.com/vincentdephily/emlop-sub000/internal/timeutil"
)

const historyLog = `1000000000:  *** emerge (1 of 1) dev-lang/go-1.20
1000000000: >>> emerge (1 of 1) dev-lang/go-1.20 to /
1000000010: ::: completed emerge (1 of 1) dev-lang/go-1.20 to /
1000000100: >>> emerge (1 of 1) dev-lang/go-1.21 to /
1000000120: ::: completed emerge (1 of 1) dev-lang/go-1.21 to /
`

func writeLog(t *testing.T, content string) string {
	p := filepath.Join(t.TempDir(), "emerge.log")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func baseCommon(logfile string) Common {
	return Common{
		Logfile:    logfile,
		Window:     filter.Unbounded(),
		Pkg:        filter.NewMatchAll(),
		Show:       parser.Show{Merge: true, Unmerge: true, Sync: true},
		Loc:        timeutil.GetOffset(true),
		DateStyle:  timeutil.DateYMDHMS,
		DurStyle:   timeutil.DurationHms,
		TableStyle: table.StyleColumns,
		Theme:      table.PlainTheme(),
	}
}

func TestPredictEstimatesFromPastHistory(t *testing.T) {
	p := writeLog(t, historyLog)
	opts := PredictOptions{
		Common:  baseCommon(p),
		Average: predict.AverageArith,
		Resume:  resume.KindNo,
		Now:     1000000200,
	}
	stdin := strings.NewReader("[ebuild  N    ] dev-lang/go-1.22\n")
	var out strings.Builder
	found, err := Predict(opts, stdin, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, out.String(), "dev-lang/go-1.22")
}

func TestPredictNoCandidatesIsNotFound(t *testing.T) {
	p := writeLog(t, historyLog)
	opts := PredictOptions{
		Common:  baseCommon(p),
		Average: predict.AverageArith,
		Resume:  resume.KindNo,
		Now:     1000000200,
	}
	var out strings.Builder
	found, err := Predict(opts, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLogShowsCommandStartRow(t *testing.T) {
	log := "1000000000:  *** emerge (1 of 1) dev-lang/go-1.20\n" +
		"1000000000: >>> emerge (1 of 1) dev-lang/go-1.20 to /\n" +
		"1000000010: ::: completed emerge (1 of 1) dev-lang/go-1.20 to /\n"
	p := writeLog(t, log)
	c := baseCommon(p)
	c.Show.Command = true
	var out strings.Builder
	found, err := Log(context.Background(), c, 0, 0, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, out.String(), "emerge (1 of 1) dev-lang/go-1.20")
}

func TestLogLimitInsertsSkipMarker(t *testing.T) {
	var log strings.Builder
	for i := 0; i < 6; i++ {
		ts := 1000000000 + i*100
		log.WriteString(fmt.Sprintf("%d: >>> emerge (1 of 1) dev-lang/go-1.%d to /\n", ts, i))
		log.WriteString(fmt.Sprintf("%d: ::: completed emerge (1 of 1) dev-lang/go-1.%d to /\n", ts+10, i))
	}
	p := writeLog(t, log.String())
	var out strings.Builder
	found, err := Log(context.Background(), baseCommon(p), 1, 1, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, out.String(), "(skip 4)")
	assert.Contains(t, out.String(), "dev-lang/go-1.0")
	assert.Contains(t, out.String(), "dev-lang/go-1.5")
	assert.NotContains(t, out.String(), "dev-lang/go-1.2")
}

func TestStatsPerPackageBucketsAndPredicts(t *testing.T) {
	log := "1000000000: >>> emerge (1 of 1) www-client/chromium-1.0 to /\n" +
		"1000021678: ::: completed emerge (1 of 1) www-client/chromium-1.0 to /\n" +
		"1000021678: >>> emerge (1 of 1) www-client/chromium-2.0 to /\n" +
		"1000050241: ::: completed emerge (1 of 1) www-client/chromium-2.0 to /\n" +
		"1000050241: >>> emerge (1 of 1) www-client/chromium-3.0 to /\n" +
		"1000077968: ::: completed emerge (1 of 1) www-client/chromium-3.0 to /\n"
	p := writeLog(t, log)
	var out strings.Builder
	found, err := Stats(context.Background(), StatsOptions{
		Common:  baseCommon(p),
		Group:   timeutil.SpanNone,
		Average: predict.AverageMedian,
	}, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, out.String(), "www-client/chromium")
	assert.Contains(t, out.String(), "21:39:28") // sum of the three durations
	assert.Contains(t, out.String(), "7:42:07")  // median duration (predicted)
}

func TestAccuracyReportsSignedError(t *testing.T) {
	p := writeLog(t, historyLog)
	var out strings.Builder
	found, err := Accuracy(context.Background(), baseCommon(p), predict.AverageArith, 10, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, out.String(), "dev-lang/go-1.21")
	assert.Contains(t, out.String(), "+10") // 20s actual vs 10s predicted
}
