package timeutil

import (
	"fmt"
	"time"
)

// Timespan is the stats grouping granularity.
type Timespan int

const (
	SpanNone Timespan = iota
	SpanYear
	SpanMonth
	SpanWeek
	SpanDay
)

// ParseTimespan parses the --groupby spelling.
func ParseTimespan(s string) (Timespan, error) {
	switch s {
	case "y", "year":
		return SpanYear, nil
	case "m", "month":
		return SpanMonth, nil
	case "w", "week":
		return SpanWeek, nil
	case "d", "day":
		return SpanDay, nil
	case "n", "none", "":
		return SpanNone, nil
	default:
		return 0, fmt.Errorf("unknown groupby span %q", s)
	}
}

// Name is the column header for this span ("" for SpanNone).
func (s Timespan) Name() string {
	switch s {
	case SpanYear:
		return "Year"
	case SpanMonth:
		return "Month"
	case SpanWeek:
		return "Week"
	case SpanDay:
		return "Date"
	default:
		return ""
	}
}

// Key returns the group bucket string for ts ("" when SpanNone).
func (s Timespan) Key(ts int64, loc *time.Location) string {
	t := time.Unix(ts, 0).In(loc)
	switch s {
	case SpanYear:
		return t.Format("2006")
	case SpanMonth:
		return t.Format("2006-01")
	case SpanWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-%02d", y, w)
	case SpanDay:
		return t.Format("2006-01-02")
	default:
		return ""
	}
}

// Next advances ts to the start (00:00:00 in loc) of the following
// year/month/week/day bucket. Year buckets start on January 1st, month
// buckets on the 1st of the month, week buckets on Monday.
func (s Timespan) Next(ts int64, loc *time.Location) int64 {
	t := time.Unix(ts, 0).In(loc)
	y, mo, d := t.Date()
	var d2 time.Time
	switch s {
	case SpanYear:
		d2 = time.Date(y+1, time.January, 1, 0, 0, 0, 0, loc)
	case SpanMonth:
		ny, nm := y, mo+1
		if nm > time.December {
			nm = time.January
			ny++
		}
		d2 = time.Date(ny, nm, 1, 0, 0, 0, 0, loc)
	case SpanWeek:
		wd := t.Weekday()
		// Go's time.Sunday == 0; days until next Monday.
		daysUntilMonday := (8 - int(wd)) % 7
		if daysUntilMonday == 0 {
			daysUntilMonday = 7
		}
		base := time.Date(y, mo, d, 0, 0, 0, 0, loc)
		d2 = base.AddDate(0, 0, daysUntilMonday)
	case SpanDay:
		d2 = time.Date(y, mo, d, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	default:
		panic("Next called on SpanNone")
	}
	return d2.Unix()
}
