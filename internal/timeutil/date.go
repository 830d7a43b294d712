package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Bound is a parsed --from/--to value: either an absolute Unix timestamp
// or the ordinal of an invocation ("command") to resolve later against the
// CommandStart events seen in the log.
type Bound struct {
	Unix int64
	Run  int // 0-based; only valid when IsRun
	IsRun bool
}

var spanRe = regexp.MustCompile(`[0-9]+|[a-z]+`)

// ParseDate parses a --from/--to style value: a Unix timestamp, an
// absolute yyyy-mm-dd[Thh:mm[:ss]][offset] date, a relative "N unit ago"
// expression, or "Nc"/"c"/"N commands" referring to the Nth invocation.
func ParseDate(s string, now time.Time, loc *time.Location) (Bound, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Bound{Unix: i}, nil
	}
	if ts, err := parseAbsolute(s, loc); err == nil {
		return Bound{Unix: ts}, nil
	}
	if n, err := parseCommandNum(s); err == nil {
		return Bound{Run: n, IsRun: true}, nil
	}
	if ts, err := parseRelative(s, now); err == nil {
		return Bound{Unix: ts}, nil
	}
	return Bound{}, fmt.Errorf("not a unix timestamp, absolute date, relative date, or command: %q", s)
}

// parseCommandNum parses a 1-based invocation ordinal ("5c", "c",
// "1 commands") and returns it 0-based.
func parseCommandNum(s string) (int, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	rest := strings.TrimSpace(s[i:])
	switch rest {
	case "c", "command", "commands":
		if i == 0 {
			return 0, nil
		}
		n, err := strconv.Atoi(s[:i])
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("bad command number %q", s)
		}
		return n - 1, nil
	default:
		return 0, fmt.Errorf("bad span %q", rest)
	}
}

var absFormats = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseAbsolute(s string, loc *time.Location) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty date")
	}
	for _, f := range absFormats {
		if strings.Contains(f, "Z07:00") {
			if t, err := time.Parse(f, s); err == nil {
				return t.Unix(), nil
			}
			continue
		}
		if t, err := time.ParseInLocation(f, s, loc); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("not an absolute date: %q", s)
}

// parseRelative parses expressions like "1 hour, 3 days 45sec", "5 weeks",
// "2d1h", "w", "2m" relative to now.
func parseRelative(s string, now time.Time) (int64, error) {
	for _, c := range s {
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != ' ' && c != ',' {
			return 0, fmt.Errorf("bad char in relative date %q", s)
		}
	}
	hasAlpha := false
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			hasAlpha = true
			break
		}
	}
	if !hasAlpha {
		return 0, fmt.Errorf("empty relative date")
	}
	// A bare span with an implicit count of 1, e.g. "w" or "day".
	if t, err := applySpan(1, strings.TrimSpace(s), now); err == nil {
		return t.Unix(), nil
	}
	toks := spanRe.FindAllString(s, -1)
	cur := now
	i := 0
	found := false
	for i < len(toks) {
		n, err := strconv.Atoi(toks[i])
		if err != nil {
			return 0, fmt.Errorf("expected a number in %q", s)
		}
		i++
		span := ""
		if i < len(toks) {
			span = toks[i]
			i++
		}
		cur, err = applySpan(n, span, cur)
		if err != nil {
			return 0, err
		}
		found = true
	}
	if !found {
		return 0, fmt.Errorf("no span found in %q", s)
	}
	return cur.Unix(), nil
}

func applySpan(n int, span string, now time.Time) (time.Time, error) {
	switch span {
	case "y", "year", "years":
		return addYears(now, -n), nil
	case "m", "month", "months":
		return addMonths(now, -n), nil
	case "w", "week", "weeks":
		return now.AddDate(0, 0, -7*n), nil
	case "d", "day", "days":
		return now.AddDate(0, 0, -n), nil
	case "h", "hour", "hours":
		return now.Add(-time.Duration(n) * time.Hour), nil
	case "min", "mins", "minute", "minutes":
		return now.Add(-time.Duration(n) * time.Minute), nil
	case "s", "sec", "secs", "second", "seconds":
		return now.Add(-time.Duration(n) * time.Second), nil
	default:
		return time.Time{}, fmt.Errorf("bad span %q", span)
	}
}

// addYears replaces the year, clamping Feb 29 to Feb 28 in non-leap years.
func addYears(t time.Time, delta int) time.Time {
	y, mo, d := t.Date()
	y += delta
	if mo == time.February && d == 29 && !isLeap(y) {
		d = 28
	}
	return time.Date(y, mo, d, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

// addMonths walks month-by-month (rather than using AddDate, which
// overflows into the following month when the day doesn't exist in the
// target month), clamping the day to the target month's length.
func addMonths(t time.Time, delta int) time.Time {
	y, mo, d := t.Date()
	total := int(mo) - 1 + delta
	y += total / 12
	m := total % 12
	if m < 0 {
		m += 12
		y--
	}
	month := time.Month(m + 1)
	last := daysInMonth(y, month)
	if d > last {
		d = last
	}
	return time.Date(y, month, d, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func daysInMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
