package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateStyle selects how FormatDate renders a Unix timestamp.
type DateStyle int

const (
	DateYMDHMS DateStyle = iota // default: "2006-01-02 15:04:05"
	DateYMD
	DateYMDHMSOffset
	DateRFC3339
	DateRFC2822
	DateCompact
	DateUnix
)

// ParseDateStyle parses the CLI/config spelling of a date style.
func ParseDateStyle(s string) (DateStyle, error) {
	switch s {
	case "ymd", "d":
		return DateYMD, nil
	case "ymdhms", "dt", "":
		return DateYMDHMS, nil
	case "ymdhmso", "dto":
		return DateYMDHMSOffset, nil
	case "rfc3339", "3339":
		return DateRFC3339, nil
	case "rfc2822", "2822":
		return DateRFC2822, nil
	case "compact":
		return DateCompact, nil
	case "unix":
		return DateUnix, nil
	default:
		return 0, fmt.Errorf("unknown date style %q", s)
	}
}

// FormatDate renders ts (Unix seconds) in loc according to style. DateUnix
// round-trips through strconv so that parsing it back with ParseDate
// yields the same integer.
func FormatDate(ts int64, style DateStyle, loc *time.Location) string {
	if style == DateUnix {
		return strconv.FormatInt(ts, 10)
	}
	t := time.Unix(ts, 0).In(loc)
	switch style {
	case DateYMD:
		return t.Format("2006-01-02")
	case DateYMDHMSOffset:
		return t.Format("2006-01-02 15:04:05 -07:00")
	case DateRFC3339:
		return t.Format("2006-01-02T15:04:05-07:00")
	case DateRFC2822:
		return t.Format("Mon, 02 Jan 2006 15:04:05 -07:00")
	case DateCompact:
		return t.Format("20060102150405")
	default:
		return t.Format("2006-01-02 15:04:05")
	}
}

// FmtUTC formats ts as a fixed RFC3339-ish UTC string, used for warning
// messages (clock jumps, out-of-range dates) regardless of display style.
func FmtUTC(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02T15:04:05Z")
}

// DurationStyle selects how FormatDuration renders a count of seconds.
type DurationStyle int

const (
	DurationHms DurationStyle = iota
	DurationHmsFixed
	DurationSecs
	DurationHuman
)

// ParseDurationStyle parses the CLI/config spelling of a duration style.
func ParseDurationStyle(s string) (DurationStyle, error) {
	switch s {
	case "hms", "":
		return DurationHms, nil
	case "hmsfixed":
		return DurationHmsFixed, nil
	case "s", "secs":
		return DurationSecs, nil
	case "h", "human":
		return DurationHuman, nil
	default:
		return 0, fmt.Errorf("unknown duration style %q", s)
	}
}

// FormatDuration renders a non-negative count of seconds. Negative values
// (a Start/Stop pair where the clock went backwards) render as "?": the
// caller decides whether a duration is unknown for a different reason
// (unmatched pair) and should also use "?" in that case.
func FormatDuration(secs int64, style DurationStyle) string {
	if secs < 0 {
		return "?"
	}
	switch style {
	case DurationSecs:
		return strconv.FormatInt(secs, 10)
	case DurationHmsFixed:
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	case DurationHuman:
		return formatHuman(secs)
	default: // DurationHms
		switch {
		case secs >= 3600:
			return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
		case secs >= 60:
			return fmt.Sprintf("%d:%02d", secs/60, secs%60)
		default:
			return strconv.FormatInt(secs, 10)
		}
	}
}

func formatHuman(secs int64) string {
	if secs == 0 {
		return "0 second"
	}
	units := []struct {
		n    int64
		name string
	}{
		{secs / 86400, "day"},
		{secs % 86400 / 3600, "hour"},
		{secs % 3600 / 60, "minute"},
		{secs % 60, "second"},
	}
	var parts []string
	for _, u := range units {
		if u.n <= 0 {
			continue
		}
		plural := ""
		if u.n > 1 {
			plural = "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s%s", u.n, u.name, plural))
	}
	return strings.Join(parts, ", ")
}

// ParseSecsDuration parses a plain integer count of seconds, the inverse
// of FormatDuration(d, DurationSecs) for d >= 0.
func ParseSecsDuration(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
