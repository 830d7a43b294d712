// Package filter implements the package-name and time-window matching
// applied to every event the parser emits.
package filter

import (
	"regexp"
	"strings"
)

// Str matches a package atom ("category/name"). The zero value matches
// everything. Matching is case-sensitive for the exact-string forms and
// case-insensitive for the regex forms, mirroring how emerge itself treats
// atoms versus search terms.
type Str struct {
	kind strKind
	set  map[string]struct{}
	re   *regexp.Regexp
}

type strKind int

const (
	kindAll strKind = iota
	kindSet
	kindRegex
)

// NewMatchAll returns a Str that matches every atom.
func NewMatchAll() Str { return Str{kind: kindAll} }

// NewExact builds a Str matching any of terms. A term containing "/" must
// match the whole "category/name" atom; a term with no "/" matches just the
// name component (the part after the last "/"), so "vim" matches both
// "app-editors/vim" and a bare "vim".
func NewExact(terms ...string) Str {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return Str{kind: kindSet, set: set}
}

// NewRegex compiles a single case-insensitive pattern.
func NewRegex(pattern string) (Str, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Str{}, err
	}
	return Str{kind: kindRegex, re: re}, nil
}

// NewRegexSet compiles several patterns as alternatives of one
// case-insensitive regex. Go's regexp has no native multi-pattern RegexSet
// the way Rust's regex crate does, so the patterns are joined with "|" and
// each wrapped in a non-capturing group; this gives the same match
// semantics (matches iff any pattern matches) at the cost of not being able
// to report which alternative matched, which emlop's filtering never needs.
func NewRegexSet(patterns ...string) (Str, error) {
	if len(patterns) == 1 {
		return NewRegex(patterns[0])
	}
	wrapped := make([]string, len(patterns))
	for i, p := range patterns {
		wrapped[i] = "(?:" + p + ")"
	}
	re, err := regexp.Compile("(?i)" + strings.Join(wrapped, "|"))
	if err != nil {
		return Str{}, err
	}
	return Str{kind: kindRegex, re: re}, nil
}

// Match reports whether atom ("category/name") satisfies the filter.
func (s Str) Match(atom string) bool {
	switch s.kind {
	case kindAll:
		return true
	case kindSet:
		if _, ok := s.set[atom]; ok {
			return true
		}
		if i := strings.LastIndexByte(atom, '/'); i >= 0 {
			if _, ok := s.set[atom[i+1:]]; ok {
				return true
			}
		}
		return false
	case kindRegex:
		return s.re.MatchString(atom)
	default:
		return false
	}
}

// Window is an inclusive time bound on both ends: events with
// Min <= ts <= Max pass. Use MinTS/MaxTS for an unbounded window.
type Window struct {
	Min int64
	Max int64
}

const (
	MinTS = int64(-1) << 62
	MaxTS = int64(1)<<62 - 1
)

// NewWindow builds a Window, rejecting an inverted range. min == max is a
// valid single-instant window.
func NewWindow(min, max int64) (Window, error) {
	if min > max {
		return Window{}, errInvertedWindow
	}
	return Window{Min: min, Max: max}, nil
}

// Unbounded returns a Window accepting every timestamp.
func Unbounded() Window { return Window{Min: MinTS, Max: MaxTS} }

// Contains reports whether ts falls within the window.
func (w Window) Contains(ts int64) bool { return ts >= w.Min && ts <= w.Max }

var errInvertedWindow = &windowError{}

type windowError struct{}

func (*windowError) Error() string { return "time window min must not be after max" }
