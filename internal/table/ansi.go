package table

// ansiState is a minimal ANSI/SGR escape-sequence parser, just enough to
// measure or strip text styling from a string that may contain it. Exotic
// escapes that shouldn't show up in an emerge.log or in emlop's own theme
// strings cause the rest of the string to be treated as one opaque,
// zero-width escape: a full terminal emulator would be overkill here.
type ansiState int

const (
	ansiTxt ansiState = iota
	ansiEsc
	ansiCSI
	ansiUnsupported
	ansiEscEnd
)

func (s ansiState) step(c byte) ansiState {
	switch {
	case (s == ansiTxt || s == ansiEscEnd) && c == '\x1B':
		return ansiEsc
	case (s == ansiTxt || s == ansiEscEnd) && c < ' ':
		return ansiEscEnd
	case s == ansiTxt || s == ansiEscEnd:
		return ansiTxt
	case s == ansiEsc && c == '[':
		return ansiCSI
	case s == ansiEsc && (c == '7' || c == '8' || c == '\n' || c == '\f' || c == '\r'):
		return ansiEscEnd
	case s == ansiEsc:
		return ansiUnsupported
	case s == ansiCSI && c >= '@' && c <= '~':
		return ansiEscEnd
	case s == ansiCSI:
		return ansiCSI
	default: // ansiUnsupported
		return ansiUnsupported
	}
}

// VisibleLen returns the length of s ignoring embedded ANSI/SGR escapes.
func VisibleLen(s []byte) int {
	n := 0
	st := ansiTxt
	for _, c := range s {
		st = st.step(c)
		if st == ansiTxt {
			n++
		}
	}
	return n
}

// Strip removes ANSI/SGR escapes from s, trims surrounding whitespace, and
// truncates the visible text to max bytes, appending "..." if it does.
func Strip(s string, max int) string {
	out := make([]byte, 0, max+3)
	st := ansiTxt
	trimmed := trimSpace(s)
	visible := 0
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		st = st.step(c)
		if st == ansiTxt {
			if visible >= max {
				out = append(out, '.', '.', '.')
				break
			}
			if len(out) > 0 || c != ' ' && c != '\t' {
				out = append(out, c)
				visible++
			}
		}
	}
	return string(out)
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && isSpace(s[i]) {
		i++
	}
	for j > i && isSpace(s[j-1]) {
		j--
	}
	return s[i:j]
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
