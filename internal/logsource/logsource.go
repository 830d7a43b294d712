// Package logsource opens an emerge.log file, transparently decompressing
// it when gzipped, and yields it as a sequence of raw lines.
package logsource

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Source is an opened, line-buffered emerge.log. The zero value is not
// usable; construct with Open.
type Source struct {
	name string
	r    *bufio.Reader
	c    io.Closer
	line int
}

// Open opens name, a plain or ".gz"-suffixed emerge.log, for line-at-a-time
// reading. The caller must Close it.
func Open(name string) (*Source, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open %s: invalid gzip header: %w", name, err)
		}
		return &Source{name: name, r: bufio.NewReader(gz), c: multiCloser{gz, f}}, nil
	}
	return &Source{name: name, r: bufio.NewReader(f), c: f}, nil
}

// Name returns the path the Source was opened from, for error messages.
func (s *Source) Name() string { return s.name }

// ReadLine returns the next line (without its trailing newline) and its
// 1-based line number. io.EOF is returned once the file is exhausted, with
// an empty line. Other read errors (e.g. a corrupt gzip stream mid-file)
// are returned as-is so the caller can log and continue to the next line.
func (s *Source) ReadLine() (string, int, error) {
	line, err := s.r.ReadString('\n')
	s.line++
	if err != nil && err != io.EOF {
		return "", s.line, err
	}
	if err == io.EOF && line == "" {
		return "", s.line, io.EOF
	}
	return strings.TrimRight(line, "\n"), s.line, nil
}

// Close releases the underlying file (and gzip reader, if any).
func (s *Source) Close() error { return s.c.Close() }

type multiCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (m multiCloser) Close() error {
	gzErr := m.gz.Close()
	fErr := m.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}
