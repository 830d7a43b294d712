package logsource

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name string, content []byte) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p
}

func TestReadPlainLines(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "emerge.log", []byte("one\ntwo\nthree"))
	s, err := Open(p)
	require.NoError(t, err)
	defer s.Close()

	var got []string
	for {
		line, _, err := s.ReadLine()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, line)
	}
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestReadGzipLines(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte("a\nb\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	p := writeTemp(t, dir, "emerge.log.gz", buf.Bytes())

	s, err := Open(p)
	require.NoError(t, err)
	defer s.Close()

	line, n, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "a", line)
	assert.Equal(t, 1, n)

	line, n, err = s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "b", line)
	assert.Equal(t, 2, n)

	_, _, err = s.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenInvalidGzipHeader(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "emerge.log.gz", []byte("not gzip"))
	_, err := Open(p)
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.log"))
	assert.Error(t, err)
}
