package table

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowAlignmentRightDefault(t *testing.T) {
	var buf bytes.Buffer
	tbl := New(&buf, 2, StyleColumns, "")
	tbl.Row([][]string{{"1"}, {"ab"}})
	tbl.Row([][]string{{"22"}, {"c"}})
	require.NoError(t, tbl.Flush())
	assert.Equal(t, " 1  ab\n22   c\n", buf.String())
}

func TestRowAlignmentLeft(t *testing.T) {
	var buf bytes.Buffer
	tbl := New(&buf, 2, StyleColumns, "")
	tbl.Align(1, AlignLeft)
	tbl.Row([][]string{{"1"}, {"ab"}})
	tbl.Row([][]string{{"22"}, {"c"}})
	require.NoError(t, tbl.Flush())
	assert.Equal(t, " 1  ab\n22  c\n", buf.String())
}

func TestEmptyColumnSkipped(t *testing.T) {
	var buf bytes.Buffer
	tbl := New(&buf, 2, StyleColumns, "")
	tbl.Row([][]string{{"x"}, {""}})
	tbl.Row([][]string{{"y"}, {""}})
	require.NoError(t, tbl.Flush())
	assert.Equal(t, "x\ny\n", buf.String())
}

func TestAnsiFragmentContributesZeroWidth(t *testing.T) {
	var buf bytes.Buffer
	tbl := New(&buf, 1, StyleColumns, "")
	tbl.Row([][]string{{"\x1B[1;32m", "x", "\x1B[0m"}})
	tbl.Row([][]string{{"yyy"}})
	require.NoError(t, tbl.Flush())
	// Column width is max(1, 3) = 3; styled "x" cell should pad to width 3
	// even though its raw byte length (with escapes) is much longer.
	assert.Contains(t, buf.String(), "\x1B[1;32mx\x1B[0m\n")
}

func TestLimitInsertsSkipMarker(t *testing.T) {
	var buf bytes.Buffer
	tbl := New(&buf, 1, StyleColumns, "")
	for i := 1; i <= 12; i++ {
		tbl.Row([][]string{{fmt.Sprintf("%d", i)}})
	}
	tbl.Limit(2, 2)
	require.NoError(t, tbl.Flush())
	assert.Equal(t, "1\n2\n(skip 8)\n11\n12\n", buf.String())
}

func TestLimitNoopWhenNothingToSkip(t *testing.T) {
	var buf bytes.Buffer
	tbl := New(&buf, 1, StyleColumns, "")
	tbl.Row([][]string{{"1"}})
	tbl.Row([][]string{{"2"}})
	tbl.Limit(2, 2)
	require.NoError(t, tbl.Flush())
	assert.Equal(t, "1\n2\n", buf.String())
}

func TestLimitOnlyFirst(t *testing.T) {
	var buf bytes.Buffer
	tbl := New(&buf, 1, StyleColumns, "")
	for i := 1; i <= 5; i++ {
		tbl.Row([][]string{{fmt.Sprintf("%d", i)}})
	}
	tbl.Limit(2, 0)
	require.NoError(t, tbl.Flush())
	assert.Equal(t, "1\n2\n(skip 3)\n", buf.String())
}

func TestTabStyleNoAlignment(t *testing.T) {
	var buf bytes.Buffer
	tbl := New(&buf, 2, StyleTab, "")
	tbl.Row([][]string{{"1"}, {"ab"}})
	require.NoError(t, tbl.Flush())
	assert.Equal(t, "1\tab\n", buf.String())
}

func TestVisibleLenIgnoresEscapes(t *testing.T) {
	s := []byte("\x1B[1;32mhello\x1B[0m")
	assert.Equal(t, 5, VisibleLen(s))
}

func TestStripTruncatesLongText(t *testing.T) {
	got := Strip("  hello world  ", 5)
	assert.Equal(t, "hello...", got)
}

func TestStripShortTextUnchanged(t *testing.T) {
	got := Strip("  hi  ", 10)
	assert.Equal(t, "hi", got)
}

func TestThemeUpdateValid(t *testing.T) {
	th, err := DefaultTheme().Update("merge:1;32 count:0;33")
	require.NoError(t, err)
	assert.Equal(t, "\x1B[1;32m", th.Merge)
	assert.Equal(t, "\x1B[0;33m", th.Count)
}

func TestThemeUpdateUnknownKey(t *testing.T) {
	_, err := DefaultTheme().Update("bogus:1")
	assert.Error(t, err)
}

func TestThemeUpdateBadSGRChars(t *testing.T) {
	_, err := DefaultTheme().Update("merge:abc")
	assert.Error(t, err)
}
