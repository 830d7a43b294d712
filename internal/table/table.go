// Package table renders column-aligned output for the log/stats/predict
// commands, with optional ANSI styling and a tab-separated mode for
// scripting. It buffers every cell in a two-pass scheme: widths are
// measured as rows come in, then the whole table is written once the
// caller is done, so every column can be aligned to its final width.
package table

import (
	"bufio"
	"fmt"
	"io"
)

// Align selects how a column's cells are padded to its width.
type Align int

const (
	AlignRight Align = iota
	AlignLeft
)

// Style selects the overall rendering mode.
type Style int

const (
	StyleColumns Style = iota
	StyleTab
)

type cell struct {
	text string
	// width is the visible width: each fragment of the cell that starts
	// with an ASCII control byte (an ANSI escape) counts as zero-width,
	// so a styled prefix/suffix wrapped around real text does not itself
	// consume column space.
	width int
}

// row is either a normal data row (cells populated) or a head/tail
// truncation marker (skip > 0, cells unused).
type row struct {
	cells []cell
	skip  int
}

// Table accumulates rows and renders them in one shot when Flush is
// called. It does not flush implicitly: rows not flushed are never
// written.
type Table struct {
	w          *bufio.Writer
	style      Style
	cols       int
	aligns     []Align
	widths     []int
	empty      []bool
	rows       []row
	lineEnd    string
	skipPrefix string
	skipSuffix string
}

// New returns a Table with cols columns, all right-aligned by default,
// writing to w once Flush is called.
func New(w io.Writer, cols int, style Style, lineEnd string) *Table {
	aligns := make([]Align, cols)
	return &Table{
		w:       bufio.NewWriter(w),
		style:   style,
		cols:    cols,
		aligns:  aligns,
		widths:  make([]int, cols),
		empty:   trueSlice(cols),
		lineEnd: lineEnd + "\n",
	}
}

func trueSlice(n int) []bool {
	b := make([]bool, n)
	for i := range b {
		b[i] = true
	}
	return b
}

// Align sets column col's alignment, returning the Table for chaining.
func (t *Table) Align(col int, a Align) *Table {
	t.aligns[col] = a
	return t
}

// SkipStyle wraps the "(skip N)" marker text emitted by Limit in prefix/
// suffix (typically a theme's color escape and reset), the same way a
// styled Row fragment is built. Has no effect in StyleTab mode.
func (t *Table) SkipStyle(prefix, suffix string) *Table {
	t.skipPrefix = prefix
	t.skipSuffix = suffix
	return t
}

// Row appends one row; fragments is a per-column list of text fragments
// (e.g. a color escape, the value, a reset escape) concatenated in
// rendering order. A fragment beginning with an ASCII control byte
// contributes 0 to the column's visible width.
func (t *Table) Row(fragments [][]string) {
	cells := make([]cell, t.cols)
	for i := 0; i < t.cols && i < len(fragments); i++ {
		var text string
		width := 0
		for _, frag := range fragments[i] {
			text += frag
			if frag != "" && frag[0] >= ' ' {
				width += len(frag)
			}
		}
		cells[i] = cell{text: text, width: width}
		if width > t.widths[i] {
			t.widths[i] = width
		}
		if width != 0 {
			t.empty[i] = false
		}
	}
	t.rows = append(t.rows, row{cells: cells})
}

// BlankRow appends an empty separator row, used before a new section
// header.
func (t *Table) BlankRow() {
	if len(t.rows) > 0 {
		t.rows = append(t.rows, row{cells: make([]cell, t.cols)})
	}
}

// Limit reduces the rows buffered so far to at most the first N and last M
// of them, replacing whatever falls in between with a single "(skip K)"
// marker row. Rows appended after Limit (e.g. a trailing summary row) are
// unaffected. first<=0 and last<=0 both disable their respective bound; if
// neither cuts anything (first+last >= the current row count) the table is
// left untouched.
func (t *Table) Limit(first, last int) *Table {
	if first < 0 {
		first = 0
	}
	if last < 0 {
		last = 0
	}
	if first == 0 && last == 0 {
		return t
	}
	total := len(t.rows)
	if first+last >= total {
		return t
	}
	skipped := total - first - last
	kept := make([]row, 0, first+1+last)
	kept = append(kept, t.rows[:first]...)
	kept = append(kept, row{skip: skipped})
	kept = append(kept, t.rows[total-last:]...)
	t.rows = kept
	return t
}

// Flush writes every buffered row and resets the Table. In StyleTab mode
// columns are joined with a single tab and never padded, for scripting.
func (t *Table) Flush() error {
	for _, r := range t.rows {
		if r.skip > 0 {
			if t.style != StyleTab {
				t.w.WriteString(t.skipPrefix)
			}
			t.w.WriteString(fmt.Sprintf("(skip %d)", r.skip))
			if t.style != StyleTab {
				t.w.WriteString(t.skipSuffix)
			}
			t.w.WriteString(t.lineEnd)
			continue
		}
		first := true
		for i, c := range r.cells {
			if t.style == StyleColumns && t.empty[i] {
				continue
			}
			if !first {
				if t.style == StyleTab {
					t.w.WriteByte('\t')
				} else {
					t.w.WriteString("  ")
				}
			}
			first = false
			if t.style == StyleTab {
				t.w.WriteString(c.text)
				continue
			}
			pad := t.widths[i] - c.width
			switch t.aligns[i] {
			case AlignLeft:
				t.w.WriteString(c.text)
				if i < t.cols-1 {
					writeSpaces(t.w, pad)
				}
			default:
				writeSpaces(t.w, pad)
				t.w.WriteString(c.text)
			}
		}
		t.w.WriteString(t.lineEnd)
	}
	t.rows = nil
	return t.w.Flush()
}

func writeSpaces(w *bufio.Writer, n int) {
	for i := 0; i < n; i++ {
		w.WriteByte(' ')
	}
}
