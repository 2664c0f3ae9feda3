// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package snapshot

import (
	"maps"
	"slices"
)

// Row maps column names to values. A missing column reads as empty text.
type Row map[string]Cell

// Clone returns a shallow copy of r.
func (r Row) Clone() Row { return maps.Clone(r) }

// Table is a full snapshot of one tab: an ordered header and its rows.
type Table struct {
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// Empty returns a table with the given header and no rows.
func Empty(header []string) *Table {
	return &Table{Header: slices.Clone(header)}
}

// Len returns the number of rows in t. A nil table has no rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether col is in the header of t.
func (t *Table) HasColumn(col string) bool {
	return t != nil && slices.Contains(t.Header, col)
}

// Values returns t as a grid: the header followed by one line per row, in
// header order.
func (t *Table) Values() [][]Cell {
	grid := make([][]Cell, 0, len(t.Rows)+1)
	header := make([]Cell, len(t.Header))
	for i, col := range t.Header {
		header[i] = Text(col)
	}
	grid = append(grid, header)
	for _, r := range t.Rows {
		line := make([]Cell, len(t.Header))
		for i, col := range t.Header {
			line[i] = r[col]
		}
		grid = append(grid, line)
	}
	return grid
}

// FromValues builds a table from a grid whose first line is the header. Short
// lines are allowed, since spreadsheets omit trailing empty cells; the missing
// cells are left out of the row. Header cells that are empty are skipped along
// with their column.
func FromValues(grid [][]Cell) *Table {
	t := new(Table)
	if len(grid) == 0 {
		return t
	}
	cols := make([]string, len(grid[0]))
	for i, c := range grid[0] {
		cols[i] = c.String()
		if cols[i] != "" && !slices.Contains(t.Header, cols[i]) {
			t.Header = append(t.Header, cols[i])
		}
	}
	for _, line := range grid[1:] {
		if blank(line) {
			continue
		}
		r := make(Row, len(line))
		for i, c := range line {
			if i >= len(cols) || cols[i] == "" {
				continue
			}
			if _, dup := r[cols[i]]; dup {
				continue
			}
			r[cols[i]] = c
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

// DataLines returns, for each row FromValues builds from grid, the index of
// the grid line it came from. Blank lines have no row, so row i doesn't
// always come from line i+1.
func DataLines(grid [][]Cell) []int {
	var lines []int
	for i := 1; i < len(grid); i++ {
		if !blank(grid[i]) {
			lines = append(lines, i)
		}
	}
	return lines
}

func blank(line []Cell) bool {
	for _, c := range line {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Sanitize replaces numeric cells that aren't finite numbers with 0.
func Sanitize(t *Table) {
	for _, r := range t.Rows {
		for col, c := range r {
			if c.num && !c.finite() {
				r[col] = Int(0)
			}
		}
	}
}
