// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"go.astrophena.name/socialstats/internal/api/google/sheets"
	"go.astrophena.name/socialstats/internal/snapshot"
)

// Sheets stores each table in a tab of a Google Sheets spreadsheet. The first
// row of a tab is its header.
type Sheets struct {
	c      *sheets.Client
	titles []string
}

// NewSheets returns a [Sheets] store using c.
func NewSheets(c *sheets.Client) *Sheets { return &Sheets{c: c} }

// ensure creates the tab with header if it doesn't exist yet. It reports
// whether the tab was created.
func (s *Sheets) ensure(ctx context.Context, sheet string, header []string) (bool, error) {
	if s.titles == nil {
		titles, err := s.c.Titles(ctx)
		if err != nil {
			return false, fmt.Errorf("listing tabs: %w", err)
		}
		s.titles = titles
	}
	if slices.Contains(s.titles, sheet) {
		return false, nil
	}
	if err := s.c.AddSheet(ctx, sheet); err != nil {
		return false, fmt.Errorf("creating tab %q: %w", sheet, err)
	}
	s.titles = append(s.titles, sheet)
	if err := s.c.Update(ctx, sheets.Range(sheet, "A1"), headerLine(header)); err != nil {
		return false, fmt.Errorf("writing header of %q: %w", sheet, err)
	}
	return true, nil
}

func headerLine(header []string) [][]snapshot.Cell {
	line := make([]snapshot.Cell, len(header))
	for i, col := range header {
		line[i] = snapshot.Text(col)
	}
	return [][]snapshot.Cell{line}
}

func rowLine(header []string, r snapshot.Row) []snapshot.Cell {
	line := make([]snapshot.Cell, len(header))
	for i, col := range header {
		line[i] = r[col]
	}
	return line
}

func (s *Sheets) Load(ctx context.Context, sheet string, header []string) (*snapshot.Table, error) {
	created, err := s.ensure(ctx, sheet, header)
	if err != nil {
		return nil, err
	}
	if created {
		return snapshot.Empty(header), nil
	}
	grid, err := s.c.Get(ctx, sheets.Range(sheet, ""))
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", sheet, err)
	}
	t := snapshot.FromValues(grid)
	if len(t.Header) == 0 {
		t.Header = slices.Clone(header)
	}
	return t, nil
}

func (s *Sheets) Replace(ctx context.Context, sheet string, t *snapshot.Table) error {
	if _, err := s.ensure(ctx, sheet, t.Header); err != nil {
		return err
	}
	if err := s.c.Clear(ctx, sheets.Range(sheet, "")); err != nil {
		return fmt.Errorf("clearing %q: %w", sheet, err)
	}
	if err := s.c.Update(ctx, sheets.Range(sheet, "A1"), t.Values()); err != nil {
		return fmt.Errorf("writing %q: %w", sheet, err)
	}
	return nil
}

// header makes sure the first row of the tab starts with declared and
// returns the full header.
func (s *Sheets) header(ctx context.Context, sheet string, declared []string) ([]string, error) {
	created, err := s.ensure(ctx, sheet, declared)
	if err != nil {
		return nil, err
	}
	if created {
		return declared, nil
	}
	first, err := s.c.Get(ctx, sheets.Range(sheet, "1:1"))
	if err != nil {
		return nil, fmt.Errorf("reading header of %q: %w", sheet, err)
	}
	var existing []string
	if len(first) > 0 {
		for _, c := range first[0] {
			existing = append(existing, c.String())
		}
	}
	merged := mergeHeader(declared, existing)
	if !slices.Equal(merged, existing) {
		if err := s.c.Update(ctx, sheets.Range(sheet, "A1"), headerLine(merged)); err != nil {
			return nil, fmt.Errorf("writing header of %q: %w", sheet, err)
		}
	}
	return merged, nil
}

func (s *Sheets) UpsertRow(ctx context.Context, sheet string, header []string, index int, row snapshot.Row) error {
	h, err := s.header(ctx, sheet, header)
	if err != nil {
		return err
	}
	line := [][]snapshot.Cell{rowLine(h, row)}
	if index < 0 {
		if err := s.c.Append(ctx, sheets.Range(sheet, "A1"), line); err != nil {
			return fmt.Errorf("appending to %q: %w", sheet, err)
		}
		return nil
	}
	// Load skips blank lines, so index counts only the lines with data.
	grid, err := s.c.Get(ctx, sheets.Range(sheet, ""))
	if err != nil {
		return fmt.Errorf("reading %q: %w", sheet, err)
	}
	lines := snapshot.DataLines(grid)
	if index >= len(lines) {
		return fmt.Errorf("%w: %d in %q", ErrRowOutOfRange, index, sheet)
	}
	// Grid line i is spreadsheet row i+1.
	if err := s.c.Update(ctx, sheets.Range(sheet, "A"+strconv.Itoa(lines[index]+1)), line); err != nil {
		return fmt.Errorf("updating row %d of %q: %w", index, sheet, err)
	}
	return nil
}

func (s *Sheets) AppendRows(ctx context.Context, sheet string, header []string, rows []snapshot.Row) error {
	if len(rows) == 0 {
		return nil
	}
	h, err := s.header(ctx, sheet, header)
	if err != nil {
		return err
	}
	lines := make([][]snapshot.Cell, len(rows))
	for i, r := range rows {
		lines[i] = rowLine(h, r)
	}
	if err := s.c.Append(ctx, sheets.Range(sheet, "A1"), lines); err != nil {
		return fmt.Errorf("appending to %q: %w", sheet, err)
	}
	return nil
}

// Close is a no-op for Sheets.
func (s *Sheets) Close() error { return nil }
