// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package store persists snapshots: one table per tab, read whole and
// written whole.
//
// Nothing guards against two runs writing the same tab at the same time; the
// last writer wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.astrophena.name/socialstats/internal/api/google/sheets"
	"go.astrophena.name/socialstats/internal/snapshot"
)

// Store holds snapshot tables by tab name.
type Store interface {
	// Load returns the table stored in the named tab. If the tab doesn't
	// exist, it is created with header and an empty table is returned.
	Load(ctx context.Context, sheet string, header []string) (*snapshot.Table, error)
	// Replace overwrites the named tab with t.
	Replace(ctx context.Context, sheet string, t *snapshot.Table) error
	// UpsertRow overwrites data row index (counting from 0, as returned by
	// Load) of the named tab, or appends row if index is negative. The tab's
	// header is extended to contain header first. If the stored header lists
	// the declared columns in another order, the header row is rewritten but
	// older rows are not moved.
	UpsertRow(ctx context.Context, sheet string, header []string, index int, row snapshot.Row) error
	// AppendRows appends rows to the named tab, creating it with header if
	// needed.
	AppendRows(ctx context.Context, sheet string, header []string, rows []snapshot.Row) error
	// Close releases any resources held by the store.
	Close() error
}

// ErrRowOutOfRange is returned by UpsertRow for an index past the last row.
var ErrRowOutOfRange = errors.New("store: row index out of range")

// Open opens a store described by dsn:
//
//   - "sheets" or "": the spreadsheet sc talks to
//   - "mem": an in-memory store
//   - "file:<dir>": one JSON file per tab in dir
//   - "sqlite:<path>": a SQLite database
//   - "postgres://..." or "postgresql://...": a PostgreSQL database
func Open(ctx context.Context, dsn string, sc *sheets.Client) (Store, error) {
	switch {
	case dsn == "" || dsn == "sheets":
		if sc == nil {
			return nil, errors.New("store: sheets backend needs a spreadsheet client")
		}
		return NewSheets(sc), nil
	case dsn == "mem":
		return newTables(NewMemStore()), nil
	case strings.HasPrefix(dsn, "file:"):
		kv, err := NewJSONDir(strings.TrimPrefix(dsn, "file:"))
		if err != nil {
			return nil, err
		}
		return newTables(kv), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		kv, err := NewSQLiteStore(ctx, strings.TrimPrefix(dsn, "sqlite:"))
		if err != nil {
			return nil, err
		}
		return newTables(kv), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		kv, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return newTables(kv), nil
	}
	return nil, fmt.Errorf("store: unknown store %q", dsn)
}

// mergeHeader returns declared followed by the columns of existing it lacks.
func mergeHeader(declared, existing []string) []string {
	h := slices.Clone(declared)
	for _, col := range existing {
		if col != "" && !slices.Contains(h, col) {
			h = append(h, col)
		}
	}
	return h
}
