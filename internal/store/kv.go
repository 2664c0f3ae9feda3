// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.astrophena.name/socialstats/internal/snapshot"
)

// KV is a key-value store holding one JSON-encoded table per tab.
type KV interface {
	// Get retrieves a value for a given key.
	// It must return (nil, nil) if the key is not found.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value for a given key.
	Set(ctx context.Context, key string, value []byte) error
	// Close closes the store and releases any resources.
	Close() error
}

// tables implements Store on top of a KV.
type tables struct {
	kv KV
}

func newTables(kv KV) *tables { return &tables{kv: kv} }

func (s *tables) get(ctx context.Context, sheet string) (*snapshot.Table, error) {
	b, err := s.kv.Get(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", sheet, err)
	}
	if b == nil {
		return nil, nil
	}
	t := new(snapshot.Table)
	if err := json.Unmarshal(b, t); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", sheet, err)
	}
	return t, nil
}

func (s *tables) put(ctx context.Context, sheet string, t *snapshot.Table) error {
	if t.Rows == nil {
		t = &snapshot.Table{Header: t.Header, Rows: []snapshot.Row{}}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, sheet, b); err != nil {
		return fmt.Errorf("writing %q: %w", sheet, err)
	}
	return nil
}

func (s *tables) Load(ctx context.Context, sheet string, header []string) (*snapshot.Table, error) {
	t, err := s.get(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if t == nil {
		t = snapshot.Empty(header)
		if err := s.put(ctx, sheet, t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (s *tables) Replace(ctx context.Context, sheet string, t *snapshot.Table) error {
	return s.put(ctx, sheet, t)
}

func (s *tables) UpsertRow(ctx context.Context, sheet string, header []string, index int, row snapshot.Row) error {
	t, err := s.Load(ctx, sheet, header)
	if err != nil {
		return err
	}
	t.Header = mergeHeader(header, t.Header)
	switch {
	case index < 0:
		t.Rows = append(t.Rows, row)
	case index < len(t.Rows):
		t.Rows[index] = row
	default:
		return fmt.Errorf("%w: %d in %q", ErrRowOutOfRange, index, sheet)
	}
	return s.put(ctx, sheet, t)
}

func (s *tables) AppendRows(ctx context.Context, sheet string, header []string, rows []snapshot.Row) error {
	t, err := s.Load(ctx, sheet, header)
	if err != nil {
		return err
	}
	t.Header = mergeHeader(header, t.Header)
	t.Rows = append(slices.Clip(t.Rows), rows...)
	return s.put(ctx, sheet, t)
}

func (s *tables) Close() error { return s.kv.Close() }
