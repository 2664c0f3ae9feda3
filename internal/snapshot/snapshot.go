// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package snapshot merges freshly fetched records into the running history
// stored in a spreadsheet tab.
//
// A snapshot is always read whole, merged in memory and written back whole.
// Merging the same fetch into the same snapshot twice yields the same table.
package snapshot

import (
	"cmp"
	"slices"
)

// Schema describes the columns of one kind of snapshot.
type Schema struct {
	// Key is the column that identifies a record.
	Key string
	// Date is the column rows are sorted by, newest first. Values are ISO
	// dates, so they sort lexicographically.
	Date string
	// Columns lists the columns of a fresh record, in order.
	Columns []string
	// Deltas lists metrics whose change since the previous snapshot is
	// tracked in a "<metric>_delta" column.
	Deltas []string
	// Text lists columns that default to empty text instead of 0.
	Text []string
	// Changes lists day-over-day change columns maintained by UpsertDaily.
	Changes []Change
}

// Change describes a day-over-day change column.
type Change struct {
	// Column holds the change.
	Column string
	// Metric is the column the change is computed from.
	Metric string
	// Fallback, if set, is read from the current row when Metric is 0 or
	// empty there.
	Fallback string
}

// DeltaColumn returns the name of the column tracking the change of metric.
func DeltaColumn(metric string) string { return metric + "_delta" }

// Header returns the columns of a fresh record followed by its delta
// columns.
func (s Schema) Header() []string {
	h := slices.Clone(s.Columns)
	for _, m := range s.Deltas {
		h = append(h, DeltaColumn(m))
	}
	return h
}

// isText reports whether col defaults to empty text. Columns unknown to the
// schema are text.
func (s Schema) isText(col string) bool {
	if slices.Contains(s.Text, col) {
		return true
	}
	if slices.Contains(s.Columns, col) {
		return false
	}
	for _, m := range s.Deltas {
		if DeltaColumn(m) == col {
			return false
		}
	}
	for _, c := range s.Changes {
		if c.Column == col {
			return false
		}
	}
	return true
}

// Reconcile merges fresh records into existing and returns the new snapshot.
// Neither argument is modified.
//
// For every delta metric the fresh record gets metric minus its value in the
// existing row with the same key. Keys never seen before get 0, as does
// everything when existing is empty. If existing has rows but lacks the
// metric column entirely, the previous value counts as 0. Deltas may be
// negative.
//
// The result has the fresh columns first, then any columns only existing
// has; missing cells are filled with empty text or 0. Rows are unique by key,
// with fresh records replacing existing ones, and sorted by date, newest
// first. Non-finite numbers are replaced by 0.
func Reconcile(s Schema, fresh []Row, existing *Table) *Table {
	prior := make(map[string]Row, existing.Len())
	if existing != nil {
		for _, r := range existing.Rows {
			k := r[s.Key].String()
			if _, ok := prior[k]; !ok {
				prior[k] = r
			}
		}
	}

	rows := make([]Row, 0, len(fresh)+existing.Len())
	for _, r := range fresh {
		r = r.Clone()
		for _, m := range s.Deltas {
			r[DeltaColumn(m)] = Num(delta(r, m, prior[r[s.Key].String()], existing.HasColumn(m)))
		}
		rows = append(rows, r)
	}
	if existing != nil {
		for _, r := range existing.Rows {
			rows = append(rows, r.Clone())
		}
	}

	out := &Table{Header: s.Header()}
	if existing != nil {
		for _, col := range existing.Header {
			if !slices.Contains(out.Header, col) {
				out.Header = append(out.Header, col)
			}
		}
	}

	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		k := r[s.Key].String()
		if seen[k] {
			continue
		}
		seen[k] = true
		for _, col := range out.Header {
			if c, ok := r[col]; ok && !c.IsEmpty() {
				continue
			}
			if s.isText(col) {
				r[col] = Text("")
			} else {
				r[col] = Int(0)
			}
		}
		out.Rows = append(out.Rows, r)
	}

	slices.SortStableFunc(out.Rows, func(a, b Row) int {
		return cmp.Compare(b[s.Date].String(), a[s.Date].String())
	})
	Sanitize(out)
	return out
}

func delta(r Row, metric string, prior Row, hasMetric bool) float64 {
	if prior == nil {
		return 0
	}
	cur := r[metric].Float()
	if !hasMetric {
		return cur
	}
	return cur - prior[metric].Float()
}
