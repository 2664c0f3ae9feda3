// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package report

import (
	"cmp"
	"slices"

	"go.astrophena.name/socialstats/internal/snapshot"
)

// On returns rows of t whose col equals date.
func On(t *snapshot.Table, col, date string) []snapshot.Row {
	return filter(t, func(r snapshot.Row) bool { return r[col].String() == date })
}

// Since returns rows of t whose col is on or after cutoff. Dates are ISO
// strings, so they compare lexicographically.
func Since(t *snapshot.Table, col, cutoff string) []snapshot.Row {
	return filter(t, func(r snapshot.Row) bool { return r[col].String() >= cutoff })
}

func filter(t *snapshot.Table, keep func(snapshot.Row) bool) []snapshot.Row {
	if t == nil {
		return nil
	}
	var rows []snapshot.Row
	for _, r := range t.Rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return rows
}

// TopN returns up to n rows with the greatest metric, in descending order.
// Rows with equal metric keep their input order.
func TopN(rows []snapshot.Row, metric string, n int) []snapshot.Row {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b snapshot.Row) int {
		return cmp.Compare(b[metric].Float(), a[metric].Float())
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Sum returns the total of col over rows.
func Sum(rows []snapshot.Row, col string) float64 {
	var sum float64
	for _, r := range rows {
		sum += r[col].Float()
	}
	return sum
}

// Mean returns the average of col over rows, or 0 if there are none.
func Mean(rows []snapshot.Row, col string) float64 {
	if len(rows) == 0 {
		return 0
	}
	return Sum(rows, col) / float64(len(rows))
}

// BestFormat returns the value of typeCol whose rows have the greatest total
// metric. Ties go to the type seen first. It returns "N/A" for no rows.
func BestFormat(rows []snapshot.Row, typeCol, metric string) string {
	var (
		order  []string
		totals = make(map[string]float64)
	)
	for _, r := range rows {
		typ := r[typeCol].String()
		if _, ok := totals[typ]; !ok {
			order = append(order, typ)
		}
		totals[typ] += r[metric].Float()
	}
	best := "N/A"
	for i, typ := range order {
		if i == 0 || totals[typ] > totals[best] {
			best = typ
		}
	}
	return best
}
