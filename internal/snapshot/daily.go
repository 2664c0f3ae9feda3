// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package snapshot

// UpsertDaily prepares the row for today in a table holding one row per day,
// keyed by the schema's date column.
//
// It returns a copy of row with every change column filled in from the most
// recent row dated before today (the one with the greatest date other than
// today). A change is empty when the current metric is empty and 0 when
// there is no previous value. The returned index is that of today's existing
// row, which should be overwritten, or -1 if the row should be appended.
func UpsertDaily(s Schema, existing *Table, row Row, today string) (Row, int) {
	row = row.Clone()
	row[s.Date] = Text(today)

	idx := -1
	var prev Row
	if existing != nil {
		for i, r := range existing.Rows {
			date := r[s.Date].String()
			switch {
			case date == today:
				if idx < 0 {
					idx = i
				}
			case date == "":
			case prev == nil || date > prev[s.Date].String():
				prev = r
			}
		}
	}

	for _, c := range s.Changes {
		cur := row[c.Metric]
		if c.Fallback != "" && cur.Float() == 0 && !row[c.Fallback].IsEmpty() {
			cur = row[c.Fallback]
		}
		if cur.IsEmpty() {
			row[c.Column] = Text("")
			continue
		}
		if prev == nil || prev[c.Metric].IsEmpty() {
			row[c.Column] = Int(0)
			continue
		}
		row[c.Column] = Num(cur.Float() - prev[c.Metric].Float())
	}
	return row, idx
}
