// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package report

import (
	"strings"

	"go.astrophena.name/socialstats/internal/snapshot"
)

// InsightsHeader lists the columns of the insights history table.
var InsightsHeader = []string{"date", "insights", "timestamp", "run_id"}

// Insight is the cross-platform insights section of one daily report.
type Insight struct {
	// Date is the day the report covers.
	Date      string
	Text      string
	Timestamp string
	RunID     string
}

// Row converts i into a row of the insights history table.
func (i Insight) Row() snapshot.Row {
	return snapshot.Row{
		"date":      snapshot.Text(i.Date),
		"insights":  snapshot.Text(i.Text),
		"timestamp": snapshot.Text(i.Timestamp),
		"run_id":    snapshot.Text(i.RunID),
	}
}

const (
	insightsMarker  = "🔥"
	separator       = "━"
	maxInsightLines = 10
)

// ExtractInsights returns the cross-platform insights section of a daily
// report: up to 10 non-empty lines following the heading marked with 🔥,
// without the separator line under it. It returns an empty string if the
// report has no such section.
func ExtractInsights(report string) string {
	lines := strings.Split(report, "\n")
	start := -1
	for i, line := range lines {
		if strings.Contains(line, insightsMarker) {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	var (
		out           []string
		skipSeparator = true
	)
	for _, line := range lines[start+1:] {
		if skipSeparator && strings.Contains(line, separator) {
			skipSeparator = false
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
		if len(out) == maxInsightLines {
			break
		}
	}
	return strings.Join(out, "\n")
}
