// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package report

import (
	"strings"
	"testing"

	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/testutil"
)

func TestExtractInsights(t *testing.T) {
	cases := map[string]struct {
		report string
		want   string
	}{
		"typical": {
			report: `🏆 Success of the day
━━━━━━━━━━━━━━━━━
The storm coverage led everywhere.

🔥 3 cross-platform insights
━━━━━━━━━━━━━━━━━
• 📊 Storm video: 40K views on YouTube, 12K reach on Facebook.

  • 🎬 Reels got 3x the reach of photos.
• ❤️ The interview got 5% like rate.
`,
			want: "• 📊 Storm video: 40K views on YouTube, 12K reach on Facebook.\n• 🎬 Reels got 3x the reach of photos.\n• ❤️ The interview got 5% like rate.",
		},
		"no section": {
			report: "🏆 Success of the day\n━━━\nNothing special.",
			want:   "",
		},
		"only first separator is skipped": {
			report: "🔥 insights\n\n━━━\nfirst\n━━━\nsecond",
			want:   "first\n━━━\nsecond",
		},
		"at most ten lines": {
			report: "🔥 insights\n━━━\n" + strings.Repeat("line\n", 15),
			want:   strings.TrimSuffix(strings.Repeat("line\n", 10), "\n"),
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, ExtractInsights(tc.report), tc.want)
		})
	}
}

func TestInsightRow(t *testing.T) {
	in := Insight{Date: "2024-05-11", Text: "• insight", Timestamp: "2024-05-12 09:30", RunID: "run"}
	testutil.AssertEqual(t, in.Row(), snapshot.Row{
		"date":      snapshot.Text("2024-05-11"),
		"insights":  snapshot.Text("• insight"),
		"timestamp": snapshot.Text("2024-05-12 09:30"),
		"run_id":    snapshot.Text("run"),
	})
}
