// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package report

import (
	"strings"
	"testing"
	"time"

	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/social/facebook"
	"go.astrophena.name/socialstats/internal/social/followers"
	"go.astrophena.name/socialstats/internal/social/instagram"
	"go.astrophena.name/socialstats/internal/social/youtube"
	"go.astrophena.name/socialstats/internal/testutil"
)

var now = time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)

// cells builds a row from alternating column names and values.
func cells(kv ...any) snapshot.Row {
	r := make(snapshot.Row)
	for i := 0; i < len(kv); i += 2 {
		r[kv[i].(string)] = snapshot.FromValue(kv[i+1])
	}
	return r
}

func testTables() Tables {
	return Tables{
		YouTube: &snapshot.Table{
			Header: youtube.Schema.Header(),
			Rows: []snapshot.Row{
				cells("video_id", "v1", "published_at", "2024-05-11", "title", "Evening news", "video_type", "Regular", "views", 1000, "likes", 50, "comments", 5, "like_rate", 5.0),
				cells("video_id", "v2", "published_at", "2024-05-11", "title", "Short clip", "video_type", "Shorts", "views", 3000, "likes", 30, "comments", 1, "like_rate", 1.0),
				cells("video_id", "v3", "published_at", "2024-05-11", "title", "Tie clip", "video_type", "Shorts", "views", 1000, "likes", 10, "comments", 0, "like_rate", 1.0),
				cells("video_id", "old3", "published_at", "2024-05-09", "title", "Rising", "views", 800, "views_delta", 500),
				cells("video_id", "old1", "published_at", "2024-05-08", "title", "Old story", "video_type", "Regular", "views", 5000, "views_delta", 200),
				cells("video_id", "old2", "published_at", "2024-05-01", "title", "Older story", "video_type", "Regular", "views", 9000, "views_delta", 0),
			},
		},
		Facebook: &snapshot.Table{
			Header: facebook.Schema.Header(),
			Rows: []snapshot.Row{
				cells("post_id", "p1", "date", "2024-05-11", "type", "Reel", "title", "Storm reel", "reach", 500, "views", 300, "likes", 10, "comments", 2, "shares", 1, "engagement_rate", 2.6),
				cells("post_id", "p2", "date", "2024-05-11", "type", "Photo", "title", "Storm photo", "reach", 800, "views", 0, "likes", 20, "comments", 4, "shares", 3, "engagement_rate", 3.375),
				cells("post_id", "p3", "date", "2024-05-06", "type", "Reel", "title", "Monday reel", "reach", 400),
			},
		},
		Instagram: &snapshot.Table{
			Header: instagram.Schema.Header(),
			Rows: []snapshot.Row{
				cells("media_id", "m1", "date", "2024-05-11", "type", "Reel", "caption", "Line one\nline two", "views", 700, "reach", 600, "likes", 40, "comments", 3, "saved", 5, "shares", 2, "engagement_rate", 7.5),
				cells("media_id", "m2", "date", "2024-05-07", "type", "Photo", "caption", "Quiet day", "views", 100, "likes", 4, "saved", 1),
			},
		},
		Followers: &snapshot.Table{
			Header: followers.Header,
			Rows: []snapshot.Row{
				cells("date", "2024-05-11", "yt_subscribers", 1400),
				cells("date", "2024-05-12", "yt_subscribers", 1500, "fb_followers", 5100, "ig_followers", 2500),
			},
		},
		Insights: &snapshot.Table{
			Header: InsightsHeader,
			Rows: []snapshot.Row{
				cells("date", "2024-05-09", "insights", "• later insight"),
				cells("date", "2024-05-04", "insights", "• too old"),
				cells("date", "2024-05-07", "insights", "• "+strings.Repeat("x", 400)),
				cells("date", "2024-05-10", "insights", "  "),
			},
		},
	}
}

func TestSummarizeDaily(t *testing.T) {
	got := SummarizeDaily(testTables(), now)
	testutil.AssertEqual(t, got, Daily{
		Date:      "12/05/2024",
		Yesterday: "2024-05-11",
		YouTube: &YouTubeDaily{
			Count:    3,
			Views:    5000,
			Likes:    90,
			Comments: 6,
			LikeRate: 2.33,
			Top: []Entry{
				{Title: "Short clip", Type: "Shorts", Views: 3000, Likes: 30, Comments: 1, Rate: 1},
				{Title: "Evening news", Type: "Regular", Views: 1000, Likes: 50, Comments: 5, Rate: 5},
				{Title: "Tie clip", Type: "Shorts", Views: 1000, Likes: 10, Rate: 1},
			},
			Rising: []Entry{
				{Title: "Rising", Date: "2024-05-09", Delta: 500},
				{Title: "Old story", Date: "2024-05-08", Delta: 200},
			},
		},
		Facebook: &FacebookDaily{
			Count:          2,
			Reach:          1300,
			Views:          300,
			Likes:          30,
			Comments:       6,
			Shares:         4,
			EngagementRate: 2.99,
			Top: []Entry{
				{Title: "Storm photo", Type: "Photo", Reach: 800, Likes: 20, Comments: 4, Shares: 3, Rate: 3.4},
				{Title: "Storm reel", Type: "Reel", Reach: 500, Views: 300, Likes: 10, Comments: 2, Shares: 1, Rate: 2.6},
			},
		},
		Instagram: &InstagramDaily{
			Count:          1,
			Views:          700,
			Reach:          600,
			Likes:          40,
			Comments:       3,
			Saved:          5,
			Shares:         2,
			EngagementRate: 7.5,
			Top: []Entry{
				{Title: "Line one line two", Type: "Reel", Views: 700, Reach: 600, Likes: 40, Comments: 3, Saved: 5, Shares: 2, Rate: 7.5},
			},
		},
		Followers: &Followers{YouTube: 1500, Facebook: 5100, Instagram: 2500},
	})
}

func TestSummarizeDailyEmpty(t *testing.T) {
	tables := Tables{
		YouTube:  snapshot.Empty(youtube.Schema.Header()),
		Facebook: testTables().Facebook,
	}
	got := SummarizeDaily(tables, now.AddDate(0, 0, 3))
	if got.YouTube != nil || got.Instagram != nil || got.Followers != nil {
		t.Fatalf("empty tables must not be summarized: %+v", got)
	}
	// A table with rows but nothing on the day is summarized with zeros.
	testutil.AssertEqual(t, got.Facebook, &FacebookDaily{})

	prompt, err := DailyPrompt(got)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"New posts: 0", "No new posts", "No follower data"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt lacks %q:\n%s", want, prompt)
		}
	}
}

func TestSummarizeWeekly(t *testing.T) {
	got := SummarizeWeekly(testTables(), now)
	testutil.AssertEqual(t, got, Weekly{
		Start: "05/05",
		End:   "11/05/2024",
		YouTube: &YouTubeWeekly{
			Count:            5,
			Views:            10800,
			Likes:            90,
			ShortsShare:      40,
			ShortsViewsShare: 37,
			Top: []Entry{
				{Title: "Old story", Type: "Regular", Views: 5000},
				{Title: "Short clip", Type: "Shorts", Views: 3000},
				{Title: "Evening news", Type: "Regular", Views: 1000},
				{Title: "Tie clip", Type: "Shorts", Views: 1000},
				{Title: "Rising", Type: "Regular", Views: 800},
			},
		},
		Facebook: &FacebookWeekly{
			Count:      3,
			Reach:      1700,
			Likes:      30,
			Shares:     4,
			BestFormat: "Reel",
			Top: []Entry{
				{Title: "Storm photo", Type: "Photo", Reach: 800},
				{Title: "Storm reel", Type: "Reel", Reach: 500},
				{Title: "Monday reel", Type: "Reel", Reach: 400},
			},
		},
		Instagram: &InstagramWeekly{
			Count:      2,
			Views:      800,
			Likes:      44,
			Saved:      6,
			BestFormat: "Reel",
			Top: []Entry{
				{Title: "Line one line two", Type: "Reel", Views: 700},
				{Title: "Quiet day", Type: "Photo", Views: 100},
			},
		},
		Insights: []DayInsight{
			{Date: "07/05", Text: "• " + strings.Repeat("x", 298)},
			{Date: "09/05", Text: "• later insight"},
		},
	})
}

func TestPrompts(t *testing.T) {
	tables := testTables()

	daily, err := DailyPrompt(SummarizeDaily(tables, now))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"The data below covers 2024-05-11.",
		"Total new views: 5,000",
		"• Short clip | Shorts | 3,000 views | 30 likes (1%) | 1 comments",
		"• Rising | from 2024-05-09 | +500 new views",
		"• Storm photo | Photo | 800 reach | 0 views | likes: 20 | comments: 4 | shares: 3 | engagement: 3.4%",
		"Average engagement rate: 2.99%",
		"YouTube: 1,500 | Facebook: 5,100 | Instagram: 2,500",
		"🔥 3 cross-platform insights",
	} {
		if !strings.Contains(daily, want) {
			t.Errorf("daily prompt lacks %q:\n%s", want, daily)
		}
	}

	weekly, err := WeeklyPrompt(SummarizeWeekly(tables, now))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Period: 05/05 to 11/05/2024",
		"- 5 videos | 10,800 views | 90 likes",
		"- Shorts: 40% of videos, 37% of views",
		"  1. Old story | Regular | 5,000",
		"- Leading format: Reel",
		"  2. Quiet day | Photo | 100",
		"09/05:\n• later insight",
	} {
		if !strings.Contains(weekly, want) {
			t.Errorf("weekly prompt lacks %q:\n%s", want, weekly)
		}
	}

	empty, err := WeeklyPrompt(Weekly{Start: "05/05", End: "11/05/2024"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(empty, "No daily insights found for this week.") {
		t.Errorf("empty weekly prompt lacks fallback:\n%s", empty)
	}
	if strings.Contains(empty, "YouTube:\n") {
		t.Errorf("empty weekly prompt mentions YouTube stats:\n%s", empty)
	}
}
