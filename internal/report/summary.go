// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package report

import (
	"math"
	"slices"
	"strings"
	"time"

	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/social"
	"go.astrophena.name/socialstats/internal/social/youtube"
)

// Entry is one entity in a top list. Only fields meaningful for its platform
// are set.
type Entry struct {
	Title    string
	Type     string
	Date     string
	Views    float64
	Reach    float64
	Likes    float64
	Comments float64
	Shares   float64
	Saved    float64
	Delta    float64
	// Rate is the like rate of videos and the engagement rate of posts.
	Rate float64
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

// YouTubeDaily summarizes videos published on the report day.
type YouTubeDaily struct {
	Count    int
	Views    float64
	Likes    float64
	Comments float64
	LikeRate float64
	// Top lists the most viewed new videos.
	Top []Entry
	// Rising lists older videos that gained the most views since the
	// previous collection.
	Rising []Entry
}

// FacebookDaily summarizes posts of the report day.
type FacebookDaily struct {
	Count          int
	Reach          float64
	Views          float64
	Likes          float64
	Comments       float64
	Shares         float64
	Clicks         float64
	EngagementRate float64
	Top            []Entry
}

// InstagramDaily summarizes media of the report day.
type InstagramDaily struct {
	Count          int
	Views          float64
	Reach          float64
	Likes          float64
	Comments       float64
	Saved          float64
	Shares         float64
	EngagementRate float64
	Top            []Entry
}

// Followers holds the latest follower counts.
type Followers struct {
	YouTube   float64
	Facebook  float64
	Instagram float64
}

// Daily is the input of the daily report prompt. A platform is nil if its
// table has no rows at all.
type Daily struct {
	// Date is the day the report is generated, formatted as dd/mm/yyyy.
	Date      string
	Yesterday string
	YouTube   *YouTubeDaily
	Facebook  *FacebookDaily
	Instagram *InstagramDaily
	Followers *Followers
}

// Tables holds snapshots the reports are built from.
type Tables struct {
	YouTube   *snapshot.Table
	Facebook  *snapshot.Table
	Instagram *snapshot.Table
	Followers *snapshot.Table
	Insights  *snapshot.Table
}

// SummarizeDaily builds the daily summaries for the day before now.
func SummarizeDaily(t Tables, now time.Time) Daily {
	yesterday := now.AddDate(0, 0, -1).Format(social.DateLayout)
	d := Daily{
		Date:      now.Format("02/01/2006"),
		Yesterday: yesterday,
	}
	if t.YouTube.Len() > 0 {
		d.YouTube = youtubeDaily(t.YouTube, yesterday)
	}
	if t.Facebook.Len() > 0 {
		d.Facebook = facebookDaily(t.Facebook, yesterday)
	}
	if t.Instagram.Len() > 0 {
		d.Instagram = instagramDaily(t.Instagram, yesterday)
	}
	if n := t.Followers.Len(); n > 0 {
		latest := t.Followers.Rows[n-1]
		d.Followers = &Followers{
			YouTube:   latest["yt_subscribers"].Float(),
			Facebook:  latest["fb_followers"].Float(),
			Instagram: latest["ig_followers"].Float(),
		}
	}
	return d
}

func youtubeDaily(t *snapshot.Table, yesterday string) *YouTubeDaily {
	rows := On(t, youtube.Schema.Date, yesterday)
	s := &YouTubeDaily{
		Count:    len(rows),
		Views:    Sum(rows, "views"),
		Likes:    Sum(rows, "likes"),
		Comments: Sum(rows, "comments"),
		LikeRate: round(Mean(rows, "like_rate"), 2),
	}
	for _, r := range TopN(rows, "views", 5) {
		s.Top = append(s.Top, Entry{
			Title:    social.OneLine(r["title"].String(), 55),
			Type:     videoType(r),
			Views:    r["views"].Float(),
			Likes:    r["likes"].Float(),
			Comments: r["comments"].Float(),
			Rate:     round(r["like_rate"].Float(), 1),
		})
	}

	delta := snapshot.DeltaColumn("views")
	var older []snapshot.Row
	for _, r := range t.Rows {
		if r[youtube.Schema.Date].String() < yesterday && r[delta].Float() > 0 {
			older = append(older, r)
		}
	}
	for _, r := range TopN(older, delta, 3) {
		s.Rising = append(s.Rising, Entry{
			Title: social.OneLine(r["title"].String(), 50),
			Date:  r[youtube.Schema.Date].String(),
			Delta: r[delta].Float(),
		})
	}
	return s
}

func videoType(r snapshot.Row) string {
	if typ := r["video_type"].String(); typ != "" {
		return typ
	}
	return youtube.TypeRegular
}

func facebookDaily(t *snapshot.Table, yesterday string) *FacebookDaily {
	rows := On(t, "date", yesterday)
	s := &FacebookDaily{
		Count:          len(rows),
		Reach:          Sum(rows, "reach"),
		Views:          Sum(rows, "views"),
		Likes:          Sum(rows, "likes"),
		Comments:       Sum(rows, "comments"),
		Shares:         Sum(rows, "shares"),
		Clicks:         Sum(rows, "clicks"),
		EngagementRate: round(Mean(rows, "engagement_rate"), 2),
	}
	for _, r := range TopN(rows, "reach", 5) {
		s.Top = append(s.Top, Entry{
			Title:    social.OneLine(r["title"].String(), 45),
			Type:     r["type"].String(),
			Reach:    r["reach"].Float(),
			Views:    r["views"].Float(),
			Likes:    r["likes"].Float(),
			Comments: r["comments"].Float(),
			Shares:   r["shares"].Float(),
			Rate:     round(r["engagement_rate"].Float(), 1),
		})
	}
	return s
}

func instagramDaily(t *snapshot.Table, yesterday string) *InstagramDaily {
	rows := On(t, "date", yesterday)
	s := &InstagramDaily{
		Count:          len(rows),
		Views:          Sum(rows, "views"),
		Reach:          Sum(rows, "reach"),
		Likes:          Sum(rows, "likes"),
		Comments:       Sum(rows, "comments"),
		Saved:          Sum(rows, "saved"),
		Shares:         Sum(rows, "shares"),
		EngagementRate: round(Mean(rows, "engagement_rate"), 2),
	}
	for _, r := range TopN(rows, "views", 5) {
		s.Top = append(s.Top, Entry{
			Title:    social.OneLine(r["caption"].String(), 40),
			Type:     r["type"].String(),
			Views:    r["views"].Float(),
			Reach:    r["reach"].Float(),
			Likes:    r["likes"].Float(),
			Comments: r["comments"].Float(),
			Saved:    r["saved"].Float(),
			Shares:   r["shares"].Float(),
			Rate:     round(r["engagement_rate"].Float(), 1),
		})
	}
	return s
}

// YouTubeWeekly summarizes videos published during the week.
type YouTubeWeekly struct {
	Count int
	Views float64
	Likes float64
	// ShortsShare is the percentage of Shorts among videos, and
	// ShortsViewsShare is their percentage of views.
	ShortsShare      float64
	ShortsViewsShare float64
	Top              []Entry
}

// FacebookWeekly summarizes posts of the week.
type FacebookWeekly struct {
	Count      int
	Reach      float64
	Likes      float64
	Shares     float64
	BestFormat string
	Top        []Entry
}

// InstagramWeekly summarizes media of the week.
type InstagramWeekly struct {
	Count      int
	Views      float64
	Likes      float64
	Saved      float64
	BestFormat string
	Top        []Entry
}

// DayInsight is the insights section of one past daily report.
type DayInsight struct {
	// Date is formatted as dd/mm.
	Date string
	Text string
}

// Weekly is the input of the weekly report prompt. A platform is nil if it
// has no rows in the week.
type Weekly struct {
	// Start is the first day of the week as dd/mm, End is the last as
	// dd/mm/yyyy.
	Start     string
	End       string
	YouTube   *YouTubeWeekly
	Facebook  *FacebookWeekly
	Instagram *InstagramWeekly
	Insights  []DayInsight
}

// SummarizeWeekly builds the weekly summaries for the seven days before now.
func SummarizeWeekly(t Tables, now time.Time) Weekly {
	start := now.AddDate(0, 0, -7)
	cutoff := start.Format(social.DateLayout)
	w := Weekly{
		Start: start.Format("02/01"),
		End:   now.AddDate(0, 0, -1).Format("02/01/2006"),
	}

	if rows := Since(t.YouTube, youtube.Schema.Date, cutoff); len(rows) > 0 {
		s := &YouTubeWeekly{
			Count: len(rows),
			Views: Sum(rows, "views"),
			Likes: Sum(rows, "likes"),
		}
		var shorts []snapshot.Row
		for _, r := range rows {
			if r["video_type"].String() == youtube.TypeShorts {
				shorts = append(shorts, r)
			}
		}
		s.ShortsShare = social.Ratio(float64(len(shorts)), float64(len(rows)), 1)
		s.ShortsViewsShare = social.Ratio(Sum(shorts, "views"), s.Views, 1)
		for _, r := range TopN(rows, "views", 5) {
			s.Top = append(s.Top, Entry{
				Title: social.OneLine(r["title"].String(), 50),
				Type:  videoType(r),
				Views: r["views"].Float(),
			})
		}
		w.YouTube = s
	}

	if rows := Since(t.Facebook, "date", cutoff); len(rows) > 0 {
		s := &FacebookWeekly{
			Count:      len(rows),
			Reach:      Sum(rows, "reach"),
			Likes:      Sum(rows, "likes"),
			Shares:     Sum(rows, "shares"),
			BestFormat: BestFormat(rows, "type", "reach"),
		}
		for _, r := range TopN(rows, "reach", 5) {
			s.Top = append(s.Top, Entry{
				Title: social.OneLine(r["title"].String(), 50),
				Type:  r["type"].String(),
				Reach: r["reach"].Float(),
			})
		}
		w.Facebook = s
	}

	if rows := Since(t.Instagram, "date", cutoff); len(rows) > 0 {
		s := &InstagramWeekly{
			Count:      len(rows),
			Views:      Sum(rows, "views"),
			Likes:      Sum(rows, "likes"),
			Saved:      Sum(rows, "saved"),
			BestFormat: BestFormat(rows, "type", "views"),
		}
		for _, r := range TopN(rows, "views", 5) {
			s.Top = append(s.Top, Entry{
				Title: social.OneLine(r["caption"].String(), 50),
				Type:  r["type"].String(),
				Views: r["views"].Float(),
			})
		}
		w.Instagram = s
	}

	insights := Since(t.Insights, "date", cutoff)
	slices.SortStableFunc(insights, func(a, b snapshot.Row) int {
		return strings.Compare(a["date"].String(), b["date"].String())
	})
	for _, r := range insights {
		text := strings.TrimSpace(r["insights"].String())
		if text == "" {
			continue
		}
		date := r["date"].String()
		if d, err := time.Parse(social.DateLayout, date); err == nil {
			date = d.Format("02/01")
		}
		w.Insights = append(w.Insights, DayInsight{Date: date, Text: social.Cut(text, 300)})
	}
	return w
}
