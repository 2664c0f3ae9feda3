// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package facebook collects metrics of recent Facebook page posts.
package facebook

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.astrophena.name/socialstats/internal/api/facebook/graph"
	"go.astrophena.name/socialstats/internal/logger"
	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/social"
)

// Post types.
const (
	TypeReel  = "Reel"
	TypeVideo = "Video"
	TypePhoto = "Photo"
	TypeLink  = "Link"
)

// Schema describes the Facebook posts snapshot.
var Schema = snapshot.Schema{
	Key:  "post_id",
	Date: "date",
	Columns: []string{
		"post_id", "date", "time", "type", "title",
		"reach", "impressions", "views", "avg_watch_sec", "total_watch_min",
		"likes", "comments", "shares", "total_engagement", "engagement_rate",
		"permalink", "pulled_at",
	},
	Deltas: []string{"views"},
	Text:   []string{"post_id", "date", "time", "type", "title", "permalink", "pulled_at"},
}

// Post is one observation of a page post.
type Post struct {
	ID      string
	Created time.Time
	Type    string
	// Title is the post message on a single line.
	Title string

	Reach       float64
	Impressions float64
	Views       float64
	// AvgWatchSec is the average watch time of a video, in seconds.
	AvgWatchSec float64
	// TotalWatchMin is the total watch time of a video, in minutes.
	TotalWatchMin float64

	Likes    int64
	Comments int64
	Shares   int64

	Permalink string
	PulledAt  string
}

// TotalEngagement returns the sum of likes, comments and shares.
func (p Post) TotalEngagement() int64 { return p.Likes + p.Comments + p.Shares }

// EngagementRate returns the total engagement as a percentage of reach.
func (p Post) EngagementRate() float64 {
	return social.Ratio(float64(p.TotalEngagement()), p.Reach, 2)
}

// Row converts p into a snapshot row.
func (p Post) Row() snapshot.Row {
	date, clock := social.DateTime(p.Created)
	return snapshot.Row{
		"post_id":          snapshot.Text(p.ID),
		"date":             snapshot.Text(date),
		"time":             snapshot.Text(clock),
		"type":             snapshot.Text(p.Type),
		"title":            snapshot.Text(p.Title),
		"reach":            snapshot.Num(p.Reach),
		"impressions":      snapshot.Num(p.Impressions),
		"views":            snapshot.Num(p.Views),
		"avg_watch_sec":    snapshot.Round(p.AvgWatchSec, 1),
		"total_watch_min":  snapshot.Round(p.TotalWatchMin, 1),
		"likes":            snapshot.Int(p.Likes),
		"comments":         snapshot.Int(p.Comments),
		"shares":           snapshot.Int(p.Shares),
		"total_engagement": snapshot.Int(p.TotalEngagement()),
		"engagement_rate":  snapshot.Num(p.EngagementRate()),
		"permalink":        snapshot.Text(p.Permalink),
		"pulled_at":        snapshot.Text(p.PulledAt),
	}
}

// Rows converts posts into snapshot rows.
func Rows(posts []Post) []snapshot.Row {
	rows := make([]snapshot.Row, len(posts))
	for i, p := range posts {
		rows[i] = p.Row()
	}
	return rows
}

// Fetcher collects posts of a page.
type Fetcher struct {
	Client *graph.Client
	PageID string
	// Pacer spaces out per-post calls. If nil, calls aren't paced.
	Pacer *social.Pacer
	// Location is used for collection timestamps. If nil, UTC is used.
	Location *time.Location
	// Now acts as time.Now, but can be mocked for testing.
	Now func() time.Time
}

const feedLimit = 25

type feedPost struct {
	ID           string `json:"id"`
	CreatedTime  string `json:"created_time"`
	Message      string `json:"message"`
	PermalinkURL string `json:"permalink_url"`
	Attachments  struct {
		Data []attachment `json:"data"`
	} `json:"attachments"`
}

type attachment struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Target struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"target"`
}

// Fetch returns posts published during the last days. If listing fails
// midway, posts collected so far are returned along with the error.
func (f *Fetcher) Fetch(ctx context.Context, days int) ([]Post, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	start := now()
	pulledAt := social.Stamp(start, f.Location)

	params := url.Values{
		"fields": {graph.Fields("id", "created_time", "message", "permalink_url", "attachments")},
		"limit":  {strconv.Itoa(feedLimit)},
		"since":  {strconv.FormatInt(social.Since(start, days).Unix(), 10)},
	}

	var (
		posts []Post
		fatal error
	)
	pages, err := graph.List(ctx, f.Client, f.PageID+"/feed", params, func(fp feedPost) bool {
		if err := f.Pacer.Wait(ctx); err != nil {
			fatal = err
			return false
		}
		p, err := f.post(ctx, fp)
		if err != nil {
			fatal = err
			return false
		}
		p.PulledAt = pulledAt
		posts = append(posts, p)
		return true
	})
	logger.Debug(ctx, "listed facebook feed", "pages", pages, "posts", len(posts))
	if fatal != nil {
		return posts, fatal
	}
	if err != nil {
		return posts, &social.FetchError{Kind: social.KindFatal, Op: "feed", Err: err}
	}
	return posts, nil
}

func (f *Fetcher) post(ctx context.Context, fp feedPost) (Post, error) {
	p := Post{
		ID:        fp.ID,
		Type:      detectType(fp),
		Title:     social.OneLine(fp.Message, 200),
		Permalink: fp.PermalinkURL,
	}
	if t, err := social.ParseTime(fp.CreatedTime); err == nil {
		p.Created = t
	}

	ins, err := f.insights(ctx, p.ID)
	if err := social.Degrade(ctx, "insights", p.ID, err); err != nil {
		return p, err
	}
	p.Reach = ins["post_impressions_unique"]
	p.Impressions = ins["post_impressions"]
	p.Views = ins["blue_reels_play_count"]
	p.AvgWatchSec = ins["post_video_avg_time_watched"] / 1000
	p.TotalWatchMin = ins["post_video_view_time"] / 1000 / 60

	pm, err := graph.Get[publicMetrics](ctx, f.Client, p.ID, url.Values{
		"fields": {graph.Fields("shares", "comments.summary(true).limit(0)", "reactions.summary(true).limit(0)")},
	})
	if err := social.Degrade(ctx, "public metrics", p.ID, err); err != nil {
		return p, err
	}
	p.Likes = pm.Reactions.Summary.TotalCount
	p.Comments = pm.Comments.Summary.TotalCount
	p.Shares = pm.Shares.Count

	if p.Views == 0 && (p.Type == TypeVideo || p.Type == TypeReel) {
		if vid := videoID(fp); vid != "" {
			v, err := graph.Get[videoViews](ctx, f.Client, vid, url.Values{"fields": {"views"}})
			if err := social.Degrade(ctx, "video views", p.ID, err); err != nil {
				return p, err
			}
			p.Views = v.Views
		}
	}

	// Fallback order: impressions, then reach, then views.
	if p.Impressions == 0 {
		p.Impressions = p.Reach
	}
	if p.Impressions == 0 {
		p.Impressions = p.Views
	}
	return p, nil
}

var (
	baseMetrics  = []string{"post_impressions", "post_impressions_unique", "post_engaged_users"}
	videoMetrics = []string{"blue_reels_play_count", "post_video_avg_time_watched", "post_video_view_time"}
)

// insights returns lifetime insights of a post. Pages without video
// insights reject the video metrics, so on an API error the request is
// repeated with base metrics only.
func (f *Fetcher) insights(ctx context.Context, postID string) (map[string]float64, error) {
	get := func(metrics []string) (map[string]float64, error) {
		page, err := graph.Get[graph.Page[graph.Insight]](ctx, f.Client, postID+"/insights", url.Values{
			"metric": {graph.Fields(metrics...)},
			"period": {"lifetime"},
		})
		if err != nil {
			return nil, err
		}
		return graph.Insights(page.Data), nil
	}
	ins, err := get(slices.Concat(baseMetrics, videoMetrics))
	var gerr *graph.Error
	if errors.As(err, &gerr) {
		logger.Debug(ctx, "video insights unavailable, retrying with base metrics", "post", postID, "error", err)
		return get(baseMetrics)
	}
	return ins, err
}

type publicMetrics struct {
	Shares struct {
		Count int64 `json:"count"`
	} `json:"shares"`
	Comments  summary `json:"comments"`
	Reactions summary `json:"reactions"`
}

type summary struct {
	Summary struct {
		TotalCount int64 `json:"total_count"`
	} `json:"summary"`
}

type videoViews struct {
	Views float64 `json:"views"`
}

// detectType guesses the type of a post from its permalink and first
// attachment.
func detectType(fp feedPost) string {
	switch {
	case strings.Contains(fp.PermalinkURL, "/reel/"):
		return TypeReel
	case strings.Contains(fp.PermalinkURL, "/videos/"):
		return TypeVideo
	}
	if len(fp.Attachments.Data) == 0 {
		return TypeLink
	}
	att := fp.Attachments.Data[0]
	if strings.Contains(att.URL, "reel") || strings.Contains(att.Target.URL, "reel") {
		return TypeReel
	}
	switch att.Type {
	case "video_inline", "video_direct", "video_autoplay", "video":
		return TypeVideo
	case "photo", "cover_photo", "album":
		return TypePhoto
	}
	return TypeLink
}

func videoID(fp feedPost) string {
	if len(fp.Attachments.Data) == 0 {
		return ""
	}
	return fp.Attachments.Data[0].Target.ID
}
