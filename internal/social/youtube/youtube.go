// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package youtube collects metrics of recent YouTube uploads.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ytapi "go.astrophena.name/socialstats/internal/api/google/youtube"
	"go.astrophena.name/socialstats/internal/logger"
	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/social"

	"github.com/sosodev/duration"
	"google.golang.org/api/youtube/v3"
)

// Video types.
const (
	TypeShorts  = "Shorts"
	TypeRegular = "Regular"
)

// Sources of the list of recent uploads.
const (
	// SourceAPI lists the uploads playlist with the Data API.
	SourceAPI = "api"
	// SourceFeed reads the channel feed, which only has the latest uploads
	// but costs no API quota.
	SourceFeed = "feed"
)

// shortsMax is the longest duration of a Short.
const shortsMax = 60 * time.Second

// Schema describes the YouTube videos snapshot.
var Schema = snapshot.Schema{
	Key:  "video_id",
	Date: "published_at",
	Columns: []string{
		"video_id", "published_at", "published_time", "title", "description",
		"thumbnail_url", "tags", "video_type", "views", "likes", "comments",
		"duration_seconds", "duration_formatted", "like_rate", "comment_rate",
		"video_url", "last_updated",
	},
	Deltas: []string{"views"},
	Text: []string{
		"video_id", "published_at", "published_time", "title", "description",
		"thumbnail_url", "tags", "video_type", "duration_formatted", "video_url",
		"last_updated",
	},
}

// Video is one observation of an upload.
type Video struct {
	ID          string
	PublishedAt time.Time
	Title       string
	Description string
	Thumbnail   string
	Tags        []string
	Views       int64
	Likes       int64
	Comments    int64
	Duration    time.Duration
	LastUpdated string
}

// Type returns TypeShorts for videos up to a minute long and TypeRegular
// otherwise.
func (v Video) Type() string {
	if v.Duration > 0 && v.Duration <= shortsMax {
		return TypeShorts
	}
	return TypeRegular
}

// LikeRate returns likes as a percentage of views.
func (v Video) LikeRate() float64 {
	return social.Ratio(float64(v.Likes), float64(v.Views), 2)
}

// CommentRate returns comments as a percentage of views.
func (v Video) CommentRate() float64 {
	return social.Ratio(float64(v.Comments), float64(v.Views), 4)
}

// URL returns the watch page of v.
func (v Video) URL() string { return "https://www.youtube.com/watch?v=" + v.ID }

// Row converts v into a snapshot row.
func (v Video) Row() snapshot.Row {
	date, clock := social.DateTime(v.PublishedAt)
	seconds := int64(v.Duration / time.Second)
	return snapshot.Row{
		"video_id":           snapshot.Text(v.ID),
		"published_at":       snapshot.Text(date),
		"published_time":     snapshot.Text(clock),
		"title":              snapshot.Text(v.Title),
		"description":        snapshot.Text(v.Description),
		"thumbnail_url":      snapshot.Text(v.Thumbnail),
		"tags":               snapshot.Text(strings.Join(v.Tags, ",")),
		"video_type":         snapshot.Text(v.Type()),
		"views":              snapshot.Int(v.Views),
		"likes":              snapshot.Int(v.Likes),
		"comments":           snapshot.Int(v.Comments),
		"duration_seconds":   snapshot.Int(seconds),
		"duration_formatted": snapshot.Text(FormatDuration(seconds)),
		"like_rate":          snapshot.Num(v.LikeRate()),
		"comment_rate":       snapshot.Num(v.CommentRate()),
		"video_url":          snapshot.Text(v.URL()),
		"last_updated":       snapshot.Text(v.LastUpdated),
	}
}

// Rows converts videos into snapshot rows.
func Rows(videos []Video) []snapshot.Row {
	rows := make([]snapshot.Row, len(videos))
	for i, v := range videos {
		rows[i] = v.Row()
	}
	return rows
}

// FormatDuration formats seconds like "1h 2m 3s", omitting leading zero
// units.
func FormatDuration(seconds int64) string {
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// ParseDuration parses an ISO 8601 duration such as "PT1M5S". Durations
// that don't parse are 0.
func ParseDuration(s string) time.Duration {
	d, err := duration.Parse(s)
	if err != nil {
		return 0
	}
	return d.ToTimeDuration()
}

// FromAPI converts a video resource of the Data API.
func FromAPI(item *youtube.Video) Video {
	v := Video{ID: item.Id}
	if sn := item.Snippet; sn != nil {
		v.Title = sn.Title
		v.Description = sn.Description
		v.Tags = sn.Tags
		v.Thumbnail = thumbnail(sn.Thumbnails)
		if t, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
			v.PublishedAt = t
		}
	}
	if cd := item.ContentDetails; cd != nil {
		v.Duration = ParseDuration(cd.Duration)
	}
	if st := item.Statistics; st != nil {
		v.Views = int64(st.ViewCount)
		v.Likes = int64(st.LikeCount)
		v.Comments = int64(st.CommentCount)
	}
	return v
}

// thumbnail picks the largest of the common thumbnail sizes.
func thumbnail(td *youtube.ThumbnailDetails) string {
	if td == nil {
		return ""
	}
	for _, t := range []*youtube.Thumbnail{td.Maxres, td.High, td.Medium, td.Default} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}

// Fetcher collects recent uploads of a channel.
type Fetcher struct {
	Client    *ytapi.Client
	ChannelID string
	// Source is SourceAPI or SourceFeed. Empty means SourceAPI.
	Source string
	// Location is used for collection timestamps. If nil, UTC is used.
	Location *time.Location
	// Now acts as time.Now, but can be mocked for testing.
	Now func() time.Time
}

// Fetch returns videos published during the last days. If listing fails
// midway, videos collected so far are returned along with the error.
func (f *Fetcher) Fetch(ctx context.Context, days int) ([]Video, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	start := now()
	since := social.Since(start, days)

	ids, listErr := f.list(ctx, since)
	logger.Debug(ctx, "listed youtube uploads", "source", f.source(), "videos", len(ids))

	items, err := f.Client.Videos(ctx, ids)
	videos := make([]Video, 0, len(items))
	lastUpdated := social.Stamp(start, f.Location)
	for _, item := range items {
		v := FromAPI(item)
		v.LastUpdated = lastUpdated
		videos = append(videos, v)
	}
	if err = errors.Join(listErr, err); err != nil {
		return videos, &social.FetchError{Kind: social.KindFatal, Op: "videos", Err: err}
	}
	return videos, nil
}

func (f *Fetcher) source() string {
	if f.Source == "" {
		return SourceAPI
	}
	return f.Source
}

func (f *Fetcher) list(ctx context.Context, since time.Time) ([]string, error) {
	switch f.source() {
	case SourceAPI:
		ch, err := f.Client.Channel(ctx, f.ChannelID)
		if err != nil {
			return nil, err
		}
		if ch.Uploads == "" {
			return nil, fmt.Errorf("youtube: channel %s has no uploads playlist", f.ChannelID)
		}
		return f.Client.PlaylistVideos(ctx, ch.Uploads, since)
	case SourceFeed:
		return f.Client.FeedVideos(ctx, f.ChannelID, since)
	}
	return nil, fmt.Errorf("youtube: unknown source %q", f.Source)
}
