// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package instagram collects metrics of recent Instagram media.
package instagram

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strconv"
	"time"

	"go.astrophena.name/socialstats/internal/api/facebook/graph"
	"go.astrophena.name/socialstats/internal/logger"
	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/social"
)

// Content types.
const (
	TypeReel     = "Reel"
	TypeCarousel = "Carousel"
	TypePhoto    = "Photo"
)

// ErrNoAccount is returned when the token has no Instagram business account
// connected.
var ErrNoAccount = errors.New("instagram: no business account connected to the page")

// Schema describes the Instagram media snapshot.
var Schema = snapshot.Schema{
	Key:  "media_id",
	Date: "date",
	Columns: []string{
		"media_id", "date", "time", "type", "caption",
		"likes", "comments", "views", "reach", "saved", "shares",
		"total_interactions", "avg_watch_sec", "engagement_rate",
		"permalink", "pulled_at",
	},
	Deltas: []string{"views", "reach"},
	Text:   []string{"media_id", "date", "time", "type", "caption", "permalink", "pulled_at"},
}

// Media is one observation of a post or reel.
type Media struct {
	ID        string
	Timestamp time.Time
	// MediaType is the type reported by the API, such as "IMAGE".
	MediaType string
	Caption   string

	Likes    int64
	Comments int64

	Views             float64
	Reach             float64
	Saved             float64
	Shares            float64
	TotalInteractions float64
	AvgWatchSec       float64

	Permalink string
	PulledAt  string
}

// Type returns the content type of m.
func (m Media) Type() string {
	switch m.MediaType {
	case "VIDEO", "REELS":
		return TypeReel
	case "CAROUSEL_ALBUM":
		return TypeCarousel
	}
	return TypePhoto
}

// EngagementRate returns likes, comments, saves and shares as a percentage
// of reach.
func (m Media) EngagementRate() float64 {
	return social.Ratio(float64(m.Likes+m.Comments)+m.Saved+m.Shares, m.Reach, 2)
}

// Row converts m into a snapshot row.
func (m Media) Row() snapshot.Row {
	date, clock := social.DateTime(m.Timestamp)
	return snapshot.Row{
		"media_id":           snapshot.Text(m.ID),
		"date":               snapshot.Text(date),
		"time":               snapshot.Text(clock),
		"type":               snapshot.Text(m.Type()),
		"caption":            snapshot.Text(m.Caption),
		"likes":              snapshot.Int(m.Likes),
		"comments":           snapshot.Int(m.Comments),
		"views":              snapshot.Num(m.Views),
		"reach":              snapshot.Num(m.Reach),
		"saved":              snapshot.Num(m.Saved),
		"shares":             snapshot.Num(m.Shares),
		"total_interactions": snapshot.Num(m.TotalInteractions),
		"avg_watch_sec":      snapshot.Round(m.AvgWatchSec, 2),
		"engagement_rate":    snapshot.Num(m.EngagementRate()),
		"permalink":          snapshot.Text(m.Permalink),
		"pulled_at":          snapshot.Text(m.PulledAt),
	}
}

// Rows converts media into snapshot rows.
func Rows(media []Media) []snapshot.Row {
	rows := make([]snapshot.Row, len(media))
	for i, m := range media {
		rows[i] = m.Row()
	}
	return rows
}

type account struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	InstagramBusinessAccount *struct {
		ID string `json:"id"`
	} `json:"instagram_business_account"`
}

// Discover returns the ID of the Instagram business account connected to
// the page the token belongs to.
func Discover(ctx context.Context, c *graph.Client) (string, error) {
	me, err := graph.Get[account](ctx, c, "me", url.Values{
		"fields": {graph.Fields("id", "name", "instagram_business_account")},
	})
	if err != nil {
		return "", err
	}
	if me.InstagramBusinessAccount != nil && me.InstagramBusinessAccount.ID != "" {
		return me.InstagramBusinessAccount.ID, nil
	}
	if me.ID == "" {
		return "", ErrNoAccount
	}
	page, err := graph.Get[account](ctx, c, me.ID, url.Values{
		"fields": {"instagram_business_account"},
	})
	if err != nil {
		return "", err
	}
	if page.InstagramBusinessAccount != nil && page.InstagramBusinessAccount.ID != "" {
		return page.InstagramBusinessAccount.ID, nil
	}
	logger.Warn(ctx, "token has no instagram account", "name", me.Name, "id", me.ID)
	return "", ErrNoAccount
}

// Fetcher collects media of an account.
type Fetcher struct {
	Client *graph.Client
	// AccountID is the Instagram business account. If empty, it is
	// discovered from the token.
	AccountID string
	// Pacer spaces out per-media calls. If nil, calls aren't paced.
	Pacer *social.Pacer
	// Location is used for collection timestamps. If nil, UTC is used.
	Location *time.Location
	// Now acts as time.Now, but can be mocked for testing.
	Now func() time.Time
}

const mediaLimit = 50

type listedMedia struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaType     string `json:"media_type"`
	Permalink     string `json:"permalink"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int64  `json:"like_count"`
	CommentsCount int64  `json:"comments_count"`
}

// Fetch returns media published during the last days. Listing is newest
// first and stops at the first older item. If listing fails midway, media
// collected so far are returned along with the error.
func (f *Fetcher) Fetch(ctx context.Context, days int) ([]Media, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	start := now()
	since := social.Since(start, days)
	pulledAt := social.Stamp(start, f.Location)

	accountID := f.AccountID
	if accountID == "" {
		id, err := Discover(ctx, f.Client)
		if err != nil {
			return nil, &social.FetchError{Kind: social.KindFatal, Op: "account", Err: err}
		}
		accountID = id
	}

	params := url.Values{
		"fields": {graph.Fields("id", "caption", "media_type", "media_url", "permalink", "thumbnail_url", "timestamp", "like_count", "comments_count")},
		"limit":  {strconv.Itoa(mediaLimit)},
	}

	var (
		media []Media
		fatal error
	)
	_, err := graph.List(ctx, f.Client, accountID+"/media", params, func(lm listedMedia) bool {
		m := Media{
			ID:        lm.ID,
			MediaType: lm.MediaType,
			Caption:   social.OneLine(lm.Caption, 500),
			Likes:     lm.LikeCount,
			Comments:  lm.CommentsCount,
			Permalink: lm.Permalink,
			PulledAt:  pulledAt,
		}
		if lm.Timestamp != "" {
			ts, err := social.ParseTime(lm.Timestamp)
			if err == nil && ts.Before(since) {
				return false
			}
			m.Timestamp = ts
		}
		if m.MediaType == "" {
			m.MediaType = "IMAGE"
		}

		if err := f.Pacer.Wait(ctx); err != nil {
			fatal = err
			return false
		}
		if err := f.insights(ctx, &m); err != nil {
			fatal = err
			return false
		}
		media = append(media, m)
		return true
	})
	logger.Debug(ctx, "listed instagram media", "account", accountID, "media", len(media))
	if fatal != nil {
		return media, fatal
	}
	if err != nil {
		return media, &social.FetchError{Kind: social.KindFatal, Op: "media", Err: err}
	}
	return media, nil
}

var (
	mediaMetrics = []string{"views", "reach", "saved", "shares", "total_interactions"}
	reelMetrics  = []string{"ig_reels_avg_watch_time"}
)

// insights fills in lifetime insights of m. An API error leaves them at
// zero.
func (f *Fetcher) insights(ctx context.Context, m *Media) error {
	metrics := mediaMetrics
	if m.Type() == TypeReel {
		metrics = slices.Concat(mediaMetrics, reelMetrics)
	}
	page, err := graph.Get[graph.Page[graph.Insight]](ctx, f.Client, m.ID+"/insights", url.Values{
		"metric": {graph.Fields(metrics...)},
	})
	if err != nil {
		return social.Degrade(ctx, "insights", m.ID, err)
	}
	ins := graph.Insights(page.Data)
	m.Views = ins["views"]
	m.Reach = ins["reach"]
	m.Saved = ins["saved"]
	m.Shares = ins["shares"]
	m.TotalInteractions = ins["total_interactions"]
	m.AvgWatchSec = ins["ig_reels_avg_watch_time"] / 1000
	return nil
}
