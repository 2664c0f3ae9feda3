// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package followers tracks daily follower counts across platforms in a wide
// table with one row per day.
package followers

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.astrophena.name/socialstats/internal/api/facebook/graph"
	ytapi "go.astrophena.name/socialstats/internal/api/google/youtube"
	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/social"
	"go.astrophena.name/socialstats/internal/social/instagram"
)

// ErrNoData is returned when no platform could be read.
var ErrNoData = errors.New("followers: no data collected from any platform")

// Header lists the columns of the followers table.
var Header = []string{
	"date",
	"pulled_at",
	"yt_subscribers",
	"yt_subscribers_change",
	"yt_total_views",
	"yt_views_change",
	"yt_video_count",
	"fb_followers",
	"fb_followers_change",
	"fb_fan_count",
	"fb_fan_adds",
	"fb_fan_removes",
	"fb_daily_reach",
	"fb_daily_engagements",
	"fb_daily_video_views",
	"ig_followers",
	"ig_followers_change",
	"ig_daily_reach",
	"ig_daily_impressions",
	"tt_followers",
	"tt_followers_change",
	"tt_daily_views",
}

// Schema describes the followers table.
var Schema = snapshot.Schema{
	Key:     "date",
	Date:    "date",
	Columns: Header,
	Text:    []string{"date", "pulled_at"},
	Changes: []snapshot.Change{
		{Column: "yt_subscribers_change", Metric: "yt_subscribers"},
		{Column: "yt_views_change", Metric: "yt_total_views"},
		{Column: "fb_followers_change", Metric: "fb_followers", Fallback: "fb_fan_count"},
		{Column: "ig_followers_change", Metric: "ig_followers"},
		{Column: "tt_followers_change", Metric: "tt_followers"},
	},
}

// YouTube holds channel statistics.
type YouTube struct {
	Subscribers int64
	TotalViews  int64
	VideoCount  int64
}

// Facebook holds page statistics.
type Facebook struct {
	Followers int64
	FanCount  int64
	// Daily is nil if daily page insights couldn't be read.
	Daily *FacebookDaily
}

// FacebookDaily holds page insights of the previous day.
type FacebookDaily struct {
	FanAdds     float64
	FanRemoves  float64
	Reach       float64
	Engagements float64
	VideoViews  float64
}

// Instagram holds account statistics.
type Instagram struct {
	Followers  int64
	MediaCount int64
	// Daily is nil if daily account insights couldn't be read.
	Daily *InstagramDaily
}

// InstagramDaily holds account insights of the previous day.
type InstagramDaily struct {
	Reach       float64
	Impressions float64
}

// Observation is one reading of all platforms. Platforms that couldn't be
// read are nil.
type Observation struct {
	PulledAt  string
	YouTube   *YouTube
	Facebook  *Facebook
	Instagram *Instagram
}

// Empty reports whether no platform was read.
func (o Observation) Empty() bool {
	return o.YouTube == nil && o.Facebook == nil && o.Instagram == nil
}

// Row converts o into a row without the date and change columns, which are
// filled in by snapshot.UpsertDaily. Columns of platforms that weren't read
// are empty.
func (o Observation) Row() snapshot.Row {
	r := snapshot.Row{"pulled_at": snapshot.Text(o.PulledAt)}
	if yt := o.YouTube; yt != nil {
		r["yt_subscribers"] = snapshot.Int(yt.Subscribers)
		r["yt_total_views"] = snapshot.Int(yt.TotalViews)
		r["yt_video_count"] = snapshot.Int(yt.VideoCount)
	}
	if fb := o.Facebook; fb != nil {
		r["fb_followers"] = snapshot.Int(fb.Followers)
		r["fb_fan_count"] = snapshot.Int(fb.FanCount)
		if d := fb.Daily; d != nil {
			r["fb_fan_adds"] = snapshot.Num(d.FanAdds)
			r["fb_fan_removes"] = snapshot.Num(d.FanRemoves)
			r["fb_daily_reach"] = snapshot.Num(d.Reach)
			r["fb_daily_engagements"] = snapshot.Num(d.Engagements)
			r["fb_daily_video_views"] = snapshot.Num(d.VideoViews)
		}
	}
	if ig := o.Instagram; ig != nil {
		r["ig_followers"] = snapshot.Int(ig.Followers)
		if d := ig.Daily; d != nil {
			r["ig_daily_reach"] = snapshot.Num(d.Reach)
			r["ig_daily_impressions"] = snapshot.Num(d.Impressions)
		}
	}
	return r
}

// Fetcher reads follower counts. Platforms without a client are skipped.
type Fetcher struct {
	YouTube   *ytapi.Client
	ChannelID string

	// Graph serves both Facebook and Instagram.
	Graph  *graph.Client
	PageID string
	// InstagramID is the Instagram business account. If empty, it is
	// discovered from the token.
	InstagramID string

	// Location is used for collection timestamps. If nil, UTC is used.
	Location *time.Location
	// Now acts as time.Now, but can be mocked for testing.
	Now func() time.Time
}

// Fetch reads every configured platform. A platform that fails is logged
// and left out. The only errors returned are fatal ones and ErrNoData.
func (f *Fetcher) Fetch(ctx context.Context) (Observation, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	o := Observation{PulledAt: social.Stamp(now(), f.Location)}

	if f.YouTube != nil && f.ChannelID != "" {
		yt, err := f.youtube(ctx)
		if err := social.Degrade(ctx, "youtube", f.ChannelID, err); err != nil {
			return o, err
		}
		o.YouTube = yt
	}
	if f.Graph != nil && f.PageID != "" {
		fb, err := f.facebook(ctx)
		if err := social.Degrade(ctx, "facebook", f.PageID, err); err != nil {
			return o, err
		}
		o.Facebook = fb
	}
	if f.Graph != nil {
		ig, err := f.instagram(ctx)
		if err := social.Degrade(ctx, "instagram", f.InstagramID, err); err != nil {
			return o, err
		}
		o.Instagram = ig
	}

	if o.Empty() {
		return o, ErrNoData
	}
	return o, nil
}

func (f *Fetcher) youtube(ctx context.Context) (*YouTube, error) {
	ch, err := f.YouTube.Channel(ctx, f.ChannelID)
	if err != nil {
		return nil, err
	}
	return &YouTube{
		Subscribers: ch.Subscribers,
		TotalViews:  ch.Views,
		VideoCount:  ch.Videos,
	}, nil
}

func (f *Fetcher) facebook(ctx context.Context) (*Facebook, error) {
	page, err := graph.Get[struct {
		Name           string `json:"name"`
		FanCount       int64  `json:"fan_count"`
		FollowersCount int64  `json:"followers_count"`
	}](ctx, f.Graph, f.PageID, url.Values{
		"fields": {graph.Fields("name", "fan_count", "followers_count")},
	})
	if err != nil {
		return nil, err
	}
	fb := &Facebook{Followers: page.FollowersCount, FanCount: page.FanCount}

	if fb.Followers == 0 {
		follows, err := f.pageInsights(ctx, url.Values{
			"metric": {"page_follows"},
			"period": {"day"},
		})
		if err := social.Degrade(ctx, "page follows", f.PageID, err); err != nil {
			return nil, err
		}
		fb.Followers = int64(follows["page_follows"])
	}

	daily, err := f.pageInsights(ctx, url.Values{
		"metric":      {graph.Fields("page_fan_adds", "page_fan_removes", "page_impressions_unique", "page_post_engagements", "page_video_views")},
		"period":      {"day"},
		"date_preset": {"yesterday"},
	})
	if err != nil {
		if err := social.Degrade(ctx, "page insights", f.PageID, err); err != nil {
			return nil, err
		}
		return fb, nil
	}
	fb.Daily = &FacebookDaily{
		FanAdds:     daily["page_fan_adds"],
		FanRemoves:  daily["page_fan_removes"],
		Reach:       daily["page_impressions_unique"],
		Engagements: daily["page_post_engagements"],
		VideoViews:  daily["page_video_views"],
	}
	return fb, nil
}

func (f *Fetcher) pageInsights(ctx context.Context, params url.Values) (map[string]float64, error) {
	page, err := graph.Get[graph.Page[graph.Insight]](ctx, f.Graph, f.PageID+"/insights", params)
	if err != nil {
		return nil, err
	}
	return graph.Insights(page.Data), nil
}

func (f *Fetcher) instagram(ctx context.Context) (*Instagram, error) {
	id := f.InstagramID
	if id == "" {
		var err error
		id, err = instagram.Discover(ctx, f.Graph)
		if err != nil {
			return nil, err
		}
	}

	acct, err := graph.Get[struct {
		FollowersCount int64 `json:"followers_count"`
		MediaCount     int64 `json:"media_count"`
	}](ctx, f.Graph, id, url.Values{
		"fields": {graph.Fields("followers_count", "media_count")},
	})
	if err != nil {
		return nil, err
	}
	ig := &Instagram{Followers: acct.FollowersCount, MediaCount: acct.MediaCount}

	page, err := graph.Get[graph.Page[graph.Insight]](ctx, f.Graph, id+"/insights", url.Values{
		"metric":      {graph.Fields("reach", "impressions")},
		"period":      {"day"},
		"metric_type": {"total_value"},
	})
	if err != nil {
		if err := social.Degrade(ctx, "instagram insights", id, err); err != nil {
			return nil, err
		}
		return ig, nil
	}
	daily := graph.Insights(page.Data)
	ig.Daily = &InstagramDaily{Reach: daily["reach"], Impressions: daily["impressions"]}
	return ig, nil
}

// Upsert prepares today's row of the followers table from o. It returns the
// row and the index of today's existing row, or -1 if the row should be
// appended.
func Upsert(existing *snapshot.Table, o Observation, today string) (snapshot.Row, int) {
	return snapshot.UpsertDaily(Schema, existing, o.Row(), today)
}
