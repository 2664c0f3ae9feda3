// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package youtube reads public channel data from the YouTube Data API v3 and
// the channel's Atom feed.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.astrophena.name/socialstats/internal/request"
	"go.astrophena.name/socialstats/internal/version"

	"github.com/mmcdole/gofeed"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	defaultFeedURL = "https://www.youtube.com/feeds/videos.xml"
	// maxBatch is the most ids or results a single API call accepts.
	maxBatch = 50
)

// ErrNoChannel is returned when the channel doesn't exist.
var ErrNoChannel = errors.New("youtube: channel not found")

// Config configures a Client.
type Config struct {
	// APIKey is the Data API key.
	APIKey string
	// HTTPClient is used for requests. If nil, request.DefaultClient is used.
	HTTPClient *http.Client
	// Endpoint overrides the Data API endpoint, for tests.
	Endpoint string
	// FeedURL overrides the channel feed URL, for tests.
	FeedURL string
}

// Client reads channel data.
type Client struct {
	svc     *youtube.Service
	httpc   *http.Client
	feedURL string
}

// New returns a new Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	base := cfg.HTTPClient
	if base == nil {
		base = request.DefaultClient
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	apiClient := &http.Client{
		Timeout:   base.Timeout,
		Transport: &transport.APIKey{Key: cfg.APIKey, Transport: rt},
	}
	opts := []option.ClientOption{
		option.WithHTTPClient(apiClient),
		option.WithUserAgent(version.UserAgent()),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	feedURL := cfg.FeedURL
	if feedURL == "" {
		feedURL = defaultFeedURL
	}
	return &Client{svc: svc, httpc: base, feedURL: feedURL}, nil
}

// ChannelStats holds public statistics of a channel.
type ChannelStats struct {
	Subscribers int64
	Views       int64
	Videos      int64
	// Uploads is the ID of the playlist with all uploads of the channel.
	Uploads string
}

// Channel returns statistics of the channel.
func (c *Client) Channel(ctx context.Context, channelID string) (*ChannelStats, error) {
	resp, err := c.svc.Channels.List([]string{"statistics", "contentDetails"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube: listing channel: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, ErrNoChannel
	}
	ch := resp.Items[0]
	cs := new(ChannelStats)
	if ch.Statistics != nil {
		cs.Subscribers = int64(ch.Statistics.SubscriberCount)
		cs.Views = int64(ch.Statistics.ViewCount)
		cs.Videos = int64(ch.Statistics.VideoCount)
	}
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		cs.Uploads = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	return cs, nil
}

// PlaylistVideos returns IDs of videos in the playlist published at or after
// since. Upload playlists are ordered newest first, so listing stops at the
// first older video. If a page fails, IDs collected so far are returned with
// the error.
func (c *Client) PlaylistVideos(ctx context.Context, playlistID string, since time.Time) ([]string, error) {
	var (
		ids   []string
		token string
	)
	for {
		call := c.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(maxBatch).
			Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return ids, fmt.Errorf("youtube: listing playlist: %w", err)
		}
		for _, item := range resp.Items {
			id, published := playlistItem(item)
			if id == "" {
				continue
			}
			if !published.IsZero() && published.Before(since) {
				return ids, nil
			}
			ids = append(ids, id)
		}
		if resp.NextPageToken == "" {
			return ids, nil
		}
		token = resp.NextPageToken
	}
}

func playlistItem(item *youtube.PlaylistItem) (id string, published time.Time) {
	var ts string
	if item.ContentDetails != nil {
		id = item.ContentDetails.VideoId
		ts = item.ContentDetails.VideoPublishedAt
	}
	if item.Snippet != nil {
		if id == "" && item.Snippet.ResourceId != nil {
			id = item.Snippet.ResourceId.VideoId
		}
		if ts == "" {
			ts = item.Snippet.PublishedAt
		}
	}
	published, _ = time.Parse(time.RFC3339, ts)
	return id, published
}

// Videos returns details of the videos, in batches the API accepts. Unknown
// IDs are skipped.
func (c *Client) Videos(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	var videos []*youtube.Video
	for start := 0; start < len(ids); start += maxBatch {
		end := min(start+maxBatch, len(ids))
		resp, err := c.svc.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(ids[start:end]...).
			Context(ctx).
			Do()
		if err != nil {
			return videos, fmt.Errorf("youtube: listing videos: %w", err)
		}
		videos = append(videos, resp.Items...)
	}
	return videos, nil
}

// FeedVideos returns IDs of videos in the channel's Atom feed published at
// or after since. The feed only carries the latest uploads.
func (c *Client) FeedVideos(ctx context.Context, channelID string, since time.Time) ([]string, error) {
	u := c.feedURL + "?" + url.Values{"channel_id": {channelID}}.Encode()
	fp := gofeed.NewParser()
	fp.Client = c.httpc
	fp.UserAgent = version.UserAgent()
	feed, err := fp.ParseURLWithContext(u, ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube: fetching feed: %w", err)
	}
	var ids []string
	for _, item := range feed.Items {
		if item.PublishedParsed != nil && item.PublishedParsed.Before(since) {
			continue
		}
		if id := feedVideoID(item); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func feedVideoID(item *gofeed.Item) string {
	if yt, ok := item.Extensions["yt"]; ok {
		if ext := yt["videoId"]; len(ext) > 0 && ext[0].Value != "" {
			return ext[0].Value
		}
	}
	u, err := url.Parse(item.Link)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}
