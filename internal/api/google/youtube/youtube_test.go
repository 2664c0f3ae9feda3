// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.astrophena.name/socialstats/internal/testutil"
)

// newTestClient serves the files of a txtar archive as API responses.
func newTestClient(t *testing.T, archive string) (*Client, *[]string) {
	files := testutil.TxtarFiles(testutil.ReadTxtar(t, archive))
	var ids []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed" && r.URL.Query().Get("key") != "test-key" {
			http.Error(w, `{"error":{"code":403,"message":"API key missing"}}`, http.StatusForbidden)
			return
		}
		var name string
		switch r.URL.Path {
		case "/youtube/v3/channels":
			if r.URL.Query().Get("id") != "UC123" {
				w.Write([]byte(`{"items":[]}`))
				return
			}
			name = "channels.json"
		case "/youtube/v3/playlistItems":
			name = "playlistItems.json"
			if tok := r.URL.Query().Get("pageToken"); tok != "" {
				name = "playlistItems-" + tok + ".json"
			}
		case "/youtube/v3/videos":
			ids = append(ids, r.URL.Query().Get("id"))
			name = "videos.json"
		case "/feed":
			if r.URL.Query().Get("channel_id") != "UC123" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/atom+xml")
			name = "feed.xml"
		}
		b, ok := files[name]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		w.Write(b)
	}))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		APIKey:     "test-key",
		HTTPClient: srv.Client(),
		Endpoint:   srv.URL + "/",
		FeedURL:    srv.URL + "/feed",
	})
	if err != nil {
		t.Fatal(err)
	}
	return c, &ids
}

func TestChannel(t *testing.T) {
	c, _ := newTestClient(t, "testdata/channel.txtar")

	got, err := c.Channel(context.Background(), "UC123")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, &ChannelStats{Subscribers: 1500, Views: 987654, Videos: 42, Uploads: "UU123"})

	if _, err := c.Channel(context.Background(), "UCnope"); !errors.Is(err, ErrNoChannel) {
		t.Fatalf("want ErrNoChannel, got %v", err)
	}
}

func TestPlaylistVideos(t *testing.T) {
	c, _ := newTestClient(t, "testdata/channel.txtar")

	since := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	got, err := c.PlaylistVideos(context.Background(), "UU123", since)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, []string{"vid1", "vid2", "vid3"})
}

func TestVideosBatches(t *testing.T) {
	c, calls := newTestClient(t, "testdata/channel.txtar")

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = "v"
	}
	videos, err := c.Videos(context.Background(), ids)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(*calls), 3)
	testutil.AssertEqual(t, len(videos), 3)
	testutil.AssertEqual(t, videos[0].ContentDetails.Duration, "PT45S")
	testutil.AssertEqual(t, videos[0].Statistics.ViewCount, uint64(100))
}

func TestFeedVideos(t *testing.T) {
	c, _ := newTestClient(t, "testdata/channel.txtar")

	since := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	got, err := c.FeedVideos(context.Background(), "UC123", since)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, []string{"vid1", "vid2"})
}
