// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ytapi "go.astrophena.name/socialstats/internal/api/google/youtube"
	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/testutil"
)

var now = time.Date(2024, 5, 12, 6, 0, 0, 0, time.UTC)

func testFetcher(t *testing.T, source string) *Fetcher {
	files := testutil.TxtarFiles(testutil.ReadTxtar(t, "testdata/uploads.txtar"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/youtube/v3/") + ".json"
		if r.URL.Path == "/feed" {
			name = "feed.xml"
		}
		b, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(b)
	}))
	t.Cleanup(srv.Close)

	c, err := ytapi.New(context.Background(), ytapi.Config{
		APIKey:     "test-key",
		HTTPClient: srv.Client(),
		Endpoint:   srv.URL + "/",
		FeedURL:    srv.URL + "/feed",
	})
	if err != nil {
		t.Fatal(err)
	}
	return &Fetcher{
		Client:    c,
		ChannelID: "UC1",
		Source:    source,
		Location:  time.FixedZone("IDT", 3*60*60),
		Now:       func() time.Time { return now },
	}
}

func TestFetch(t *testing.T) {
	for _, source := range []string{SourceAPI, SourceFeed} {
		t.Run(source, func(t *testing.T) {
			videos, err := testFetcher(t, source).Fetch(context.Background(), 30)
			if err != nil {
				t.Fatal(err)
			}
			// The fake videos endpoint ignores ids, so both sources see all
			// three videos.
			testutil.AssertEqual(t, len(videos), 3)

			short := videos[0].Row()
			testutil.AssertEqual(t, short, snapshot.Row{
				"video_id":           snapshot.Text("short1"),
				"published_at":       snapshot.Text("2024-05-11"),
				"published_time":     snapshot.Text("18:00"),
				"title":              snapshot.Text("Quick take"),
				"description":        snapshot.Text(""),
				"thumbnail_url":      snapshot.Text("https://i.ytimg.com/vi/short1/hqdefault.jpg"),
				"tags":               snapshot.Text("news,shorts"),
				"video_type":         snapshot.Text(TypeShorts),
				"views":              snapshot.Int(2000),
				"likes":              snapshot.Int(150),
				"comments":           snapshot.Int(7),
				"duration_seconds":   snapshot.Int(45),
				"duration_formatted": snapshot.Text("45s"),
				"like_rate":          snapshot.Num(7.5),
				"comment_rate":       snapshot.Num(0.35),
				"video_url":          snapshot.Text("https://www.youtube.com/watch?v=short1"),
				"last_updated":       snapshot.Text("2024-05-12 09:00"),
			})

			long := videos[1]
			testutil.AssertEqual(t, long.Type(), TypeRegular)
			testutil.AssertEqual(t, long.Thumbnail, "https://i.ytimg.com/vi/long1/maxresdefault.jpg")
			testutil.AssertEqual(t, long.Row()["duration_formatted"], snapshot.Text("1h 2m 3s"))
			testutil.AssertEqual(t, long.Row()["comment_rate"], snapshot.Int(0))

			odd := videos[2]
			testutil.AssertEqual(t, odd.Duration, time.Duration(0))
			testutil.AssertEqual(t, odd.Type(), TypeRegular)
			testutil.AssertEqual(t, odd.Row()["like_rate"], snapshot.Int(0))
		})
	}
}

func TestFetchUnknownSource(t *testing.T) {
	if _, err := testFetcher(t, "carrier-pigeon").Fetch(context.Background(), 30); err == nil {
		t.Fatal("want error")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{
		0:    "0s",
		3:    "3s",
		60:   "1m 0s",
		123:  "2m 3s",
		3600: "1h 0m 0s",
		3723: "1h 2m 3s",
	}
	for seconds, want := range cases {
		testutil.AssertEqual(t, FormatDuration(seconds), want)
	}
}

func TestParseDuration(t *testing.T) {
	testutil.AssertEqual(t, ParseDuration("PT1M5S"), 65*time.Second)
	testutil.AssertEqual(t, ParseDuration("PT2H"), 2*time.Hour)
	testutil.AssertEqual(t, ParseDuration("nope"), time.Duration(0))
}

func TestType(t *testing.T) {
	testutil.AssertEqual(t, Video{Duration: 60 * time.Second}.Type(), TypeShorts)
	testutil.AssertEqual(t, Video{Duration: 61 * time.Second}.Type(), TypeRegular)
	testutil.AssertEqual(t, Video{}.Type(), TypeRegular)
}
