// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package httplogger

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.astrophena.name/socialstats/internal/logger"
	"go.astrophena.name/socialstats/internal/testutil"
)

func TestRedact(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"graph token": {
			in:   "https://graph.facebook.com/v21.0/1000/feed?access_token=secret&fields=id",
			want: "https://graph.facebook.com/v21.0/1000/feed?access_token=REDACTED&fields=id",
		},
		"api key": {
			in:   "https://www.googleapis.com/youtube/v3/channels?id=UC1&key=secret",
			want: "https://www.googleapis.com/youtube/v3/channels?id=UC1&key=REDACTED",
		},
		"bot token": {
			in:   "https://api.telegram.org/bot123:secret/sendMessage",
			want: "https://api.telegram.org/botREDACTED/sendMessage",
		},
		"nothing secret": {
			in:   "https://example.com/bot/feed?channel_id=UC1",
			want: "https://example.com/bot/feed?channel_id=UC1",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			u, err := url.Parse(tc.in)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, Redact(u), tc.want)
		})
	}
}

func TestWrap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	l := logger.New(&buf)
	l.Level.Set(slog.LevelDebug)
	ctx := logger.Put(context.Background(), l)

	c := Wrap(srv.Client())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/x?access_token=secret", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	out := buf.String()
	for _, want := range []string{`msg="http request"`, `msg="http response"`, "status=418", "access_token=REDACTED"} {
		if !strings.Contains(out, want) {
			t.Errorf("log must contain %q, got: %q", want, out)
		}
	}
	if strings.Contains(out, "secret") {
		t.Errorf("log leaks the token: %q", out)
	}
}
