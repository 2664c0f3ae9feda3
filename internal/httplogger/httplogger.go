// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package httplogger provides a http.RoundTripper middleware that logs HTTP
// requests and responses at debug level, using the logger carried by the
// request context.
//
// Credentials passed in the URL are redacted before logging: query parameters
// named in [SecretParams] and Telegram-style "/bot<token>" path segments.
package httplogger

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.astrophena.name/socialstats/internal/logger"
)

// SecretParams lists query parameters whose values are never logged.
var SecretParams = []string{"access_token", "key", "client_secret"}

const redacted = "REDACTED"

// New returns a http.RoundTripper that logs each request made through t. If t
// is nil, http.DefaultTransport is used.
func New(t http.RoundTripper) http.RoundTripper {
	if t == nil {
		t = http.DefaultTransport
	}
	return &loggingTransport{transport: t}
}

// Wrap returns a copy of c that logs its requests.
func Wrap(c *http.Client) *http.Client {
	if c == nil {
		c = http.DefaultClient
	}
	cc := *c
	cc.Transport = New(c.Transport)
	return &cc
}

type loggingTransport struct {
	transport http.RoundTripper
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	u := Redact(r.URL)
	start := time.Now()
	logger.Debug(ctx, "http request", "method", r.Method, "url", u)

	resp, err := t.transport.RoundTrip(r)

	attrs := []any{"method", r.Method, "url", u, "duration", time.Since(start).Round(time.Millisecond)}
	if resp != nil {
		attrs = append(attrs, "status", resp.StatusCode)
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	logger.Debug(ctx, "http response", attrs...)

	return resp, err
}

// Redact returns u as a string with credentials replaced.
func Redact(u *url.URL) string {
	cu := *u
	if q := cu.Query(); len(q) > 0 {
		changed := false
		for _, p := range SecretParams {
			if q.Has(p) {
				q.Set(p, redacted)
				changed = true
			}
		}
		if changed {
			cu.RawQuery = q.Encode()
		}
	}
	segs := strings.Split(cu.Path, "/")
	for i, s := range segs {
		if len(s) > len("bot") && strings.HasPrefix(s, "bot") && strings.Contains(s, ":") {
			segs[i] = "bot" + redacted
		}
	}
	cu.Path = strings.Join(segs, "/")
	cu.RawPath = ""
	cu.User = nil
	return cu.String()
}
