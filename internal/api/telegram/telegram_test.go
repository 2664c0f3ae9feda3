// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.astrophena.name/socialstats/internal/request"
	"go.astrophena.name/socialstats/internal/testutil"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   string
		want string
	}{
		"short":     {in: "hello", want: "hello"},
		"exact":     {in: strings.Repeat("a", 4000), want: strings.Repeat("a", 4000)},
		"long":      {in: strings.Repeat("a", 4001), want: strings.Repeat("a", 3900) + TruncatedNotice},
		"multibyte": {in: strings.Repeat("ש", 5000), want: strings.Repeat("ש", 3900) + TruncatedNotice},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := Truncate(tc.in)
			testutil.AssertEqual(t, got, tc.want)
			if !utf8.ValidString(got) {
				t.Fatal("truncated text is not valid UTF-8")
			}
		})
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:secret/sendMessage" {
			http.Error(w, `{"ok":false}`, http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	s := New(Config{ChatID: "-100", Token: "123:secret", HTTPClient: srv.Client(), BaseURL: srv.URL})
	if err := s.Send(t.Context(), strings.Repeat("x", 4500)); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got.ChatID, "-100")
	testutil.AssertEqual(t, got.Text, strings.Repeat("x", 3900)+TruncatedNotice)
	testutil.AssertEqual(t, got.LinkPreviewOptions.IsDisabled, true)
}

func TestSendScrubsToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"Bad Request: chat not found"}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	s := New(Config{ChatID: "-100", Token: "123:secret", HTTPClient: srv.Client(), BaseURL: srv.URL})
	err := s.Send(t.Context(), "hello")
	if err == nil {
		t.Fatal("want error")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("token leaked: %v", err)
	}
}

func TestSendRateLimitRetry(t *testing.T) {
	t.Parallel()

	s := New(Config{ChatID: "chat", Token: "token"})
	var calls int
	s.makeRequest = func(context.Context, string, any) error {
		calls++
		if calls == 1 {
			return &request.StatusError{StatusCode: 429, Body: []byte(`{"parameters":{"retry_after":1}}`)}
		}
		return nil
	}
	var waits []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) bool {
		waits = append(waits, d)
		return true
	}

	err := s.Send(t.Context(), "hello")
	testutil.AssertEqual(t, err, nil)
	testutil.AssertEqual(t, calls, 2)
	testutil.AssertEqual(t, waits, []time.Duration{time.Second})
}

func TestSendRateLimitExhausted(t *testing.T) {
	t.Parallel()

	s := New(Config{ChatID: "chat", Token: "token"})
	var calls int
	s.makeRequest = func(context.Context, string, any) error {
		calls++
		return &request.StatusError{StatusCode: 429, Body: []byte(`{"parameters":{"retry_after":2}}`)}
	}
	s.sleep = func(context.Context, time.Duration) bool { return true }

	err := s.Send(t.Context(), "hello")
	var se *request.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want *request.StatusError, got %v", err)
	}
	testutil.AssertEqual(t, calls, sendRetryLimit)
}

func TestSendNonRetryableError(t *testing.T) {
	t.Parallel()

	s := New(Config{ChatID: "chat", Token: "token"})
	wantErr := errors.New("boom")
	s.makeRequest = func(context.Context, string, any) error { return wantErr }
	s.sleep = func(context.Context, time.Duration) bool {
		t.Fatal("sleep should not be called for non-retryable errors")
		return false
	}

	err := s.Send(t.Context(), "hello")
	if !errors.Is(err, wantErr) {
		t.Fatalf("Send() error = %v, want %v", err, wantErr)
	}
}

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err      error
		retry    bool
		waitTime time.Duration
	}{
		"rate-limited": {
			err:      &request.StatusError{StatusCode: 429, Body: []byte(`{"parameters":{"retry_after":3}}`)},
			retry:    true,
			waitTime: 3 * time.Second,
		},
		"bad body": {
			err:   &request.StatusError{StatusCode: 429, Body: []byte(`oops`)},
			retry: false,
		},
		"other status": {
			err:   &request.StatusError{StatusCode: 500, Body: []byte(`{}`)},
			retry: false,
		},
		"other error": {
			err:   fmt.Errorf("network"),
			retry: false,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			retry, wait := isRateLimited(tc.err)
			testutil.AssertEqual(t, retry, tc.retry)
			testutil.AssertEqual(t, wait, tc.waitTime)
		})
	}
}
