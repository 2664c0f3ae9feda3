// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.astrophena.name/socialstats/internal/testutil"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{Token: "tok&en", BaseURL: srv.URL, HTTPClient: srv.Client()}
}

func TestGet(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v21.0/me" || r.URL.Query().Get("access_token") != "tok&en" || r.URL.Query().Get("fields") != "id,name" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"id":"1","name":"Page"}`))
	})
	type me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	got, err := Get[me](context.Background(), c, "me", url.Values{"fields": {Fields("id", "name")}})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, me{ID: "1", Name: "Page"})
}

func TestGetError(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"http error": {
			status: http.StatusBadRequest,
			body:   `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`,
		},
		"error with 200": {
			status: http.StatusOK,
			body:   `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			_, err := Get[json.RawMessage](context.Background(), c, "me", nil)
			var gerr *Error
			if !errors.As(err, &gerr) {
				t.Fatalf("want *Error, got %v", err)
			}
			testutil.AssertEqual(t, gerr.Code, 190)
			testutil.AssertEqual(t, gerr.StatusCode, tc.status)
		})
	}
}

func TestGetScrubsToken(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	})
	_, err := Get[json.RawMessage](context.Background(), c, "me", nil)
	if err == nil {
		t.Fatal("want error")
	}
	if strings.Contains(err.Error(), url.QueryEscape("tok&en")) {
		t.Fatalf("token leaked: %v", err)
	}
}

func TestList(t *testing.T) {
	var srvURL string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("after") {
		case "":
			json.NewEncoder(w).Encode(map[string]any{
				"data":   []map[string]string{{"id": "1"}, {"id": "2"}},
				"paging": map[string]string{"next": srvURL + "/v21.0/page/feed?after=x&access_token=tok%26en"},
			})
		case "x":
			json.NewEncoder(w).Encode(map[string]any{
				"data":   []map[string]string{{"id": "3"}},
				"paging": map[string]string{"next": srvURL + "/v21.0/page/feed?after=y&access_token=tok%26en"},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"Please reduce the amount of data","code":1}}`))
		}
	})
	srvURL = c.BaseURL

	type item struct {
		ID string `json:"id"`
	}

	var got []string
	pages, err := List(context.Background(), c, "page/feed", nil, func(it item) bool {
		got = append(got, it.ID)
		return true
	})
	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("want *Error from the third page, got %v", err)
	}
	testutil.AssertEqual(t, pages, 2)
	testutil.AssertEqual(t, got, []string{"1", "2", "3"})

	got = nil
	pages, err = List(context.Background(), c, "page/feed", nil, func(it item) bool {
		got = append(got, it.ID)
		return it.ID != "2"
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, pages, 1)
	testutil.AssertEqual(t, got, []string{"1", "2"})
}

func TestInsights(t *testing.T) {
	var data []Insight
	if err := json.Unmarshal([]byte(`[
		{"name":"post_impressions","period":"lifetime","values":[{"value":120}]},
		{"name":"page_follows","period":"day","values":[{"value":10},{"value":12}]},
		{"name":"reach","period":"day","total_value":{"value":77},"values":[{"value":1}]},
		{"name":"post_reactions_by_type_total","period":"lifetime","values":[{"value":{"like":3}}]},
		{"name":"empty","period":"day","values":[]}
	]`), &data); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, Insights(data), map[string]float64{
		"post_impressions":             120,
		"page_follows":                 12,
		"reach":                        77,
		"post_reactions_by_type_total": 0,
		"empty":                        0,
	})
}
