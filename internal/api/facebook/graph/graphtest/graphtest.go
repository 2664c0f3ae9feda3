// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package graphtest implements a fake Graph API server for tests.
package graphtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"go.astrophena.name/socialstats/internal/api/facebook/graph"
)

// Token is the access token the fake server accepts.
const Token = "test-graph-token"

const version = "v21.0"

// Server is a fake Graph API server. Paths are registered without the
// version prefix, such as "123/feed".
type Server struct {
	srv *httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

// New starts a fake server that is stopped when the test ends.
func New(t *testing.T) *Server {
	s := &Server{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.srv.Close)
	return s
}

// Client returns a Graph API client talking to s.
func (s *Server) Client() *graph.Client {
	return &graph.Client{
		Token:      Token,
		Version:    version,
		HTTPClient: s.srv.Client(),
		BaseURL:    s.srv.URL,
	}
}

// Handle registers h for path.
func (s *Server) Handle(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = h
}

// JSON registers a handler for path that responds with body.
func (s *Server) JSON(path, body string) {
	s.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
}

// Fail registers a handler for path that responds with a Graph API error.
func (s *Server) Fail(path string, code int, message string) {
	s.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		Error(w, code, message)
	})
}

// Next returns the URL of the next page of path with query.
func (s *Server) Next(path string, query url.Values) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("access_token", Token)
	return s.srv.URL + "/" + version + "/" + path + "?" + q.Encode()
}

// Hits returns how many times path was requested.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Error writes a Graph API error payload.
func Error(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"OAuthException","code":%d}}`, message, code)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("access_token") != Token {
		Error(w, 190, "Invalid OAuth access token.")
		return
	}
	path, ok := strings.CutPrefix(r.URL.Path, "/"+version+"/")
	if !ok {
		Error(w, 2500, "Unknown API version.")
		return
	}

	s.mu.Lock()
	h, ok := s.routes[path]
	if ok {
		s.hits[path]++
	}
	s.mu.Unlock()

	if !ok {
		Error(w, 100, fmt.Sprintf("Unsupported get request. Object with ID '%s' does not exist.", path))
		return
	}
	h(w, r)
}
