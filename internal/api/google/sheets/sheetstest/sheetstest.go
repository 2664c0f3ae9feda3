// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package sheetstest provides an in-memory fake of the Google Sheets API
// subset used by package sheets.
package sheetstest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"go.astrophena.name/socialstats/internal/api/google/sheets"
	"go.astrophena.name/socialstats/internal/snapshot"
)

// SpreadsheetID is the only spreadsheet the fake serves.
const SpreadsheetID = "test-spreadsheet"

// Token is the access token the fake expects.
const Token = "test-token"

// Server is a fake Sheets API server.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	order  []string
	tabs   map[string][][]snapshot.Cell
	writes int
}

// New starts a fake server and stops it when the test ends.
func New(t testing.TB) *Server {
	s := &Server{tabs: make(map[string][][]snapshot.Cell)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)
	return s
}

// Client returns a sheets.Client talking to s.
func (s *Server) Client() *sheets.Client {
	return &sheets.Client{
		SpreadsheetID: SpreadsheetID,
		Token:         func(context.Context) (string, error) { return Token, nil },
		HTTPClient:    s.Server.Client(),
		BaseURL:       s.URL,
	}
}

// SetTab replaces the contents of a tab, creating it if needed.
func (s *Server) SetTab(title string, values [][]snapshot.Cell) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tabs[title]; !ok {
		s.order = append(s.order, title)
	}
	s.tabs[title] = values
}

// Tab returns the contents of a tab and whether it exists.
func (s *Server) Tab(title string) ([][]snapshot.Cell, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tabs[title]
	return slices.Clone(v), ok
}

// Writes returns the number of requests that modified values.
func (s *Server) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

var (
	rangeRe = regexp.MustCompile(`^'((?:[^']|'')*)'(?:!(.*))?$`)
	cellRe  = regexp.MustCompile(`^[A-Z]+(\d+)$`)
	rowsRe  = regexp.MustCompile(`^(\d+):(\d+)$`)
)

func parseRange(rng string) (title string, start, end int, ok bool) {
	m := rangeRe.FindStringSubmatch(rng)
	if m == nil {
		return "", 0, 0, false
	}
	title = strings.ReplaceAll(m[1], "''", "'")
	switch cells := m[2]; {
	case cells == "":
		return title, 0, -1, true
	case cellRe.MatchString(cells):
		n, _ := strconv.Atoi(cellRe.FindStringSubmatch(cells)[1])
		return title, n - 1, -1, true
	case rowsRe.MatchString(cells):
		mm := rowsRe.FindStringSubmatch(cells)
		a, _ := strconv.Atoi(mm[1])
		b, _ := strconv.Atoi(mm[2])
		return title, a - 1, b, true
	}
	return "", 0, 0, false
}

func apiError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": code, "message": msg}})
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+Token {
		apiError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/"+SpreadsheetID)
	if !ok {
		apiError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case rest == "" && r.Method == http.MethodGet:
		type props struct {
			Title string `json:"title"`
		}
		type sheet struct {
			Properties props `json:"properties"`
		}
		var resp struct {
			Sheets []sheet `json:"sheets"`
		}
		for _, t := range s.order {
			resp.Sheets = append(resp.Sheets, sheet{props{t}})
		}
		json.NewEncoder(w).Encode(resp)
		return
	case rest == ":batchUpdate" && r.Method == http.MethodPost:
		var req struct {
			Requests []struct {
				AddSheet *struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, rq := range req.Requests {
			if rq.AddSheet == nil {
				continue
			}
			title := rq.AddSheet.Properties.Title
			if _, exists := s.tabs[title]; exists {
				apiError(w, http.StatusBadRequest, "A sheet with the name \""+title+"\" already exists.")
				return
			}
			s.order = append(s.order, title)
			s.tabs[title] = nil
		}
		w.Write([]byte(`{}`))
		return
	}

	rng, ok := strings.CutPrefix(rest, "/values/")
	if !ok {
		apiError(w, http.StatusNotFound, "not found")
		return
	}
	var action string
	for _, a := range []string{"clear", "append"} {
		if r, ok := strings.CutSuffix(rng, ":"+a); ok {
			rng, action = r, a
			break
		}
	}
	title, start, end, ok := parseRange(rng)
	if !ok {
		apiError(w, http.StatusBadRequest, "Unable to parse range: "+rng)
		return
	}
	grid, exists := s.tabs[title]
	if !exists {
		apiError(w, http.StatusBadRequest, "Unable to parse range: "+rng)
		return
	}

	switch {
	case r.Method == http.MethodGet && action == "":
		var out [][]snapshot.Cell
		if start < len(grid) {
			stop := len(grid)
			if end >= 0 && end < stop {
				stop = end
			}
			out = grid[start:stop]
		}
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": out})
	case r.Method == http.MethodPost && action == "clear":
		s.tabs[title] = nil
		s.writes++
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPut && action == "":
		var vr struct {
			Values [][]snapshot.Cell `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			apiError(w, http.StatusBadRequest, err.Error())
			return
		}
		if r.URL.Query().Get("valueInputOption") != "RAW" {
			apiError(w, http.StatusBadRequest, "valueInputOption must be RAW")
			return
		}
		for len(grid) < start+len(vr.Values) {
			grid = append(grid, nil)
		}
		for i, line := range vr.Values {
			grid[start+i] = line
		}
		s.tabs[title] = grid
		s.writes++
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && action == "append":
		var vr struct {
			Values [][]snapshot.Cell `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			apiError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.tabs[title] = append(grid, vr.Values...)
		s.writes++
		w.Write([]byte(`{}`))
	default:
		apiError(w, http.StatusMethodNotAllowed, "unsupported")
	}
}
