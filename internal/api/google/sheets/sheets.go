// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package sheets is a minimal client for the Google Sheets API v4.
//
// See https://developers.google.com/sheets/api/reference/rest.
package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.astrophena.name/socialstats/internal/request"
	"go.astrophena.name/socialstats/internal/snapshot"
)

// Scope grants read and write access to spreadsheets.
const Scope = "https://www.googleapis.com/auth/spreadsheets"

const defaultBaseURL = "https://sheets.googleapis.com"

// Client talks to one spreadsheet.
type Client struct {
	// SpreadsheetID identifies the spreadsheet.
	SpreadsheetID string
	// Token returns an OAuth access token.
	Token func(context.Context) (string, error)
	// HTTPClient is used for requests. If nil, request.DefaultClient is used.
	HTTPClient *http.Client
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

var urlRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ParseID extracts the spreadsheet ID from a spreadsheet URL. Anything that
// doesn't look like a URL is returned as is.
func ParseID(idOrURL string) string {
	if m := urlRe.FindStringSubmatch(idOrURL); m != nil {
		return m[1]
	}
	return strings.TrimSpace(idOrURL)
}

// Range returns the A1 notation of cells in the named tab. An empty cells
// selects the whole tab.
func Range(sheet, cells string) string {
	r := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if cells != "" {
		r += "!" + cells
	}
	return r
}

// Titles returns titles of all tabs in the spreadsheet.
func (c *Client) Titles(ctx context.Context) ([]string, error) {
	type response struct {
		Sheets []struct {
			Properties struct {
				Title string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	resp, err := doRequest[response](ctx, c, http.MethodGet, "", url.Values{"fields": {"sheets.properties.title"}}, nil)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		titles = append(titles, s.Properties.Title)
	}
	return titles, nil
}

// AddSheet creates a new tab.
func (c *Client) AddSheet(ctx context.Context, title string) error {
	body := map[string]any{
		"requests": []any{
			map[string]any{
				"addSheet": map[string]any{
					"properties": map[string]any{"title": title},
				},
			},
		},
	}
	_, err := doRequest[request.IgnoreResponse](ctx, c, http.MethodPost, ":batchUpdate", nil, body)
	return err
}

type valueRange struct {
	Range          string            `json:"range,omitempty"`
	MajorDimension string            `json:"majorDimension,omitempty"`
	Values         [][]snapshot.Cell `json:"values"`
}

// Get returns unformatted values of cells in rng. Trailing empty rows and
// cells are omitted by the API.
func (c *Client) Get(ctx context.Context, rng string) ([][]snapshot.Cell, error) {
	resp, err := doRequest[valueRange](ctx, c, http.MethodGet, "/values/"+url.PathEscape(rng), url.Values{
		"valueRenderOption":    {"UNFORMATTED_VALUE"},
		"dateTimeRenderOption": {"FORMATTED_STRING"},
	}, nil)
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// Clear removes all values from rng.
func (c *Client) Clear(ctx context.Context, rng string) error {
	_, err := doRequest[request.IgnoreResponse](ctx, c, http.MethodPost, "/values/"+url.PathEscape(rng)+":clear", nil, struct{}{})
	return err
}

// Update writes values starting at rng. Values are stored as is, without
// parsing.
func (c *Client) Update(ctx context.Context, rng string, values [][]snapshot.Cell) error {
	_, err := doRequest[request.IgnoreResponse](ctx, c, http.MethodPut, "/values/"+url.PathEscape(rng), url.Values{
		"valueInputOption": {"RAW"},
	}, valueRange{Range: rng, MajorDimension: "ROWS", Values: values})
	return err
}

// Append adds values as new rows after the last row of the table in rng.
func (c *Client) Append(ctx context.Context, rng string, values [][]snapshot.Cell) error {
	_, err := doRequest[request.IgnoreResponse](ctx, c, http.MethodPost, "/values/"+url.PathEscape(rng)+":append", url.Values{
		"valueInputOption": {"RAW"},
		"insertDataOption": {"INSERT_ROWS"},
	}, valueRange{MajorDimension: "ROWS", Values: values})
	return err
}

func doRequest[Response any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (Response, error) {
	var zero Response
	if c.SpreadsheetID == "" {
		return zero, errors.New("sheets: spreadsheet ID is not set")
	}
	tok, err := c.Token(ctx)
	if err != nil {
		return zero, err
	}

	base := defaultBaseURL
	if c.BaseURL != "" {
		base = c.BaseURL
	}
	u := base + "/v4/spreadsheets/" + url.PathEscape(c.SpreadsheetID) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	p := request.Params{
		Method: method,
		URL:    u,
		Headers: map[string]string{
			"Authorization": "Bearer " + tok,
		},
		Body:       body,
		HTTPClient: c.HTTPClient,
	}
	if tok != "" {
		p.Scrubber = strings.NewReplacer(tok, "[EXPUNGED]")
	}
	return request.Make[Response](ctx, p)
}
