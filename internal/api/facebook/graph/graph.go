// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package graph is a minimal client for the Facebook Graph API, which also
// serves Instagram business accounts.
//
// See https://developers.facebook.com/docs/graph-api.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.astrophena.name/socialstats/internal/request"
)

const (
	defaultBaseURL = "https://graph.facebook.com"
	defaultVersion = "v21.0"
)

// Client makes authenticated Graph API calls.
type Client struct {
	// Token is the access token.
	Token string
	// Version is the API version, such as "v21.0".
	Version string
	// HTTPClient is used for requests. If nil, request.DefaultClient is used.
	HTTPClient *http.Client
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// Error is an error payload returned by the Graph API.
type Error struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	StatusCode int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("graph: %s (type %s, code %d)", e.Message, e.Type, e.Code)
}

// Fields joins names into a comma-separated selection list.
func Fields(names ...string) string { return strings.Join(names, ",") }

// Page is one page of a list response.
type Page[T any] struct {
	Data   []T `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// Get fetches path with params and decodes the response into a new T.
func Get[T any](ctx context.Context, c *Client, path string, params url.Values) (T, error) {
	return getURL[T](ctx, c, c.url(path, params))
}

// List fetches all pages of a list at path, calling fn for every item until
// fn returns false. It returns the number of pages fetched. If a page fails,
// items from earlier pages have already been passed to fn.
func List[T any](ctx context.Context, c *Client, path string, params url.Values, fn func(T) bool) (int, error) {
	next := c.url(path, params)
	pages := 0
	for next != "" {
		page, err := getURL[Page[T]](ctx, c, next)
		if err != nil {
			return pages, err
		}
		pages++
		for _, item := range page.Data {
			if !fn(item) {
				return pages, nil
			}
		}
		next = page.Paging.Next
	}
	return pages, nil
}

func (c *Client) url(path string, params url.Values) string {
	base := defaultBaseURL
	if c.BaseURL != "" {
		base = c.BaseURL
	}
	version := defaultVersion
	if c.Version != "" {
		version = c.Version
	}
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("access_token", c.Token)
	return base + "/" + version + "/" + strings.TrimPrefix(path, "/") + "?" + q.Encode()
}

func getURL[T any](ctx context.Context, c *Client, u string) (T, error) {
	var zero T
	p := request.Params{
		Method:     http.MethodGet,
		URL:        u,
		HTTPClient: c.HTTPClient,
	}
	if c.Token != "" {
		p.Scrubber = strings.NewReplacer(c.Token, "[EXPUNGED]", url.QueryEscape(c.Token), "[EXPUNGED]")
	}
	raw, err := request.Make[json.RawMessage](ctx, p)
	if err != nil {
		var se *request.StatusError
		if errors.As(err, &se) {
			if gerr := parseError(se.Body); gerr != nil {
				gerr.StatusCode = se.StatusCode
				return zero, gerr
			}
		}
		return zero, err
	}
	if gerr := parseError(raw); gerr != nil {
		gerr.StatusCode = http.StatusOK
		return zero, gerr
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("graph: decoding response: %w", err)
	}
	return v, nil
}

func parseError(b []byte) *Error {
	var resp struct {
		Error *Error `json:"error"`
	}
	if err := json.Unmarshal(b, &resp); err != nil || resp.Error == nil || resp.Error.Message == "" {
		return nil
	}
	return resp.Error
}

// Insight is one metric returned by an insights edge.
type Insight struct {
	Name   string `json:"name"`
	Period string `json:"period"`
	Values []struct {
		Value   json.RawMessage `json:"value"`
		EndTime string          `json:"end_time"`
	} `json:"values"`
	TotalValue *struct {
		Value json.RawMessage `json:"value"`
	} `json:"total_value"`
}

// Value returns the metric as a number. It prefers total_value and otherwise
// takes the last of values. Values that aren't plain numbers, such as
// breakdown objects, read as 0.
func (in Insight) Value() float64 {
	if in.TotalValue != nil {
		if f, ok := number(in.TotalValue.Value); ok {
			return f
		}
	}
	if len(in.Values) > 0 {
		if f, ok := number(in.Values[len(in.Values)-1].Value); ok {
			return f
		}
	}
	return 0
}

func number(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

// Insights maps metric names to their values.
func Insights(data []Insight) map[string]float64 {
	m := make(map[string]float64, len(data))
	for _, in := range data {
		m[in.Name] = in.Value()
	}
	return m
}
