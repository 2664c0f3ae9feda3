// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package gemini generates text with the Gemini API, falling back through an
// ordered list of models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.astrophena.name/socialstats/internal/logger"

	"google.golang.org/genai"
)

// DefaultModels are tried in order when Config.Models is empty.
var DefaultModels = []string{"gemini-3-pro-preview", "gemini-2.5-pro"}

// ErrNoText is returned for a response without any text.
var ErrNoText = errors.New("gemini: response has no text")

// Config configures a Client.
type Config struct {
	// APIKey is the API key used for authentication.
	APIKey string
	// Models are tried in order until one produces text.
	Models []string
	// HTTPClient is an optional HTTP client to use for requests.
	HTTPClient *http.Client
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// Client generates text.
type Client struct {
	c      *genai.Client
	models []string
}

// New returns a new Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is not set")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	models := cfg.Models
	if len(models) == 0 {
		models = DefaultModels
	}
	return &Client{c: c, models: models}, nil
}

// Generate returns text generated for prompt by the first model that
// succeeds, along with that model's name. If every model fails, the error of
// the last one is returned.
func (c *Client) Generate(ctx context.Context, prompt string) (text, model string, err error) {
	var errs []error
	for _, model := range c.models {
		text, err := c.generate(ctx, model, prompt)
		if err == nil {
			return text, model, nil
		}
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		logger.Warn(ctx, "model failed, trying next", "model", model, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", model, err))
	}
	return "", "", fmt.Errorf("gemini: all models failed: %w", errors.Join(errs...))
}

func (c *Client) generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.c.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
