// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram implements message delivery over the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.astrophena.name/socialstats/internal/logger"
	"go.astrophena.name/socialstats/internal/request"
)

const (
	tgAPI          = "https://api.telegram.org"
	sendRetryLimit = 5 // N attempts to retry message sending
)

// Message length limits. Longer messages are cut to TruncateTo characters
// and get TruncatedNotice appended.
const (
	MaxLength       = 4000
	TruncateTo      = 3900
	TruncatedNotice = "\n\n... (report truncated due to length limit)"
)

// Config configures a Telegram sender.
type Config struct {
	ChatID     string
	Token      string
	HTTPClient *http.Client
	// BaseURL overrides the Bot API endpoint, for tests.
	BaseURL string
}

// Sender sends messages via Telegram Bot API.
type Sender struct {
	chatID      string
	token       string
	baseURL     string
	httpc       *http.Client
	scrubber    *strings.Replacer
	makeRequest func(context.Context, string, any) error
	sleep       func(context.Context, time.Duration) bool
}

// New returns a Telegram sender configured for a specific chat.
func New(cfg Config) *Sender {
	s := &Sender{
		chatID:  cfg.ChatID,
		token:   cfg.Token,
		baseURL: cfg.BaseURL,
		httpc:   cfg.HTTPClient,
	}
	if s.httpc == nil {
		s.httpc = request.DefaultClient
	}
	if s.baseURL == "" {
		s.baseURL = tgAPI
	}
	if s.token != "" {
		s.scrubber = strings.NewReplacer(s.token, "[EXPUNGED]")
	}
	s.makeRequest = s.makeTelegramRequest
	s.sleep = sleep
	return s
}

type message struct {
	ChatID             string `json:"chat_id"`
	Text               string `json:"text"`
	LinkPreviewOptions struct {
		IsDisabled bool `json:"is_disabled"`
	} `json:"link_preview_options"`
}

// Truncate cuts text that exceeds MaxLength characters.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:TruncateTo]) + TruncatedNotice
}

// Send sends text as a single message, truncating it if needed and retrying
// when rate limited.
func (s *Sender) Send(ctx context.Context, text string) error {
	msg := &message{ChatID: s.chatID, Text: Truncate(text)}
	msg.LinkPreviewOptions.IsDisabled = true
	if msg.Text != text {
		logger.Warn(ctx, "message too long, truncated", "length", utf8.RuneCountInString(text))
	}

	var err error
	for range sendRetryLimit {
		err = s.makeRequest(ctx, "sendMessage", msg)
		if err == nil {
			return nil
		}

		retryable, wait := isRateLimited(err)
		if !retryable {
			return err
		}

		logger.Warn(ctx, "sending rate limited, waiting", "chat_id", s.chatID, "wait", wait)
		if !s.sleep(ctx, wait) {
			return ctx.Err()
		}
	}
	return err
}

func (s *Sender) makeTelegramRequest(ctx context.Context, method string, args any) error {
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method:     http.MethodPost,
		URL:        s.baseURL + "/bot" + s.token + "/" + method,
		Body:       args,
		HTTPClient: s.httpc,
		Scrubber:   s.scrubber,
	})
	return err
}

func isRateLimited(err error) (bool, time.Duration) {
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		return false, 0
	}

	var errorResponse struct {
		Parameters struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal(statusErr.Body, &errorResponse); err != nil {
		return false, 0
	}

	return true, time.Duration(errorResponse.Parameters.RetryAfter) * time.Second
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
