// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package report builds daily and weekly narrative reports from collected
// snapshots and delivers them to a chat.
package report

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"
	"time"

	"go.astrophena.name/socialstats/internal/logger"
	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/social"
	"go.astrophena.name/socialstats/internal/social/facebook"
	"go.astrophena.name/socialstats/internal/social/followers"
	"go.astrophena.name/socialstats/internal/social/instagram"
	"go.astrophena.name/socialstats/internal/social/youtube"
	"go.astrophena.name/socialstats/internal/store"

	"github.com/dustin/go-humanize"
)

// Messages sent in place of a generated report.
const (
	MissingKeyMessage       = "⚠️ Gemini API key is missing."
	GenerationFailedMessage = "Error: could not generate the report. Try again later."
)

// Preview lengths of reports printed when they aren't sent.
const (
	dailyPreview  = 1000
	weeklyPreview = 1500
)

//go:embed prompts/*.tmpl
var promptsFS embed.FS

var prompts = template.Must(template.New("").Funcs(template.FuncMap{
	"num": func(f float64) string { return humanize.Comma(int64(math.Round(f))) },
	"inc": func(i int) int { return i + 1 },
}).ParseFS(promptsFS, "prompts/*.tmpl"))

// DailyPrompt renders the prompt of the daily report.
func DailyPrompt(d Daily) (string, error) { return render("daily.tmpl", d) }

// WeeklyPrompt renders the prompt of the weekly report.
func WeeklyPrompt(w Weekly) (string, error) { return render("weekly.tmpl", w) }

func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := prompts.ExecuteTemplate(&sb, name, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Generator generates text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (text, model string, err error)
}

// Notifier delivers a message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Sheets names the tables reports are built from.
type Sheets struct {
	YouTube   string
	Facebook  string
	Instagram string
	Followers string
	Insights  string
}

// Reporter builds and delivers reports.
type Reporter struct {
	Store  store.Store
	Sheets Sheets

	// Generator writes the report. If nil, MissingKeyMessage is sent
	// instead.
	Generator Generator
	// Notifier delivers the report. If nil, a preview of the report is
	// printed to Stdout.
	Notifier Notifier
	// Dry prints the full report to Stdout instead of delivering it, and
	// doesn't record insights.
	Dry bool

	Title    string
	RunID    string
	Location *time.Location
	Stdout   io.Writer
	// Now acts as time.Now, but can be mocked for testing.
	Now func() time.Time
}

func (r *Reporter) now() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if r.Location != nil {
		return now().In(r.Location)
	}
	return now()
}

// load reads the platform tables, plus the followers table for daily
// reports or the insights table for weekly ones.
func (r *Reporter) load(ctx context.Context, weekly bool) (Tables, error) {
	var t Tables
	type source struct {
		dst    **snapshot.Table
		sheet  string
		header []string
	}
	sources := []source{
		{&t.YouTube, r.Sheets.YouTube, youtube.Schema.Header()},
		{&t.Facebook, r.Sheets.Facebook, facebook.Schema.Header()},
		{&t.Instagram, r.Sheets.Instagram, instagram.Schema.Header()},
	}
	if weekly {
		sources = append(sources, source{&t.Insights, r.Sheets.Insights, InsightsHeader})
	} else {
		sources = append(sources, source{&t.Followers, r.Sheets.Followers, followers.Header})
	}
	for _, src := range sources {
		tbl, err := r.Store.Load(ctx, src.sheet, src.header)
		if err != nil {
			return t, fmt.Errorf("loading %s: %w", src.sheet, err)
		}
		logger.Info(ctx, "loaded table", "sheet", src.sheet, "rows", tbl.Len())
		*src.dst = tbl
	}
	return t, nil
}

func (r *Reporter) generate(ctx context.Context, prompt string) string {
	if r.Generator == nil {
		logger.Warn(ctx, "no text generator configured")
		return MissingKeyMessage
	}
	text, model, err := r.Generator.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		logger.Error(ctx, "report generation failed", "error", err)
		return GenerationFailedMessage
	}
	logger.Info(ctx, "report generated", "model", model, "length", len(text))
	return text
}

// deliver sends msg. It reports whether the message was sent.
func (r *Reporter) deliver(ctx context.Context, msg string, preview int) (bool, error) {
	if r.Dry {
		fmt.Fprintln(r.Stdout, msg)
		return false, nil
	}
	if r.Notifier == nil {
		logger.Warn(ctx, "skipping notification: missing Telegram credentials")
		fmt.Fprintf(r.Stdout, "--- Report preview ---\n%s\n", social.Cut(msg, preview))
		return false, nil
	}
	if err := r.Notifier.Send(ctx, msg); err != nil {
		fmt.Fprintf(r.Stdout, "--- Report preview ---\n%s\n", social.Cut(msg, preview))
		return false, fmt.Errorf("sending report: %w", err)
	}
	logger.Info(ctx, "report sent", "length", len(msg))
	return true, nil
}

// Daily builds and delivers the report on the previous day. Once the report
// is sent, its cross-platform insights are appended to the insights table.
func (r *Reporter) Daily(ctx context.Context) error {
	now := r.now()
	t, err := r.load(ctx, false)
	if err != nil {
		return err
	}
	d := SummarizeDaily(t, now)
	prompt, err := DailyPrompt(d)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "daily prompt", "prompt", prompt)

	header := fmt.Sprintf("📊 *%s*\n%s | generated at %s\n\n", r.Title, d.Date, now.Format(social.ClockLayout))
	msg := header + r.generate(ctx, prompt)

	sent, err := r.deliver(ctx, msg, dailyPreview)
	if err != nil || !sent {
		return err
	}

	text := ExtractInsights(msg)
	if text == "" {
		logger.Warn(ctx, "no insights found in report")
		return nil
	}
	in := Insight{
		Date:      d.Yesterday,
		Text:      text,
		Timestamp: now.Format(social.StampLayout),
		RunID:     r.RunID,
	}
	if err := r.Store.AppendRows(ctx, r.Sheets.Insights, InsightsHeader, []snapshot.Row{in.Row()}); err != nil {
		return fmt.Errorf("saving insights: %w", err)
	}
	logger.Info(ctx, "saved insights", "sheet", r.Sheets.Insights, "date", in.Date)
	return nil
}

// Weekly builds and delivers the report on the previous seven days.
func (r *Reporter) Weekly(ctx context.Context) error {
	now := r.now()
	t, err := r.load(ctx, true)
	if err != nil {
		return err
	}
	w := SummarizeWeekly(t, now)
	prompt, err := WeeklyPrompt(w)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "weekly prompt", "prompt", prompt)

	header := fmt.Sprintf("📊 *%s: weekly*\n📅 %s - %s\n\n", r.Title, w.Start, w.End)
	_, err = r.deliver(ctx, header+r.generate(ctx, prompt), weeklyPreview)
	return err
}
