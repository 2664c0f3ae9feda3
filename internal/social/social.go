// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package social holds plumbing shared by the record fetchers.
package social

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.astrophena.name/socialstats/internal/logger"

	"golang.org/x/time/rate"
)

// Kind classifies a fetch error.
type Kind int

const (
	// KindTransient errors degrade a single entity to default values.
	KindTransient Kind = iota
	// KindFatal errors abort the run.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// FetchError is an error of a single fetch call.
type FetchError struct {
	Kind Kind
	// Op names the call, such as "insights".
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Supplementary classifies an error of a call fetching supplementary data for
// one entity. Cancellation and deadlines are fatal; everything else, such as
// API error payloads, bad statuses and undecodable responses, is transient.
func Supplementary(op string, err error) *FetchError {
	kind := KindTransient
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindFatal
	}
	return &FetchError{Kind: kind, Op: op, Err: err}
}

// Degrade handles err of a supplementary call for entity id. Transient errors
// are logged and swallowed, so the caller keeps its defaults; fatal ones are
// returned.
func Degrade(ctx context.Context, op, id string, err error) error {
	if err == nil {
		return nil
	}
	fe := Supplementary(op, err)
	if fe.Kind == KindFatal {
		return fe
	}
	logger.Warn(ctx, "degraded to defaults", "op", op, "id", id, "error", err)
	return nil
}

// IsFatal reports whether err aborts the run.
func IsFatal(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == KindFatal
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// DefaultDelay is the pause between per-entity calls.
const DefaultDelay = 150 * time.Millisecond

// Pacer spaces out calls. The zero value doesn't wait.
type Pacer struct {
	Delay time.Duration

	lim *rate.Limiter
}

// Wait blocks until the next call may be made: the first call goes through
// at once, later ones are at least Delay apart. It returns early with the
// context's error if ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.Delay <= 0 {
		return ctx.Err()
	}
	if p.lim == nil {
		p.lim = rate.NewLimiter(rate.Every(p.Delay), 1)
	}
	r := p.lim.Reserve()
	d := r.Delay()
	if d == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Layouts of dates and times in snapshots.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
	StampLayout = "2006-01-02 15:04"
)

// graphLayout is the timestamp layout of the Graph API.
const graphLayout = "2006-01-02T15:04:05-0700"

// ParseTime parses an API timestamp in RFC 3339 or Graph API form.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(graphLayout, s)
}

// DateTime splits t, in UTC, into a date and a clock time.
func DateTime(t time.Time) (date, clock string) {
	if t.IsZero() {
		return "", ""
	}
	t = t.UTC()
	return t.Format(DateLayout), t.Format(ClockLayout)
}

// Stamp formats t in loc as a collection timestamp.
func Stamp(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(StampLayout)
}

// Since returns the start of a window of days ending at now.
func Since(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// OneLine replaces newlines in s with spaces and cuts it to n runes.
func OneLine(s string, n int) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	return Cut(s, n)
}

// Cut cuts s to at most n runes.
func Cut(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Ratio returns part/whole×100 rounded to places, or 0 if whole is 0.
func Ratio(part, whole float64, places int) float64 {
	if whole == 0 {
		return 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(part/whole*100*p) / p
}
