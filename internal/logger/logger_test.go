// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	ctx := Put(context.Background(), l)

	Debug(ctx, "hidden")
	Info(ctx, "shown", "sheet", "YouTube")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug record written at info level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "sheet=YouTube") {
		t.Fatalf("info record missing: %q", buf.String())
	}

	Get(ctx).Level.Set(slog.LevelDebug)
	Debug(ctx, "now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatalf("debug record missing after level change: %q", buf.String())
	}
}

func TestGetDefault(t *testing.T) {
	l := Get(context.Background())
	if l == nil || l.Logger == nil {
		t.Fatal("Get must never return nil")
	}
	Warn(context.Background(), "goes nowhere")
}
