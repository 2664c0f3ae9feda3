// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.astrophena.name/socialstats/internal/api/google/sheets/sheetstest"
	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/testutil"
)

func TestMemStore(t *testing.T) {
	testStore(t, newTables(NewMemStore()))
}

func TestJSONDir(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), "file:"+dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)

	if _, err := os.Stat(filepath.Join(dir, "Daily_Insights.json")); err != nil {
		t.Fatalf("tab file not written: %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := Open(context.Background(), "sqlite:"+filepath.Join(t.TempDir(), "stats.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, databaseURL)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Clean up the table before running the test.
	if _, err := s.pool.Exec(ctx, "DELETE FROM tabs"); err != nil {
		t.Fatal(err)
	}

	testStore(t, newTables(s))
}

func TestSheets(t *testing.T) {
	srv := sheetstest.New(t)
	s, err := Open(context.Background(), "sheets", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)

	grid, ok := srv.Tab("Followers")
	if !ok {
		t.Fatal("Followers tab was not created")
	}
	testutil.AssertEqual(t, grid[0], []snapshot.Cell{
		snapshot.Text("date"), snapshot.Text("subs"), snapshot.Text("legacy"),
	})
}

func TestSheetsReadsExistingTab(t *testing.T) {
	srv := sheetstest.New(t)
	srv.SetTab("YouTube", [][]snapshot.Cell{
		{snapshot.Text("video_id"), snapshot.Text("views")},
		{snapshot.Int(123), snapshot.Int(5)},
		{snapshot.Text("abc")},
	})
	s := NewSheets(srv.Client())

	got, err := s.Load(context.Background(), "YouTube", []string{"video_id", "views", "likes"})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, &snapshot.Table{
		Header: []string{"video_id", "views"},
		Rows: []snapshot.Row{
			{"video_id": snapshot.Int(123), "views": snapshot.Int(5)},
			{"video_id": snapshot.Text("abc")},
		},
	})
	testutil.AssertEqual(t, srv.Writes(), 0)
}

func TestSheetsUpsertRowSkipsBlankLines(t *testing.T) {
	srv := sheetstest.New(t)
	srv.SetTab("Followers", [][]snapshot.Cell{
		{snapshot.Text("date"), snapshot.Text("note"), snapshot.Text("subs")},
		{snapshot.Text("2026-10-14"), snapshot.Text(""), snapshot.Int(100)},
		{},
		{snapshot.Text("2026-10-16"), snapshot.Text("early run"), snapshot.Int(105)},
	})
	s := NewSheets(srv.Client())
	ctx := context.Background()
	header := []string{"date", "note", "subs"}

	existing, err := s.Load(ctx, "Followers", header)
	if err != nil {
		t.Fatal(err)
	}
	row, idx := snapshot.UpsertDaily(snapshot.Schema{Key: "date", Date: "date", Columns: header}, existing, snapshot.Row{
		"date": snapshot.Text("2026-10-16"),
		"note": snapshot.Text("late run"),
		"subs": snapshot.Int(110),
	}, "2026-10-16")
	testutil.AssertEqual(t, idx, 1)
	if err := s.UpsertRow(ctx, "Followers", header, idx, row); err != nil {
		t.Fatal(err)
	}

	grid, _ := srv.Tab("Followers")
	testutil.AssertEqual(t, grid[1][0], snapshot.Text("2026-10-14"))
	testutil.AssertEqual(t, grid[3], []snapshot.Cell{snapshot.Text("2026-10-16"), snapshot.Text("late run"), snapshot.Int(110)})

	got, err := s.Load(ctx, "Followers", header)
	if err != nil {
		t.Fatal(err)
	}
	today := 0
	for _, r := range got.Rows {
		if r["date"].String() == "2026-10-16" {
			today++
		}
	}
	testutil.AssertEqual(t, today, 1)
	testutil.AssertEqual(t, got.Len(), 2)
}

func TestOpenUnknown(t *testing.T) {
	if _, err := Open(context.Background(), "redis://localhost", nil); err == nil {
		t.Fatal("want error for unknown store")
	}
	if _, err := Open(context.Background(), "sheets", nil); err == nil {
		t.Fatal("want error for sheets store without client")
	}
}

func TestMergeHeader(t *testing.T) {
	testutil.AssertEqual(t, mergeHeader([]string{"a", "b"}, []string{"b", "x", "", "a"}), []string{"a", "b", "x"})
	testutil.AssertEqual(t, mergeHeader([]string{"a"}, nil), []string{"a"})
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	header := []string{"key", "date", "views"}

	// A missing tab is created and reads as empty.
	tbl, err := s.Load(ctx, "Videos", header)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, tbl.Header, header)
	testutil.AssertEqual(t, tbl.Len(), 0)

	// Replace overwrites everything.
	want := &snapshot.Table{
		Header: []string{"key", "date", "views", "views_delta"},
		Rows: []snapshot.Row{
			{"key": snapshot.Text("b"), "date": snapshot.Text("2024-01-02"), "views": snapshot.Int(7), "views_delta": snapshot.Int(0)},
			{"key": snapshot.Text("a"), "date": snapshot.Text("2024-01-01"), "views": snapshot.Num(1.5), "views_delta": snapshot.Int(-2)},
		},
	}
	if err := s.Replace(ctx, "Videos", want); err != nil {
		t.Fatal(err)
	}
	if err := s.Replace(ctx, "Videos", want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx, "Videos", header)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, want)

	// UpsertRow appends, then updates in place, and extends the header.
	daily := []string{"date", "subs"}
	if err := s.UpsertRow(ctx, "Followers", daily, -1, snapshot.Row{"date": snapshot.Text("2024-01-01"), "subs": snapshot.Int(1)}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertRow(ctx, "Followers", daily, -1, snapshot.Row{"date": snapshot.Text("2024-01-02"), "subs": snapshot.Int(2)}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertRow(ctx, "Followers", append(daily, "legacy"), 1, snapshot.Row{"date": snapshot.Text("2024-01-02"), "subs": snapshot.Int(3), "legacy": snapshot.Text("x")}); err != nil {
		t.Fatal(err)
	}
	followers, err := s.Load(ctx, "Followers", daily)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, followers.Header, []string{"date", "subs", "legacy"})
	testutil.AssertEqual(t, followers.Len(), 2)
	testutil.AssertEqual(t, followers.Rows[1]["subs"], snapshot.Int(3))
	testutil.AssertEqual(t, followers.Rows[1]["legacy"], snapshot.Text("x"))

	// AppendRows keeps earlier rows.
	insights := []string{"date", "insights"}
	for _, day := range []string{"2024-01-01", "2024-01-02"} {
		if err := s.AppendRows(ctx, "Daily Insights", insights, []snapshot.Row{{"date": snapshot.Text(day), "insights": snapshot.Text("line\nline")}}); err != nil {
			t.Fatal(err)
		}
	}
	hist, err := s.Load(ctx, "Daily Insights", insights)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, hist.Rows, []snapshot.Row{
		{"date": snapshot.Text("2024-01-01"), "insights": snapshot.Text("line\nline")},
		{"date": snapshot.Text("2024-01-02"), "insights": snapshot.Text("line\nline")},
	})

	{
		err := s.UpsertRow(ctx, "Followers", daily, 10, snapshot.Row{})
		if !errors.Is(err, ErrRowOutOfRange) {
			t.Fatalf("want ErrRowOutOfRange, got %v", err)
		}
	}
}
