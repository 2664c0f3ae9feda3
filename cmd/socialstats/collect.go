// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.astrophena.name/socialstats/internal/cli"
	"go.astrophena.name/socialstats/internal/logger"
	"go.astrophena.name/socialstats/internal/snapshot"
	"go.astrophena.name/socialstats/internal/social/facebook"
	"go.astrophena.name/socialstats/internal/social/followers"
	"go.astrophena.name/socialstats/internal/social/instagram"
	"go.astrophena.name/socialstats/internal/social/youtube"
	"go.astrophena.name/socialstats/internal/store"
)

func (a *app) collectFacebook(ctx context.Context, st store.Store) error {
	if err := a.cfg.Require("FACEBOOK_TOKEN", "FACEBOOK_PAGE_ID"); err != nil {
		return err
	}
	f := &facebook.Fetcher{
		Client:   a.graph(),
		PageID:   a.cfg.FacebookPageID,
		Pacer:    a.pacer(),
		Location: a.cfg.Location,
		Now:      a.now,
	}
	posts, err := f.Fetch(ctx, a.cfg.FacebookDays)
	return a.merge(ctx, st, facebook.Schema, a.cfg.Sheets.Facebook, facebook.Rows(posts), err)
}

func (a *app) collectInstagram(ctx context.Context, st store.Store) error {
	if err := a.cfg.Require("FACEBOOK_TOKEN"); err != nil {
		return err
	}
	f := &instagram.Fetcher{
		Client:    a.graph(),
		AccountID: a.cfg.InstagramAccountID,
		Pacer:     a.pacer(),
		Location:  a.cfg.Location,
		Now:       a.now,
	}
	media, err := f.Fetch(ctx, a.cfg.InstagramDays)
	return a.merge(ctx, st, instagram.Schema, a.cfg.Sheets.Instagram, instagram.Rows(media), err)
}

func (a *app) collectYouTube(ctx context.Context, st store.Store) error {
	if err := a.cfg.Require("YOUTUBE_API_KEY", "YOUTUBE_CHANNEL_ID"); err != nil {
		return err
	}
	yc, err := a.youtube(ctx)
	if err != nil {
		return err
	}
	f := &youtube.Fetcher{
		Client:    yc,
		ChannelID: a.cfg.YouTubeChannelID,
		Source:    a.cfg.YouTubeSource,
		Location:  a.cfg.Location,
		Now:       a.now,
	}
	videos, err := f.Fetch(ctx, a.cfg.YouTubeDays)
	return a.merge(ctx, st, youtube.Schema, a.cfg.Sheets.YouTube, youtube.Rows(videos), err)
}

// merge reconciles fresh rows with the stored table and writes the result.
// Rows fetched before a listing failure are still written; fetchErr is
// returned afterwards.
func (a *app) merge(ctx context.Context, st store.Store, s snapshot.Schema, sheet string, fresh []snapshot.Row, fetchErr error) error {
	if fetchErr != nil {
		logger.Error(ctx, "fetch failed", "sheet", sheet, "fetched", len(fresh), "error", fetchErr)
	}
	if len(fresh) == 0 {
		logger.Warn(ctx, "no data, nothing to write", "sheet", sheet)
		return fetchErr
	}

	existing, err := st.Load(ctx, sheet, s.Header())
	if err != nil {
		return errors.Join(fetchErr, fmt.Errorf("loading %s: %w", sheet, err))
	}
	final := snapshot.Reconcile(s, fresh, existing)
	logger.Info(ctx, "merged", "sheet", sheet, "new", len(fresh), "existing", existing.Len(), "rows", final.Len())

	if a.dry {
		printMerged(cli.GetEnv(ctx).Stdout, s, sheet, fresh, final)
		return fetchErr
	}
	if err := st.Replace(ctx, sheet, final); err != nil {
		return errors.Join(fetchErr, fmt.Errorf("writing %s: %w", sheet, err))
	}
	logger.Info(ctx, "saved", "sheet", sheet, "rows", final.Len())
	return fetchErr
}

func printMerged(w io.Writer, s snapshot.Schema, sheet string, fresh []snapshot.Row, final *snapshot.Table) {
	fmt.Fprintf(w, "%s: %d fetched, %d rows after merge\n", sheet, len(fresh), final.Len())
	keys := make(map[string]bool, len(fresh))
	for _, r := range fresh {
		keys[r[s.Key].String()] = true
	}
	for _, r := range final.Rows {
		if !keys[r[s.Key].String()] {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "  %s\t%s", r[s.Key], r[s.Date])
		for _, m := range s.Deltas {
			fmt.Fprintf(&sb, "\t%s=%s (%s)", m, r[m], r[snapshot.DeltaColumn(m)])
		}
		fmt.Fprintln(w, sb.String())
	}
}

func (a *app) collectFollowers(ctx context.Context, st store.Store) error {
	f := &followers.Fetcher{
		ChannelID:   a.cfg.YouTubeChannelID,
		PageID:      a.cfg.FacebookPageID,
		InstagramID: a.cfg.InstagramAccountID,
		Location:    a.cfg.Location,
		Now:         a.now,
	}
	if a.cfg.YouTubeAPIKey != "" && a.cfg.YouTubeChannelID != "" {
		yc, err := a.youtube(ctx)
		if err != nil {
			return err
		}
		f.YouTube = yc
	}
	if a.cfg.FacebookToken != "" {
		f.Graph = a.graph()
	}
	if f.YouTube == nil && f.Graph == nil {
		return a.cfg.Require("YOUTUBE_API_KEY", "YOUTUBE_CHANNEL_ID", "FACEBOOK_TOKEN")
	}

	obs, err := f.Fetch(ctx)
	if err != nil {
		return err
	}

	sheet := a.cfg.Sheets.Followers
	existing, err := st.Load(ctx, sheet, followers.Header)
	if err != nil {
		return fmt.Errorf("loading %s: %w", sheet, err)
	}
	today := a.today()
	row, idx := followers.Upsert(existing, obs, today)

	if a.dry {
		w := cli.GetEnv(ctx).Stdout
		fmt.Fprintf(w, "%s: %s\n", sheet, today)
		for _, col := range followers.Header {
			if v := row[col]; !v.IsEmpty() {
				fmt.Fprintf(w, "  %s\t%s\n", col, v)
			}
		}
		return nil
	}
	if err := st.UpsertRow(ctx, sheet, followers.Header, idx, row); err != nil {
		return fmt.Errorf("writing %s: %w", sheet, err)
	}
	logger.Info(ctx, "saved", "sheet", sheet, "date", today, "updated", idx >= 0)
	return nil
}

// collectAll runs every collector whose platform is configured. A failing
// collector doesn't stop the others, unless the run is canceled.
func (a *app) collectAll(ctx context.Context, st store.Store) error {
	collectors := []struct {
		name       string
		configured bool
		run        func(context.Context, store.Store) error
	}{
		{"facebook", a.cfg.FacebookToken != "" && a.cfg.FacebookPageID != "", a.collectFacebook},
		{"instagram", a.cfg.FacebookToken != "", a.collectInstagram},
		{"youtube", a.cfg.YouTubeAPIKey != "" && a.cfg.YouTubeChannelID != "", a.collectYouTube},
		{"followers", a.cfg.FacebookToken != "" || (a.cfg.YouTubeAPIKey != "" && a.cfg.YouTubeChannelID != ""), a.collectFollowers},
	}

	var errs []error
	for _, c := range collectors {
		if !c.configured {
			logger.Info(ctx, "skipping, not configured", "collector", c.name)
			continue
		}
		logger.Info(ctx, "collecting", "collector", c.name)
		if err := c.run(ctx, st); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			if ctx.Err() != nil {
				break
			}
		}
	}
	return errors.Join(errs...)
}
