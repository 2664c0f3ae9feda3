// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.astrophena.name/socialstats/internal/api/facebook/graph"
	"go.astrophena.name/socialstats/internal/api/google/gemini"
	"go.astrophena.name/socialstats/internal/api/google/serviceaccount"
	"go.astrophena.name/socialstats/internal/api/google/sheets"
	ytapi "go.astrophena.name/socialstats/internal/api/google/youtube"
	"go.astrophena.name/socialstats/internal/api/telegram"
	"go.astrophena.name/socialstats/internal/cli"
	"go.astrophena.name/socialstats/internal/config"
	"go.astrophena.name/socialstats/internal/httplogger"
	"go.astrophena.name/socialstats/internal/logger"
	"go.astrophena.name/socialstats/internal/report"
	"go.astrophena.name/socialstats/internal/request"
	"go.astrophena.name/socialstats/internal/social"
	"go.astrophena.name/socialstats/internal/store"

	"github.com/google/uuid"
)

func main() { cli.Main(new(app)) }

func (a *app) Flags(fs *flag.FlagSet) {
	fs.BoolVar(&a.dry, "dry", false, "Enable dry-run mode: fetch and merge, but print results instead of writing or sending them.")
	fs.StringVar(&a.configPath, "config", "", "Path to a config file (.star or .toml).")
}

type app struct {
	// configuration
	dry        bool
	configPath string
	cfg        *config.Config

	// now acts as time.Now, but can be mocked for testing.
	now   func() time.Time
	httpc *http.Client
	// store, if set, is used instead of the one described by configuration.
	store store.Store
	// endpoints override API base URLs, for tests.
	endpoints endpoints
	runID     string
}

type endpoints struct {
	graph    string
	sheets   string
	youtube  string
	feed     string
	gemini   string
	telegram string
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	if len(env.Args) == 0 {
		return fmt.Errorf("%w: command is required, see -help for usage", cli.ErrInvalidArgs)
	}
	if len(env.Args) > 1 {
		return fmt.Errorf("%w: only one command is allowed", cli.ErrInvalidArgs)
	}
	command := env.Args[0]

	var err error
	a.configPath = cmp.Or(a.configPath, env.Getenv("CONFIG_FILE"))
	a.cfg, err = config.Load(ctx, a.configPath, env.Getenv)
	if err != nil {
		return err
	}

	if a.now == nil {
		a.now = time.Now
	}
	if a.httpc == nil {
		a.httpc = request.DefaultClient
	}
	a.runID = cmp.Or(a.runID, uuid.NewString())

	l := logger.Get(ctx)
	// Enable debug logging, including every API call, in dry-run mode.
	if a.dry {
		l.Level.Set(slog.LevelDebug)
		a.httpc = httplogger.Wrap(a.httpc)
	}
	ctx = logger.Put(ctx, &logger.Logger{
		Logger: l.With("run_id", a.runID, "command", command),
		Level:  l.Level,
	})

	switch command {
	case "facebook":
		return a.withStore(ctx, a.collectFacebook)
	case "instagram":
		return a.withStore(ctx, a.collectInstagram)
	case "youtube":
		return a.withStore(ctx, a.collectYouTube)
	case "followers":
		return a.withStore(ctx, a.collectFollowers)
	case "collect":
		return a.withStore(ctx, a.collectAll)
	case "daily":
		return a.withStore(ctx, func(ctx context.Context, st store.Store) error {
			r, err := a.reporter(ctx, st)
			if err != nil {
				return err
			}
			return r.Daily(ctx)
		})
	case "weekly":
		return a.withStore(ctx, func(ctx context.Context, st store.Store) error {
			r, err := a.reporter(ctx, st)
			if err != nil {
				return err
			}
			return r.Weekly(ctx)
		})
	default:
		return fmt.Errorf("%w: no such command %q", cli.ErrInvalidArgs, command)
	}
}

// withStore opens the configured store, unless one was injected, and runs f
// with it.
func (a *app) withStore(ctx context.Context, f func(context.Context, store.Store) error) error {
	if a.store != nil {
		return f(ctx, a.store)
	}

	var sc *sheets.Client
	if a.cfg.Store == "" || a.cfg.Store == "sheets" {
		if err := a.cfg.Require("GCP_SERVICE_ACCOUNT", "SPREADSHEET_ID"); err != nil {
			return err
		}
		key, err := serviceaccount.LoadKey([]byte(a.cfg.ServiceAccount))
		if err != nil {
			return fmt.Errorf("loading service account key: %w", err)
		}
		ts := &serviceaccount.TokenSource{
			Key:        key,
			HTTPClient: a.httpc,
			Scopes:     []string{sheets.Scope},
		}
		sc = &sheets.Client{
			SpreadsheetID: a.cfg.SpreadsheetID,
			Token:         ts.Token,
			HTTPClient:    a.httpc,
			BaseURL:       a.endpoints.sheets,
		}
	}

	st, err := store.Open(ctx, a.cfg.Store, sc)
	if err != nil {
		return err
	}
	return errors.Join(f(ctx, st), st.Close())
}

func (a *app) graph() *graph.Client {
	return &graph.Client{
		Token:      a.cfg.FacebookToken,
		HTTPClient: a.httpc,
		BaseURL:    a.endpoints.graph,
	}
}

func (a *app) youtube(ctx context.Context) (*ytapi.Client, error) {
	return ytapi.New(ctx, ytapi.Config{
		APIKey:     a.cfg.YouTubeAPIKey,
		HTTPClient: a.httpc,
		Endpoint:   a.endpoints.youtube,
		FeedURL:    a.endpoints.feed,
	})
}

func (a *app) pacer() *social.Pacer {
	return &social.Pacer{Delay: a.cfg.RequestDelay}
}

// today returns the current date in the configured time zone.
func (a *app) today() string {
	return a.now().In(a.cfg.Location).Format(social.DateLayout)
}

func (a *app) reporter(ctx context.Context, st store.Store) (*report.Reporter, error) {
	r := &report.Reporter{
		Store: st,
		Sheets: report.Sheets{
			YouTube:   a.cfg.Sheets.YouTube,
			Facebook:  a.cfg.Sheets.Facebook,
			Instagram: a.cfg.Sheets.Instagram,
			Followers: a.cfg.Sheets.Followers,
			Insights:  a.cfg.Sheets.Insights,
		},
		Dry:      a.dry,
		Title:    a.cfg.ReportTitle,
		RunID:    a.runID,
		Location: a.cfg.Location,
		Stdout:   cli.GetEnv(ctx).Stdout,
		Now:      a.now,
	}

	if a.cfg.GeminiAPIKey != "" {
		gc, err := gemini.New(ctx, gemini.Config{
			APIKey:     a.cfg.GeminiAPIKey,
			Models:     a.cfg.GeminiModels,
			HTTPClient: a.httpc,
			BaseURL:    a.endpoints.gemini,
		})
		if err != nil {
			return nil, err
		}
		r.Generator = gc
	}

	if a.cfg.TelegramToken != "" && a.cfg.TelegramChatID != "" {
		r.Notifier = telegram.New(telegram.Config{
			ChatID:     a.cfg.TelegramChatID,
			Token:      a.cfg.TelegramToken,
			HTTPClient: a.httpc,
			BaseURL:    a.endpoints.telegram,
		})
	}

	return r, nil
}
