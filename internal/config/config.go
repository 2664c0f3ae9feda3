// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package config loads settings of socialstats.
//
// Settings come from, in increasing precedence: defaults, an optional config
// file and the environment. The config file is either Starlark (.star) or TOML
// (.toml). In a Starlark file every top-level variable is a setting, and the
// env(name, default) builtin reads the environment:
//
//	spreadsheet_id = "1WB0cFc2RgR1Z-crjhtkSqLKp1mMdFoby8NwV7h3UN6c"
//	youtube_days = 14
//	gemini_models = ["gemini-2.5-pro", "gemini-2.5-flash"]
//	telegram_chat_id = env("CHAT", "-100123")
//
// In a TOML file, tables are flattened by joining names with an underscore,
// so [youtube] days = 14 is the same as youtube_days = 14.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // for TIMEZONE on systems without zoneinfo

	"go.astrophena.name/socialstats/internal/api/google/gemini"
	"go.astrophena.name/socialstats/internal/api/google/sheets"
	"go.astrophena.name/socialstats/internal/logger"
	"go.astrophena.name/socialstats/internal/social"

	"github.com/BurntSushi/toml"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ErrMissing is returned by Require when a required setting is empty.
var ErrMissing = errors.New("config: missing required setting")

// Sheets holds names of spreadsheet tabs.
type Sheets struct {
	Facebook  string
	Instagram string
	YouTube   string
	Followers string
	Insights  string
}

// Config holds all settings.
type Config struct {
	// ServiceAccount is the JSON key of the Google service account used to
	// access the spreadsheet.
	ServiceAccount string
	// SpreadsheetID identifies the spreadsheet. A spreadsheet URL is accepted
	// and reduced to its ID.
	SpreadsheetID string
	// Store selects the persistence backend, see store.Open.
	Store  string
	Sheets Sheets

	FacebookToken  string
	FacebookPageID string
	FacebookDays   int

	// InstagramAccountID is discovered from FacebookToken when empty.
	InstagramAccountID string
	InstagramDays      int

	YouTubeAPIKey    string
	YouTubeChannelID string
	// YouTubeSource is "api" or "feed".
	YouTubeSource string
	YouTubeDays   int

	GeminiAPIKey string
	GeminiModels []string

	TelegramToken  string
	TelegramChatID string

	// ReportTitle is shown in the header of reports.
	ReportTitle string

	// Timezone names the location used for report windows and collection
	// timestamps.
	Timezone string
	Location *time.Location

	// RequestDelay spaces out per-entity API calls.
	RequestDelay time.Duration
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Store: "sheets",
		Sheets: Sheets{
			Facebook:  "Facebook",
			Instagram: "Instagram",
			YouTube:   "YouTube",
			Followers: "Followers",
			Insights:  "Daily Insights",
		},
		FacebookDays:  3,
		InstagramDays: 3,
		YouTubeSource: "api",
		YouTubeDays:   30,
		GeminiModels:  slices.Clone(gemini.DefaultModels),
		ReportTitle:   "Social media report",
		Timezone:      "Asia/Jerusalem",
		RequestDelay:  social.DefaultDelay,
	}
}

type setting struct {
	key string
	env string
	set func(c *Config, v string) error
	get func(c *Config) string
}

func str(key, env string, p func(c *Config) *string) setting {
	return setting{
		key: key,
		env: env,
		set: func(c *Config, v string) error {
			*p(c) = strings.TrimSpace(v)
			return nil
		},
		get: func(c *Config) string { return *p(c) },
	}
}

func days(key, env string, p func(c *Config) *int) setting {
	return setting{
		key: key,
		env: env,
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return err
			}
			if n < 1 {
				return fmt.Errorf("must be at least 1, got %d", n)
			}
			*p(c) = n
			return nil
		},
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
	}
}

func custom(key, env string, set func(*Config, string) error, get func(*Config) string) setting {
	return setting{key: key, env: env, set: set, get: get}
}

var settings = []setting{
	str("service_account", "GCP_SERVICE_ACCOUNT", func(c *Config) *string { return &c.ServiceAccount }),
	custom("spreadsheet_id", "SPREADSHEET_ID",
		func(c *Config, v string) error {
			c.SpreadsheetID = sheets.ParseID(v)
			return nil
		},
		func(c *Config) string { return c.SpreadsheetID },
	),
	str("store", "STORE", func(c *Config) *string { return &c.Store }),
	str("facebook_sheet", "FACEBOOK_SHEET", func(c *Config) *string { return &c.Sheets.Facebook }),
	str("instagram_sheet", "INSTAGRAM_SHEET", func(c *Config) *string { return &c.Sheets.Instagram }),
	str("youtube_sheet", "YOUTUBE_SHEET", func(c *Config) *string { return &c.Sheets.YouTube }),
	str("followers_sheet", "FOLLOWERS_SHEET", func(c *Config) *string { return &c.Sheets.Followers }),
	str("insights_sheet", "INSIGHTS_SHEET", func(c *Config) *string { return &c.Sheets.Insights }),
	str("facebook_token", "FACEBOOK_TOKEN", func(c *Config) *string { return &c.FacebookToken }),
	str("facebook_page_id", "FACEBOOK_PAGE_ID", func(c *Config) *string { return &c.FacebookPageID }),
	days("facebook_days", "FACEBOOK_DAYS", func(c *Config) *int { return &c.FacebookDays }),
	str("instagram_account_id", "INSTAGRAM_ACCOUNT_ID", func(c *Config) *string { return &c.InstagramAccountID }),
	days("instagram_days", "INSTAGRAM_DAYS", func(c *Config) *int { return &c.InstagramDays }),
	str("youtube_api_key", "YOUTUBE_API_KEY", func(c *Config) *string { return &c.YouTubeAPIKey }),
	str("youtube_channel_id", "YOUTUBE_CHANNEL_ID", func(c *Config) *string { return &c.YouTubeChannelID }),
	custom("youtube_source", "YOUTUBE_SOURCE",
		func(c *Config, v string) error {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "api" && v != "feed" {
				return fmt.Errorf(`must be "api" or "feed", got %q`, v)
			}
			c.YouTubeSource = v
			return nil
		},
		func(c *Config) string { return c.YouTubeSource },
	),
	days("youtube_days", "YOUTUBE_DAYS", func(c *Config) *int { return &c.YouTubeDays }),
	str("gemini_api_key", "GEMINI_API_KEY", func(c *Config) *string { return &c.GeminiAPIKey }),
	custom("gemini_models", "GEMINI_MODELS",
		func(c *Config, v string) error {
			var models []string
			for m := range strings.SplitSeq(v, ",") {
				if m = strings.TrimSpace(m); m != "" {
					models = append(models, m)
				}
			}
			if len(models) == 0 {
				return errors.New("no models listed")
			}
			c.GeminiModels = models
			return nil
		},
		func(c *Config) string { return strings.Join(c.GeminiModels, ",") },
	),
	str("telegram_token", "TELEGRAM_TOKEN", func(c *Config) *string { return &c.TelegramToken }),
	str("telegram_chat_id", "TELEGRAM_CHAT_ID", func(c *Config) *string { return &c.TelegramChatID }),
	str("report_title", "REPORT_TITLE", func(c *Config) *string { return &c.ReportTitle }),
	str("timezone", "TIMEZONE", func(c *Config) *string { return &c.Timezone }),
	custom("request_delay", "REQUEST_DELAY",
		func(c *Config, v string) error {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return err
			}
			if d < 0 {
				return fmt.Errorf("must not be negative, got %v", d)
			}
			c.RequestDelay = d
			return nil
		},
		func(c *Config) string { return c.RequestDelay.String() },
	),
}

func lookup(key string) (setting, bool) {
	for _, s := range settings {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// Load builds a Config from defaults, the config file at path (if not empty)
// and the environment read by getenv.
func Load(ctx context.Context, path string, getenv func(string) string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var vals map[string]string
		switch ext := filepath.Ext(path); ext {
		case ".star":
			vals, err = parseStarlark(ctx, path, b, getenv)
		case ".toml":
			vals, err = parseTOML(b)
		default:
			return nil, fmt.Errorf("config: unsupported config file format %q", ext)
		}
		if err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		keys := make([]string, 0, len(vals))
		for k := range vals {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			s, ok := lookup(k)
			if !ok {
				return nil, fmt.Errorf("config: %s: unknown setting %q", path, k)
			}
			if err := s.set(c, vals[k]); err != nil {
				return nil, fmt.Errorf("config: %s: %s: %w", path, k, err)
			}
		}
	}

	for _, s := range settings {
		v := getenv(s.env)
		if v == "" && s.env == "GCP_SERVICE_ACCOUNT" {
			v = getenv("GOOGLE_CREDENTIALS")
		}
		if v == "" {
			continue
		}
		if err := s.set(c, v); err != nil {
			return nil, fmt.Errorf("config: %s: %w", s.env, err)
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone: %w", err)
	}
	c.Location = loc

	return c, nil
}

// Require returns an error wrapping ErrMissing that names every setting from
// envs (given by their environment variable names) that is empty.
func (c *Config) Require(envs ...string) error {
	var missing []string
	for _, env := range envs {
		i := slices.IndexFunc(settings, func(s setting) bool { return s.env == env })
		if i < 0 {
			panic(fmt.Sprintf("config: unknown setting %s", env))
		}
		if settings[i].get(c) == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

func parseStarlark(ctx context.Context, path string, src []byte, getenv func(string) string) (map[string]string, error) {
	envBuiltin := func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name, def string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
			return nil, err
		}
		if v := getenv(name); v != "" {
			return starlark.String(v), nil
		}
		return starlark.String(def), nil
	}

	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
		},
		&starlark.Thread{
			Print: func(_ *starlark.Thread, msg string) { logger.Info(ctx, msg, "file", path) },
		},
		filepath.Base(path),
		src,
		starlark.StringDict{
			"env": starlark.NewBuiltin("env", envBuiltin),
		},
	)
	if err != nil {
		return nil, err
	}

	vals := make(map[string]string)
	for name, v := range globals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		switch v := v.(type) {
		case starlark.String:
			vals[name] = string(v)
		case starlark.Int, starlark.Bool, starlark.Float:
			vals[name] = v.String()
		case *starlark.List:
			var elems []string
			for e := range v.Elements() {
				s, ok := starlark.AsString(e)
				if !ok {
					return nil, fmt.Errorf("%s: list elements must be strings, got %s", name, e.Type())
				}
				elems = append(elems, s)
			}
			vals[name] = strings.Join(elems, ",")
		case *starlark.Function, *starlark.Builtin:
			// Helpers.
		default:
			return nil, fmt.Errorf("%s: unsupported value of type %s", name, v.Type())
		}
	}
	return vals, nil
}

func parseTOML(src []byte) (map[string]string, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(src), &raw); err != nil {
		return nil, err
	}
	vals := make(map[string]string)
	return vals, flatten("", raw, vals)
}

func flatten(prefix string, m map[string]any, vals map[string]string) error {
	for k, v := range m {
		if prefix != "" {
			k = prefix + "_" + k
		}
		switch v := v.(type) {
		case map[string]any:
			if err := flatten(k, v, vals); err != nil {
				return err
			}
		case string:
			vals[k] = v
		case int64:
			vals[k] = strconv.FormatInt(v, 10)
		case bool:
			vals[k] = strconv.FormatBool(v)
		case []any:
			var elems []string
			for _, e := range v {
				s, ok := e.(string)
				if !ok {
					return fmt.Errorf("%s: array elements must be strings, got %T", k, e)
				}
				elems = append(elems, s)
			}
			vals[k] = strings.Join(elems, ",")
		default:
			return fmt.Errorf("%s: unsupported value of type %T", k, v)
		}
	}
	return nil
}
