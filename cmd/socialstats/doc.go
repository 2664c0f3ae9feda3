// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Socialstats collects statistics of Facebook, Instagram and YouTube into a
spreadsheet and reports on them in Telegram.

# Usage

	$ socialstats [flags...] <command>

# Commands

  - facebook: collect recent posts of the Facebook page.
  - instagram: collect recent media of the Instagram business account.
  - youtube: collect recent videos of the YouTube channel.
  - followers: record today's follower counts of all platforms.
  - collect: run facebook, instagram, youtube and followers, skipping
    platforms that aren't configured.
  - daily: send the report on yesterday and save its insights.
  - weekly: send the report on the last seven days.

Each collection run fetches recent records, computes how their metrics changed
since the previous run and rewrites the platform's tab with the merged result.
Records that fell out of the fetch window are kept as they are.

In dry-run mode (-dry) data is fetched and merged, but nothing is written or
sent: merged rows and reports are printed instead.

# Environment Variables

  - GCP_SERVICE_ACCOUNT (or GOOGLE_CREDENTIALS): JSON key of the Google service
    account with access to the spreadsheet.
  - SPREADSHEET_ID: ID or URL of the spreadsheet.
  - STORE: where to keep tables: "sheets" (default), "mem", "file:<dir>",
    "sqlite:<path>" or a postgres:// URL.
  - FACEBOOK_TOKEN: Graph API page access token, used for Instagram too.
  - FACEBOOK_PAGE_ID: Facebook page ID.
  - INSTAGRAM_ACCOUNT_ID: Instagram business account ID. Discovered from the
    token if not set.
  - YOUTUBE_API_KEY: YouTube Data API key.
  - YOUTUBE_CHANNEL_ID: YouTube channel ID.
  - YOUTUBE_SOURCE: how to list recent videos, "api" (default) or "feed".
  - GEMINI_API_KEY: Gemini API key for writing reports.
  - GEMINI_MODELS: comma-separated models to try in order.
  - TELEGRAM_TOKEN, TELEGRAM_CHAT_ID: Telegram bot token and chat for reports.
    If not set, reports are printed instead.
  - TIMEZONE: time zone of report days and timestamps. Defaults to
    Asia/Jerusalem.
  - REQUEST_DELAY: pause between per-post API calls, such as "150ms".
  - CONFIG_FILE: path to a config file, same as -config.

Tab names, lookback windows and the report title can be changed with
FACEBOOK_SHEET, INSTAGRAM_SHEET, YOUTUBE_SHEET, FOLLOWERS_SHEET,
INSIGHTS_SHEET, FACEBOOK_DAYS, INSTAGRAM_DAYS, YOUTUBE_DAYS and REPORT_TITLE.
A .env file in the working directory is read too; real environment variables
win over it.

# Configuration

Every setting can also be put into a config file, either Starlark or TOML.
Settings are named after their environment variables in lowercase, except
GCP_SERVICE_ACCOUNT, which is service_account:

	# config.star
	spreadsheet_id = "1WB0cFc2RgR1Z-crjhtkSqLKp1mMdFoby8NwV7h3UN6c"
	youtube_channel_id = "UC_HwfTAcjBESKZRJq6BTCpg"
	youtube_days = 14
	gemini_models = ["gemini-2.5-pro", "gemini-2.5-flash"]

	$ socialstats -config config.star collect

Environment variables override the config file.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/socialstats/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
