// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package version

import (
	"runtime/debug"
	"testing"

	"go.astrophena.name/socialstats/internal/testutil"
)

func TestLoadInfo(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		bi     *debug.BuildInfo
		ok     bool
		wantUA string
	}{
		"no build info": {
			ok:     false,
			wantUA: "socialstats/devel (+https://astrophena.name/bleep-bloop)",
		},
		"tagged release": {
			bi:     &debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}},
			ok:     true,
			wantUA: "socialstats/v1.2.3 (+https://astrophena.name/bleep-bloop)",
		},
		"devel with commit": {
			bi: &debug.BuildInfo{
				Main: debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "abcdef"},
					{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
				},
			},
			ok:     true,
			wantUA: "socialstats/abcdef (+https://astrophena.name/bleep-bloop)",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			i := loadInfo(func() (*debug.BuildInfo, bool) { return tc.bi, tc.ok })
			testutil.AssertEqual(t, userAgent(i), tc.wantUA)
		})
	}
}

func TestInfoString(t *testing.T) {
	t.Parallel()

	i := Info{
		Name:    "socialstats",
		Version: "v0.1.0",
		Commit:  "abcdef",
		BuiltAt: "2026-01-02T03:04:05Z",
		Go:      "go1.24.0",
		OS:      "linux",
		Arch:    "amd64",
	}
	want := "socialstats v0.1.0 (go1.24.0, linux/amd64)\ncommit abcdef\nbuilt at 2026-01-02T03:04:05Z\n"
	testutil.AssertEqual(t, i.String(), want)
}
