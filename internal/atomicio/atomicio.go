// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package atomicio replaces files atomically, keeping a few previous versions
// around as backups.
package atomicio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const backupTimeFormat = "20060102150405.000000000"

// DefaultBackups is the number of backups WriteFile keeps.
const DefaultBackups = 10

// WriteFile replaces name with data. The previous contents, if any, are
// moved to a timestamped backup next to name; only the newest keep backups
// survive. A negative keep disables backups.
func WriteFile(name string, data []byte, perm fs.FileMode, keep int) (err error) {
	// The temporary file must be on the same filesystem for os.Rename to be
	// atomic.
	f, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Chmod(perm); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if keep >= 0 {
		if err := backup(name); err != nil {
			return err
		}
	}
	if err := os.Rename(f.Name(), name); err != nil {
		return err
	}
	if keep < 0 {
		return nil
	}
	return prune(name, keep)
}

func backup(name string) error {
	_, err := os.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.Rename(name, name+"."+time.Now().UTC().Format(backupTimeFormat)+".bak")
}

// Backups returns the backups of name, oldest first.
func Backups(name string) ([]string, error) {
	matches, err := filepath.Glob(escapeGlob(name) + ".*.bak")
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	return matches, nil
}

func prune(name string, keep int) error {
	backups, err := Backups(name)
	if err != nil {
		return err
	}
	if len(backups) <= keep {
		return nil
	}
	for _, b := range backups[:len(backups)-keep] {
		if err := os.Remove(b); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

var globChars = strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)

func escapeGlob(s string) string {
	// Backslash is the path separator on Windows and can't be escaped there.
	if filepath.Separator == '\\' {
		return s
	}
	return globChars.Replace(s)
}
