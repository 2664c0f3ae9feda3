// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.astrophena.name/socialstats/internal/atomicio"
)

// JSONDir is a directory-backed implementation of the [KV] interface. Each
// key lives in its own JSON file, replaced atomically on every write.
type JSONDir struct {
	dir string
}

// NewJSONDir creates dir if needed and returns a [JSONDir] backed by it.
func NewJSONDir(dir string) (*JSONDir, error) {
	if dir == "" {
		return nil, errors.New("store: file store needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JSONDir{dir: dir}, nil
}

var unsafeChars = strings.NewReplacer("/", "_", `\`, "_", " ", "_", ":", "_")

func (s *JSONDir) path(key string) string {
	return filepath.Join(s.dir, unsafeChars.Replace(key)+".json")
}

// Get retrieves a value for a given key.
func (s *JSONDir) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// Set stores a value for a given key.
func (s *JSONDir) Set(_ context.Context, key string, value []byte) error {
	return atomicio.WriteFile(s.path(key), value, 0o644, atomicio.DefaultBackups)
}

// Close is a no-op for JSONDir.
func (s *JSONDir) Close() error { return nil }
