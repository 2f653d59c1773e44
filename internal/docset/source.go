// Package docset reads the scripts a Doxygen HTML build ships (navtreedata.js,
// navtreeindexN.js, lazy branch scripts, search shards) from a directory or an
// imported SQLite doc set.
package docset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/docnav/internal/db"
)

// Source reads doc set scripts by slash-separated path relative to the docs
// root. A missing script is reported with an error wrapping fs.ErrNotExist.
type Source interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Glob(ctx context.Context, pattern string) ([]string, error)
}

// FSSource reads scripts from a file system, usually the Doxygen html
// output directory.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource wraps fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// DirSource reads scripts from a directory on disk.
func DirSource(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir))
}

func (s *FSSource) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(s.fsys, name)
}

func (s *FSSource) Glob(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := doublestar.Glob(s.fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(names)
	return names, nil
}

// SQLSource reads scripts imported with `docnav import`.
type SQLSource struct {
	db *db.DB
}

// NewSQLSource wraps an opened doc set database.
func NewSQLSource(database *db.DB) *SQLSource {
	return &SQLSource{db: database}
}

func (s *SQLSource) Read(ctx context.Context, name string) ([]byte, error) {
	script, err := s.db.GetScript(ctx, name)
	if errors.Is(err, db.ErrNotFound) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	if err != nil {
		return nil, err
	}
	return script.Body, nil
}

func (s *SQLSource) Glob(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("glob %s: %w", pattern, doublestar.ErrBadPattern)
	}
	names, err := s.db.ListScripts(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range names {
		if ok, _ := doublestar.Match(pattern, name); ok {
			out = append(out, name)
		}
	}
	return out, nil
}
