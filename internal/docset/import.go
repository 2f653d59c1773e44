package docset

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/ziadkadry99/docnav/internal/db"
	"github.com/ziadkadry99/docnav/internal/navdata"
	"github.com/ziadkadry99/docnav/internal/progress"
)

var navIndexRe = regexp.MustCompile(`^navtreeindex[0-9]+\.js$`)

// Script is a doc set script together with its role.
type Script struct {
	Name string
	Kind string
}

// Scripts lists the scripts the store reads: the tree, its index pages, lazy
// branch scripts and search shards. Top-level scripts that do not decode as a
// non-empty tree branch (jquery.js, navtree.js and friends) are skipped.
func (s *Store) Scripts(ctx context.Context) ([]Script, error) {
	top, err := s.src.Glob(ctx, "*.js")
	if err != nil {
		return nil, fmt.Errorf("listing scripts: %w", err)
	}

	var out []Script
	for _, name := range top {
		switch {
		case name == NavTreeScript:
			out = append(out, Script{Name: name, Kind: db.KindNavTree})
		case navIndexRe.MatchString(name):
			out = append(out, Script{Name: name, Kind: db.KindNavIndex})
		case s.IsShard(name):
			// Shards take precedence if the patterns reach the top level.
		default:
			body, err := s.src.Read(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			if nodes, err := navdata.ParseBranch(body); err == nil && len(nodes) > 0 {
				out = append(out, Script{Name: name, Kind: db.KindBranch})
			}
		}
	}

	shards, err := s.shardScripts(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range shards {
		out = append(out, Script{Name: name, Kind: db.KindSearch})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Import copies every script of the store into dst and returns how many were
// stored.
func Import(ctx context.Context, s *Store, docsDir string, dst *db.DB, rep progress.Reporter) (int, error) {
	if rep == nil {
		rep = progress.Nop{}
	}
	scripts, err := s.Scripts(ctx)
	if err != nil {
		return 0, err
	}
	if len(scripts) == 0 {
		return 0, fmt.Errorf("no doc set scripts found in %s", docsDir)
	}

	id, err := dst.BeginImport(ctx, docsDir)
	if err != nil {
		return 0, err
	}

	rep.Start(len(scripts))
	defer rep.Finish()
	for i, sc := range scripts {
		body, err := s.src.Read(ctx, sc.Name)
		if err != nil {
			return i, fmt.Errorf("reading %s: %w", sc.Name, err)
		}
		if err := dst.PutScript(ctx, db.Script{Name: sc.Name, Kind: sc.Kind, Body: body, ImportID: id}); err != nil {
			return i, err
		}
		rep.Update(i+1, sc.Name)
	}

	if err := dst.FinishImport(ctx, id, len(scripts)); err != nil {
		return len(scripts), err
	}
	return len(scripts), nil
}
