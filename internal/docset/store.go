package docset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/docnav/internal/navdata"
	"github.com/ziadkadry99/docnav/internal/search"
)

// ErrShardNotFound is returned when a bucket label has no shard script.
var ErrShardNotFound = errors.New("shard not found")

// Script names fixed by the Doxygen output layout.
const (
	NavTreeScript = "navtreedata.js"
)

// NavIndexScript returns the name of the n-th NAVTREEINDEX page.
func NavIndexScript(n int) string {
	return fmt.Sprintf("navtreeindex%d.js", n)
}

// Default shard discovery patterns.
var (
	DefaultShardPatterns = []string{"search/*.js"}
	DefaultShardExcludes = []string{"search/search.js", "search/searchdata.js"}
)

// Options selects which scripts are search shards.
type Options struct {
	Shards  []string
	Exclude []string
	Logger  *log.Logger
}

// Store is the read-only index shard store. Loading is idempotent and has no
// side effects beyond caching the label to script mapping, so a Store can be
// shared by every session and called from their loader goroutines.
type Store struct {
	src  Source
	opts Options

	mu    sync.Mutex
	paths map[string]string // shard label -> script name
}

// NewStore creates a store over src.
func NewStore(src Source, opts Options) *Store {
	if len(opts.Shards) == 0 {
		opts.Shards = DefaultShardPatterns
	}
	if opts.Exclude == nil {
		opts.Exclude = DefaultShardExcludes
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Store{src: src, opts: opts, paths: make(map[string]string)}
}

// Source returns the underlying script source.
func (s *Store) Source() Source { return s.src }

// ShardLabels lists the available shard labels, sorted. A shard's label is
// its script base name without ".js" ("functions_70"); when two scripts
// share a base name the first one listed wins and the other is logged.
func (s *Store) ShardLabels(ctx context.Context) ([]string, error) {
	names, err := s.shardScripts(ctx)
	if err != nil {
		return nil, err
	}

	paths := make(map[string]string, len(names))
	labels := make([]string, 0, len(names))
	for _, name := range names {
		label := ShardLabel(name)
		if first, dup := paths[label]; dup {
			s.opts.Logger.Printf("docnav: ignoring shard script %s: label %s already belongs to %s", name, label, first)
			continue
		}
		paths[label] = name
		labels = append(labels, label)
	}

	s.mu.Lock()
	s.paths = paths
	s.mu.Unlock()
	return labels, nil
}

func (s *Store) shardScripts(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range s.opts.Shards {
		names, err := s.src.Glob(ctx, pattern)
		if err != nil {
			return nil, fmt.Errorf("listing shards: %w", err)
		}
		for _, name := range names {
			if seen[name] || s.excluded(name) {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

// IsShard reports whether the script name is a search shard under the
// store's patterns.
func (s *Store) IsShard(name string) bool {
	if s.excluded(name) {
		return false
	}
	for _, pattern := range s.opts.Shards {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (s *Store) excluded(name string) bool {
	for _, pattern := range s.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// ShardLabel derives a shard label from its script name.
func ShardLabel(name string) string {
	return strings.TrimSuffix(path.Base(name), ".js")
}

// LoadShard reads and decodes the shard for label. Repeated calls return
// structurally equal shards.
func (s *Store) LoadShard(ctx context.Context, label string) (search.Shard, error) {
	name, ok := s.scriptFor(label)
	if !ok {
		// The shard may have appeared since the last listing.
		if _, err := s.ShardLabels(ctx); err != nil {
			return search.Shard{}, err
		}
		if name, ok = s.scriptFor(label); !ok {
			return search.Shard{}, fmt.Errorf("%s: %w", label, ErrShardNotFound)
		}
	}

	src, err := s.src.Read(ctx, name)
	if errors.Is(err, fs.ErrNotExist) {
		return search.Shard{}, fmt.Errorf("%s: %w", label, ErrShardNotFound)
	}
	if err != nil {
		return search.Shard{}, fmt.Errorf("reading shard %s: %w", label, err)
	}
	records, err := navdata.ParseSearchData(src)
	if err != nil {
		return search.Shard{}, fmt.Errorf("decoding shard %s: %w", label, err)
	}
	return search.NewShard(label, records), nil
}

func (s *Store) scriptFor(label string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.paths[label]
	return name, ok
}

// LoadNavTree reads navtreedata.js.
func (s *Store) LoadNavTree(ctx context.Context) ([]byte, error) {
	src, err := s.src.Read(ctx, NavTreeScript)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", NavTreeScript, err)
	}
	return src, nil
}

// LoadBranch reads and decodes the lazily loaded branch script for a
// pending tree node.
func (s *Store) LoadBranch(ctx context.Context, branch string) ([]navdata.NodeLiteral, error) {
	src, err := s.src.Read(ctx, branch+".js")
	if err != nil {
		return nil, fmt.Errorf("reading branch %s: %w", branch, err)
	}
	return navdata.ParseBranch(src)
}

// LoadNavIndexPage reads and decodes navtreeindex<n>.js.
func (s *Store) LoadNavIndexPage(ctx context.Context, n int) (map[string][]int, error) {
	name := NavIndexScript(n)
	src, err := s.src.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return navdata.ParseNavIndexPage(src)
}
