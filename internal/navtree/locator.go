package navtree

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ziadkadry99/docnav/internal/navdata"
)

// PageLoader fetches one navtreeindexN page.
type PageLoader func(ctx context.Context, n int) (map[string][]int, error)

// Locator maps content references to child index paths using the paged
// NAVTREEINDEX. It lets a session find nodes that live in branches it has not
// grafted yet. Loaded pages are cached; a Locator is safe for concurrent use
// because lookups run off the session goroutine.
type Locator struct {
	firsts []string
	load   PageLoader

	mu    sync.Mutex
	pages map[int]map[string][]int
}

// NewLocator creates a locator over the first keys of each index page.
func NewLocator(firsts []string, load PageLoader) *Locator {
	return &Locator{
		firsts: firsts,
		load:   load,
		pages:  make(map[int]map[string][]int),
	}
}

// PageFor returns the index page that would hold ref: the last page whose
// first key sorts at or before it, or page 0.
func (l *Locator) PageFor(ref string) int {
	// sort.Search finds the first page whose first key is past ref.
	i := sort.Search(len(l.firsts), func(i int) bool { return l.firsts[i] > ref })
	if i == 0 {
		return 0
	}
	return i - 1
}

// Path returns the child index path from the root for ref.
func (l *Locator) Path(ctx context.Context, ref string) ([]int, error) {
	if len(l.firsts) == 0 || l.load == nil {
		return nil, fmt.Errorf("locate %s: %w", ref, ErrAnchorUnresolved)
	}
	ref = navdata.CleanHref(ref)
	n := l.PageFor(ref)

	page, err := l.page(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", ref, err)
	}
	path, ok := page[ref]
	if !ok {
		return nil, fmt.Errorf("locate %s: %w", ref, ErrAnchorUnresolved)
	}
	return append([]int(nil), path...), nil
}

func (l *Locator) page(ctx context.Context, n int) (map[string][]int, error) {
	l.mu.Lock()
	page, ok := l.pages[n]
	l.mu.Unlock()
	if ok {
		return page, nil
	}

	page, err := l.load(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("loading index page %d: %w", n, err)
	}
	l.mu.Lock()
	l.pages[n] = page
	l.mu.Unlock()
	return page, nil
}
