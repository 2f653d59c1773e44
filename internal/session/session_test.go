package session

import (
	"bytes"
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docnav/internal/docset"
	"github.com/ziadkadry99/docnav/internal/navdata"
	"github.com/ziadkadry99/docnav/internal/navtree"
	"github.com/ziadkadry99/docnav/internal/search"
)

const fixtureDir = "../../testdata/doxygen"

// gatedLoader holds shard loads until their gate is opened.
type gatedLoader struct {
	*docset.Store
	extra []string

	mu    sync.Mutex
	gates map[string]chan struct{}
	loads map[string]int
}

func newGatedLoader(store *docset.Store) *gatedLoader {
	return &gatedLoader{Store: store, gates: map[string]chan struct{}{}, loads: map[string]int{}}
}

func (g *gatedLoader) gate(labels ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, l := range labels {
		g.gates[l] = make(chan struct{})
	}
}

func (g *gatedLoader) open(label string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	close(g.gates[label])
	delete(g.gates, label)
}

func (g *gatedLoader) loadCount(label string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loads[label]
}

func (g *gatedLoader) ShardLabels(ctx context.Context) ([]string, error) {
	labels, err := g.Store.ShardLabels(ctx)
	return append(labels, g.extra...), err
}

func (g *gatedLoader) LoadShard(ctx context.Context, label string) (search.Shard, error) {
	g.mu.Lock()
	gate := g.gates[label]
	g.loads[label]++
	g.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return search.Shard{}, ctx.Err()
		}
	}
	return g.Store.LoadShard(ctx, label)
}

func fixtureLoader() *gatedLoader {
	return newGatedLoader(docset.NewStore(docset.DirSource(fixtureDir), docset.Options{}))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newSession(t *testing.T, loader Loader, opts Options) *Session {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(&bytes.Buffer{}, "", 0)
	}
	s, err := New(testContext(t), loader, opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// collect subscribes to s and returns a function reading the events seen so far.
func collect(t *testing.T, s *Session) func() []Event {
	t.Helper()
	var (
		mu     sync.Mutex
		events []Event
	)
	s.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	return func() []Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]Event(nil), events...)
	}
}

func names(res search.Result) []string {
	out := make([]string, len(res.Matches))
	for i, m := range res.Matches {
		out[i] = m.DisplayName
	}
	return out
}

func TestSearchLoadsShardsThenSettles(t *testing.T) {
	ctx := testContext(t)
	s := newSession(t, fixtureLoader(), Options{})

	first, err := s.Search(ctx, "pip_wait")
	require.NoError(t, err)
	assert.True(t, first.Partial)

	require.NoError(t, s.WaitIdle(ctx))
	got, err := s.Results(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Seq, got.Seq)
	assert.False(t, got.Partial)
	assert.Equal(t, []string{
		"pip_wait", "pip_wait", "pip_wait",
		"pip_wait_any", "pip_wait_any", "pip_wait_any",
	}, names(got))
	assert.Equal(t, "group__PiP-3-wait.html#gae04520bc29d3ec85d7090f7e645de27d", got.Matches[0].TargetRef)

	// Everything is loaded now, so the next query completes synchronously.
	again, err := s.Search(ctx, "pip_barrier")
	require.NoError(t, err)
	assert.False(t, again.Partial)
	assert.NotEmpty(t, again.Matches)
}

func TestEmptyQueryLoadsNothing(t *testing.T) {
	ctx := testContext(t)
	loader := fixtureLoader()
	s := newSession(t, loader, Options{})

	res, err := s.Search(ctx, "  ")
	require.NoError(t, err)
	assert.False(t, res.Partial)
	assert.Empty(t, res.Matches)
	require.NoError(t, s.WaitIdle(ctx))
	assert.Zero(t, loader.loadCount("all_1"))
}

func TestSupersededQueryNeverOverwritesNewer(t *testing.T) {
	ctx := testContext(t)
	loader := fixtureLoader()
	loader.gate("all_1", "functions_70")
	s := newSession(t, loader, Options{})
	events := collect(t, s)

	old, err := s.Search(ctx, "pip_wait")
	require.NoError(t, err)
	newer, err := s.Search(ctx, "pip_init")
	require.NoError(t, err)
	require.Greater(t, newer.Seq, old.Seq)

	loader.open("functions_70")
	loader.open("all_1")
	require.NoError(t, s.WaitIdle(ctx))

	pushed := events()
	require.NotEmpty(t, pushed)
	for _, ev := range pushed {
		require.Equal(t, EventResults, ev.Type)
		assert.Equal(t, newer.Seq, ev.Results.Seq)
		assert.Equal(t, "pip_init", ev.Results.Query)
	}

	shown, err := s.Results(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.Seq, shown.Seq)
	assert.False(t, shown.Partial)
	assert.Equal(t, "pip_init", shown.Matches[0].DisplayName)

	// A late result carrying the old sequence number is refused.
	var accepted bool
	require.NoError(t, s.do(ctx, func() { accepted = s.show(search.Result{Seq: old.Seq, Query: old.Query}) }))
	assert.False(t, accepted)
	shown, _ = s.Results(ctx)
	assert.Equal(t, "pip_init", shown.Query)

	// Each shard was loaded once despite two queries needing it.
	assert.Equal(t, 1, loader.loadCount("all_1"))
	assert.Equal(t, 1, loader.loadCount("functions_70"))
}

func TestPartialResultsWhileShardsArrive(t *testing.T) {
	ctx := testContext(t)
	loader := fixtureLoader()
	loader.gate("all_1")
	s := newSession(t, loader, Options{})
	events := collect(t, s)

	_, err := s.Search(ctx, "pip_wait")
	require.NoError(t, err)

	// functions_70 is not gated; wait for its result to be pushed.
	require.Eventually(t, func() bool { return len(events()) > 0 }, 2*time.Second, 10*time.Millisecond)
	partial := events()[0].Results
	assert.True(t, partial.Partial)
	assert.Equal(t, []string{"pip_wait", "pip_wait_any"}, names(*partial))

	loader.open("all_1")
	require.NoError(t, s.WaitIdle(ctx))
	final, _ := s.Results(ctx)
	assert.False(t, final.Partial)
	assert.Len(t, final.Matches, 6)
}

func TestLeadingCharRouting(t *testing.T) {
	ctx := testContext(t)
	loader := fixtureLoader()
	s := newSession(t, loader, Options{Router: search.LeadingCharShards})

	_, err := s.Search(ctx, "x")
	require.NoError(t, err)
	require.NoError(t, s.WaitIdle(ctx))
	assert.Equal(t, 1, loader.loadCount("all_1"))
	assert.Zero(t, loader.loadCount("functions_70"))
}

func TestMissingShardIsLoggedAndSkipped(t *testing.T) {
	ctx := testContext(t)
	var logs bytes.Buffer
	loader := fixtureLoader()
	loader.extra = []string{"all_9"}
	s := newSession(t, loader, Options{Logger: log.New(&logs, "", 0)})

	_, err := s.Search(ctx, "pip_init")
	require.NoError(t, err)
	require.NoError(t, s.WaitIdle(ctx))

	res, _ := s.Results(ctx)
	assert.False(t, res.Partial)
	assert.NotEmpty(t, res.Matches)
	require.NoError(t, s.do(ctx, func() {}))
	assert.Contains(t, logs.String(), "shard not found")
}

func TestOfferShardRegistersLateArrival(t *testing.T) {
	ctx := testContext(t)
	all1, err := os.ReadFile(filepath.Join(fixtureDir, "search", "all_1.js"))
	require.NoError(t, err)
	nav, err := os.ReadFile(filepath.Join(fixtureDir, "navtreedata.js"))
	require.NoError(t, err)
	fsys := fstest.MapFS{
		"navtreedata.js":  {Data: nav},
		"search/all_1.js": {Data: all1},
	}
	s := newSession(t, docset.NewStore(docset.NewFSSource(fsys), docset.Options{}), Options{})
	events := collect(t, s)

	_, err = s.Search(ctx, "pip_wait")
	require.NoError(t, err)
	require.NoError(t, s.WaitIdle(ctx))
	res, _ := s.Results(ctx)
	assert.Len(t, res.Matches, 4)

	fn70, err := os.ReadFile(filepath.Join(fixtureDir, "search", "functions_70.js"))
	require.NoError(t, err)
	fsys["search/functions_70.js"] = &fstest.MapFile{Data: fn70}
	require.NoError(t, s.OfferShard(ctx, "functions_70"))
	require.NoError(t, s.WaitIdle(ctx))

	res, _ = s.Results(ctx)
	assert.Len(t, res.Matches, 6)
	assert.False(t, res.Partial)
	last := events()[len(events())-1]
	assert.Len(t, last.Results.Matches, 6)
}

func TestNavigateSyncsTree(t *testing.T) {
	ctx := testContext(t)
	s := newSession(t, fixtureLoader(), Options{})

	st, err := s.OnContentNavigate(ctx, "index.html#autotoc_md13")
	require.NoError(t, err)
	assert.Equal(t, navtree.NodeID("0.4.1"), st.Selected)
	assert.Equal(t, []navtree.NodeID{"0", "0.4", "0.4.1"}, st.ExpandedPath)
	assert.True(t, st.SyncEnabled)
	assert.Equal(t, navdata.DefaultSyncOnMsg, st.ToggleLabel)
	assert.Equal(t, "index.html#autotoc_md13", st.CurrentAnchor)
}

func TestNavigateIntoLazyBranch(t *testing.T) {
	ctx := testContext(t)
	s := newSession(t, fixtureLoader(), Options{})
	events := collect(t, s)
	ref := "../group__PiP-0-init-fin.html#gad4e0db6c69792b3fa014e3310892a0eb"

	st, err := s.OnContentNavigate(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, st.Selected)

	require.NoError(t, s.WaitIdle(ctx))
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, navtree.NodeID("0.10.0.0"), st.Selected)
	assert.Equal(t, []navtree.NodeID{"0", "0.10", "0.10.0", "0.10.0.0"}, st.ExpandedPath)

	var sawState bool
	for _, ev := range events() {
		sawState = sawState || ev.Type == EventState
	}
	assert.True(t, sawState)
}

func TestUnsyncedNavigationThenReenable(t *testing.T) {
	ctx := testContext(t)
	s := newSession(t, fixtureLoader(), Options{})

	st, err := s.ToggleSync(ctx)
	require.NoError(t, err)
	assert.False(t, st.SyncEnabled)
	assert.Equal(t, navdata.DefaultSyncOffMsg, st.ToggleLabel)

	st, err = s.OnContentNavigate(ctx, "group__PiP-0-init-fin.html#gad4e0db6c69792b3fa014e3310892a0eb")
	require.NoError(t, err)
	require.NoError(t, s.WaitIdle(ctx))
	st, _ = s.State(ctx)
	assert.Empty(t, st.Selected)
	assert.Empty(t, st.ExpandedPath)

	st, err = s.ToggleSync(ctx)
	require.NoError(t, err)
	assert.True(t, st.SyncEnabled)
	require.NoError(t, s.WaitIdle(ctx))
	st, _ = s.State(ctx)
	assert.Equal(t, navtree.NodeID("0.10.0.0"), st.Selected)
}

func TestUnresolvedAnchorLeavesTreeAlone(t *testing.T) {
	ctx := testContext(t)
	s := newSession(t, fixtureLoader(), Options{})
	_, err := s.OnContentNavigate(ctx, "index.html#autotoc_md5")
	require.NoError(t, err)

	st, err := s.OnContentNavigate(ctx, "index.html#not_in_tree")
	require.NoError(t, err)
	require.NoError(t, s.WaitIdle(ctx))
	after, _ := s.State(ctx)
	assert.Equal(t, navtree.NodeID("0.1"), st.Selected)
	assert.Equal(t, st.Selected, after.Selected)
	assert.Equal(t, "index.html#not_in_tree", after.CurrentAnchor)
}

func TestTreeClickLoadsExpandedBranch(t *testing.T) {
	ctx := testContext(t)
	s := newSession(t, fixtureLoader(), Options{})

	ref, st, err := s.OnTreeClick(ctx, "0.10")
	require.NoError(t, err)
	assert.Equal(t, "modules.html", ref)
	assert.Equal(t, "modules.html", st.CurrentAnchor)

	require.NoError(t, s.WaitIdle(ctx))
	view, err := s.Tree(ctx, true)
	require.NoError(t, err)
	assert.Len(t, view.Children[10].Children, 8)

	_, _, err = s.OnTreeClick(ctx, "0.42")
	assert.ErrorIs(t, err, navtree.ErrUnknownNode)
}

func TestMalformedTreeFailsSession(t *testing.T) {
	fsys := fstest.MapFS{
		"navtreedata.js": {Data: []byte(`var NAVTREE = [ [ "a", null, null ], [ "b", null, null ] ];`)},
	}
	_, err := New(context.Background(), docset.NewStore(docset.NewFSSource(fsys), docset.Options{}), Options{})
	assert.ErrorIs(t, err, navtree.ErrMalformedTreeNode)

	_, err = New(context.Background(), docset.NewStore(docset.NewFSSource(fstest.MapFS{}), docset.Options{}), Options{})
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestClosedSession(t *testing.T) {
	s := newSession(t, fixtureLoader(), Options{})
	s.Close()
	s.Close()

	_, err := s.Search(context.Background(), "pip")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.State(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManagerKeepsSessionsIndependent(t *testing.T) {
	ctx := testContext(t)
	m := NewManager(fixtureLoader(), Options{Logger: log.New(&bytes.Buffer{}, "", 0)})
	t.Cleanup(m.Close)

	a, err := m.Create(ctx)
	require.NoError(t, err)
	b, err := m.Create(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, m.Len())

	_, err = a.OnContentNavigate(ctx, "index.html#autotoc_md13")
	require.NoError(t, err)
	st, err := b.State(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Selected)

	got, ok := m.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.True(t, m.Delete(a.ID))
	assert.False(t, m.Delete(a.ID))
	_, ok = m.Get(a.ID)
	assert.False(t, ok)
	_, err = a.State(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, []string{b.ID}, m.IDs())
}
