// Package session ties the search engine, the navigation tree and the panel
// synchroniser together for one browsing session.
//
// A Session is an actor: every event (keystroke, content navigation, tree
// click, toggle, shard arrival) runs as a closure on the session's own
// goroutine, strictly in arrival order. Shard, branch and index page loads are
// the only asynchronous work; they run on helper goroutines and post their
// continuation back onto the event loop, so the index and tree are only ever
// touched by one goroutine and need no locks.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ziadkadry99/docnav/internal/navdata"
	"github.com/ziadkadry99/docnav/internal/navtree"
	"github.com/ziadkadry99/docnav/internal/panelsync"
	"github.com/ziadkadry99/docnav/internal/search"
)

// ErrClosed is returned for events sent to a closed session.
var ErrClosed = errors.New("session closed")

// Loader is the shard store a session reads from. *docset.Store implements it.
type Loader interface {
	ShardLabels(ctx context.Context) ([]string, error)
	LoadShard(ctx context.Context, label string) (search.Shard, error)
	LoadNavTree(ctx context.Context) ([]byte, error)
	LoadBranch(ctx context.Context, branch string) ([]navdata.NodeLiteral, error)
	LoadNavIndexPage(ctx context.Context, n int) (map[string][]int, error)
}

// Options configures a session.
type Options struct {
	Normalizer search.Normalizer
	Router     search.Router
	// Labels override the toggle captions shipped in navtreedata.js.
	Labels       panelsync.Labels
	PageFallback bool
	Logger       *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// State is the navigation state exposed to the presentation layer.
type State struct {
	CurrentAnchor string           `json:"current_anchor"`
	SyncEnabled   bool             `json:"sync_enabled"`
	ExpandedPath  []navtree.NodeID `json:"expanded_path"`
	Selected      navtree.NodeID   `json:"selected,omitempty"`
	ToggleLabel   string           `json:"toggle_label"`
}

// Event types pushed to listeners.
const (
	EventResults = "results"
	EventState   = "state"
)

// Event is a change pushed to listeners: late search results once more
// shards arrive, or navigation state changed by an asynchronous branch load.
type Event struct {
	Type    string         `json:"type"`
	Results *search.Result `json:"results,omitempty"`
	State   *State         `json:"state,omitempty"`
}

// Listener receives events on the session goroutine and must not block.
type Listener func(Event)

// Session is one browsing session.
type Session struct {
	ID string

	loader Loader
	log    *log.Logger
	events chan func()
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	// Owned by the event loop.
	index     *search.Index
	engine    *search.Engine
	router    search.Router
	tree      *navtree.Tree
	syncer    *panelsync.Synchronizer
	locator   *navtree.Locator
	labels    []string
	known     map[string]bool
	loading   map[string]bool
	missing   map[string]bool
	branches  map[navtree.NodeID][]func(bool)
	query     string
	inflight  bool
	shown     search.Result
	locating  string
	listeners map[int]Listener
	nextID    int
	waiters   []chan struct{}
}

// New loads the navigation tree and starts a session. A malformed tree fails
// session creation; a missing shard listing only leaves search empty.
func New(ctx context.Context, loader Loader, opts Options) (*Session, error) {
	src, err := loader.LoadNavTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading navigation tree: %w", err)
	}
	tree, data, err := navtree.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("loading navigation tree: %w", err)
	}

	opts.Logger = opts.logger()
	if opts.Router == nil {
		opts.Router = search.AllShards
	}
	labels := opts.Labels
	if labels.Enabled == "" {
		labels.Enabled = data.SyncOnMsg
	}
	if labels.Disabled == "" {
		labels.Disabled = data.SyncOffMsg
	}

	shardLabels, err := loader.ShardLabels(ctx)
	if err != nil {
		opts.Logger.Printf("docnav: listing search shards: %v", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	idx := search.NewIndex(opts.Normalizer)
	s := &Session{
		ID:        uuid.New().String(),
		loader:    loader,
		log:       opts.Logger,
		events:    make(chan func(), 64),
		done:      make(chan struct{}),
		ctx:       runCtx,
		cancel:    cancel,
		index:     idx,
		engine:    search.NewEngine(idx),
		router:    opts.Router,
		tree:      tree,
		syncer:    panelsync.New(tree, labels, panelsync.WithPageFallback(opts.PageFallback)),
		locator:   navtree.NewLocator(data.Index, loader.LoadNavIndexPage),
		known:     make(map[string]bool),
		loading:   make(map[string]bool),
		missing:   make(map[string]bool),
		branches:  make(map[navtree.NodeID][]func(bool)),
		listeners: make(map[int]Listener),
	}
	for _, l := range shardLabels {
		s.addLabel(l)
	}
	go s.run()
	return s, nil
}

func (s *Session) run() {
	for {
		select {
		case fn := <-s.events:
			fn()
		case <-s.done:
			return
		}
	}
}

// do runs fn on the event loop and waits for it.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case s.events <- func() { fn(); close(finished) }:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn on the event loop without waiting. Used by load goroutines.
func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

// Close stops the event loop and cancels outstanding loads.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Subscribe registers a listener and returns a function removing it.
func (s *Session) Subscribe(l Listener) (cancel func()) {
	var id int
	if err := s.do(context.Background(), func() {
		id = s.nextID
		s.nextID++
		s.listeners[id] = l
	}); err != nil {
		return func() {}
	}
	return func() {
		_ = s.do(context.Background(), func() { delete(s.listeners, id) })
	}
}

func (s *Session) emit(ev Event) {
	for _, l := range s.listeners {
		l(ev)
	}
}

// State returns the current navigation state.
func (s *Session) State(ctx context.Context) (State, error) {
	var st State
	err := s.do(ctx, func() { st = s.state() })
	return st, err
}

func (s *Session) state() State {
	anchor, _ := s.syncer.CurrentAnchor()
	sel, _ := s.tree.Selected()
	return State{
		CurrentAnchor: anchor,
		SyncEnabled:   s.syncer.Enabled(),
		ExpandedPath:  s.tree.ExpandedPath(),
		Selected:      sel,
		ToggleLabel:   s.syncer.Label(),
	}
}

// Tree returns a snapshot of the navigation tree.
func (s *Session) Tree(ctx context.Context, visibleOnly bool) (*navtree.View, error) {
	var v *navtree.View
	err := s.do(ctx, func() { v = s.tree.Snapshot(visibleOnly) })
	return v, err
}

// WaitIdle blocks until no shard, branch or index page load is outstanding.
func (s *Session) WaitIdle(ctx context.Context) error {
	ready := make(chan struct{})
	if err := s.do(ctx, func() {
		s.waiters = append(s.waiters, ready)
		s.checkIdle()
	}); err != nil {
		return err
	}
	select {
	case <-ready:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) idle() bool {
	return len(s.loading) == 0 && len(s.branches) == 0 && s.locating == ""
}

func (s *Session) checkIdle() {
	if !s.idle() {
		return
	}
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
}
