// Package panelsync keeps the navigation tree consistent with the page shown
// in the content panel, subject to the user's sync toggle.
package panelsync

import (
	"fmt"

	"github.com/ziadkadry99/docnav/internal/navdata"
	"github.com/ziadkadry99/docnav/internal/navtree"
)

// State is the synchronisation mode.
type State int

const (
	Synced State = iota
	Unsynced
)

func (s State) String() string {
	if s == Synced {
		return "synced"
	}
	return "unsynced"
}

// Labels are the toggle captions. Each names the action the control offers,
// so Enabled is shown while synced and offers to disable.
type Labels struct {
	Enabled  string
	Disabled string
}

// DefaultLabels returns the Doxygen captions.
func DefaultLabels() Labels {
	return Labels{Enabled: navdata.DefaultSyncOnMsg, Disabled: navdata.DefaultSyncOffMsg}
}

// Resolution reports what a content navigation did to the tree.
type Resolution int

const (
	// Ignored means sync is off and the tree was left alone.
	Ignored Resolution = iota
	// Unresolved means no loaded node matches the anchor.
	Unresolved
	// PageMatch means only the anchor's page matched (page fallback).
	PageMatch
	// Exact means the anchor's own node was expanded and selected.
	Exact
)

// Navigator is the content panel. Tree clicks are forwarded to it.
type Navigator interface {
	Navigate(ref string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ref string)

// Navigate calls f(ref).
func (f NavigatorFunc) Navigate(ref string) { f(ref) }

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithNavigator sets the content panel tree clicks navigate.
func WithNavigator(n Navigator) Option {
	return func(s *Synchronizer) { s.nav = n }
}

// WithPageFallback makes an unknown "page.html#sub" anchor sync to the
// "page.html" node instead of leaving the tree alone.
func WithPageFallback(on bool) Option {
	return func(s *Synchronizer) { s.pageFallback = on }
}

// Synchronizer is the two-state sync controller. All transitions are
// synchronous reactions to single events.
type Synchronizer struct {
	tree         *navtree.Tree
	nav          Navigator
	labels       Labels
	pageFallback bool

	state   State
	current string
}

// New creates a Synchronizer in the Synced state. Empty labels fall back to
// the Doxygen captions.
func New(tree *navtree.Tree, labels Labels, opts ...Option) *Synchronizer {
	def := DefaultLabels()
	if labels.Enabled == "" {
		labels.Enabled = def.Enabled
	}
	if labels.Disabled == "" {
		labels.Disabled = def.Disabled
	}
	s := &Synchronizer{tree: tree, labels: labels, state: Synced}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current mode.
func (s *Synchronizer) State() State { return s.state }

// Enabled reports whether the tree follows content navigation.
func (s *Synchronizer) Enabled() bool { return s.state == Synced }

// Label returns the caption for the action the toggle currently offers.
func (s *Synchronizer) Label() string {
	if s.state == Synced {
		return s.labels.Enabled
	}
	return s.labels.Disabled
}

// CurrentAnchor returns the reference shown in the content panel.
func (s *Synchronizer) CurrentAnchor() (string, bool) {
	return s.current, s.current != ""
}

// Toggle flips the mode. Turning sync back on immediately syncs the tree to
// the current anchor.
func (s *Synchronizer) Toggle() State {
	if s.state == Synced {
		s.state = Unsynced
		return s.state
	}
	s.state = Synced
	s.Resync()
	return s.state
}

// OnContentNavigate records ref as the current anchor and, while synced,
// expands and selects the node for it.
func (s *Synchronizer) OnContentNavigate(ref string) Resolution {
	s.current = navdata.CleanHref(ref)
	if s.state != Synced {
		return Ignored
	}
	return s.sync(s.current)
}

// Resync repeats the sync for the current anchor, typically after lazy
// branches were grafted. It does nothing while unsynced.
func (s *Synchronizer) Resync() Resolution {
	if s.state != Synced || s.current == "" {
		return Ignored
	}
	return s.sync(s.current)
}

func (s *Synchronizer) sync(ref string) Resolution {
	if id, ok := s.tree.FindByAnchor(ref); ok {
		s.reveal(id)
		return Exact
	}
	if s.pageFallback {
		if id, ok := s.tree.FindByPage(ref); ok {
			s.reveal(id)
			return PageMatch
		}
	}
	return Unresolved
}

func (s *Synchronizer) reveal(id navtree.NodeID) {
	// Both calls only fail for unknown ids and id came from the tree.
	_ = s.tree.Expand(id)
	_ = s.tree.Select(id)
}

// OnTreeClick handles a click on a tree node and returns the reference the
// content panel was sent to. A node without a target only toggles its
// expansion and returns "". Clicks navigate in both modes; while synced the
// clicked node is also expanded.
func (s *Synchronizer) OnTreeClick(id navtree.NodeID) (string, error) {
	n, ok := s.tree.Node(id)
	if !ok {
		return "", fmt.Errorf("tree click: %w", navtree.ErrUnknownNode)
	}
	if n.Ref == "" {
		if n.Expanded {
			return "", s.tree.Collapse(id)
		}
		return "", s.tree.Expand(id)
	}

	s.current = n.Ref
	if s.state == Synced {
		s.reveal(id)
	} else {
		_ = s.tree.Select(id)
	}
	if s.nav != nil {
		s.nav.Navigate(n.Ref)
	}
	return n.Ref, nil
}
