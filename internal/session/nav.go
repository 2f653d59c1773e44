package session

import (
	"context"
	"errors"

	"github.com/ziadkadry99/docnav/internal/navdata"
	"github.com/ziadkadry99/docnav/internal/navtree"
	"github.com/ziadkadry99/docnav/internal/panelsync"
)

// OnContentNavigate reports that the content panel now shows ref. While sync
// is on, the matching node is expanded and selected. Anchors that live in a
// branch not loaded yet are located through NAVTREEINDEX in the background;
// the tree catches up with a pushed state event if ref is still current.
func (s *Session) OnContentNavigate(ctx context.Context, ref string) (State, error) {
	var st State
	err := s.do(ctx, func() {
		switch s.syncer.OnContentNavigate(ref) {
		case panelsync.Unresolved, panelsync.PageMatch:
			s.locate(navdata.CleanHref(ref))
		}
		s.fillExpanded()
		st = s.state()
	})
	return st, err
}

// OnTreeClick handles a click on node id and returns the reference the
// content panel should show ("" for nodes without a target).
func (s *Session) OnTreeClick(ctx context.Context, id navtree.NodeID) (string, State, error) {
	var (
		ref      string
		st       State
		clickErr error
	)
	err := s.do(ctx, func() {
		ref, clickErr = s.syncer.OnTreeClick(id)
		if clickErr != nil {
			return
		}
		s.fillExpanded()
		st = s.state()
	})
	if err != nil {
		return "", State{}, err
	}
	return ref, st, clickErr
}

// ToggleSync flips the sync mode. Turning it back on catches the tree up
// with the current anchor.
func (s *Session) ToggleSync(ctx context.Context) (State, error) {
	var st State
	err := s.do(ctx, func() {
		if s.syncer.Toggle() == panelsync.Synced {
			if cur, ok := s.syncer.CurrentAnchor(); ok {
				if _, found := s.tree.FindByAnchor(cur); !found {
					s.locate(cur)
				}
			}
		}
		s.fillExpanded()
		st = s.state()
	})
	return st, err
}

func (s *Session) emitState() {
	st := s.state()
	s.emit(Event{Type: EventState, State: &st})
}

// locate resolves ref through the navigation index and grafts the branches
// on its path one by one. A newer locate supersedes an older one.
func (s *Session) locate(ref string) {
	if s.locating == ref {
		return
	}
	s.locating = ref
	go func() {
		path, err := s.locator.Path(s.ctx, ref)
		s.post(func() { s.located(ref, path, err) })
	}()
}

func (s *Session) located(ref string, path []int, err error) {
	if s.locating != ref {
		return
	}
	if err != nil {
		s.locating = ""
		if !errors.Is(err, navtree.ErrAnchorUnresolved) && s.ctx.Err() == nil {
			s.log.Printf("docnav: session %s: %v", s.ID, err)
		}
		s.checkIdle()
		return
	}
	s.advance(ref, path)
}

func (s *Session) advance(ref string, path []int) {
	id, branch, ok := s.tree.PendingOnPath(path)
	if !ok {
		s.locating = ""
		if cur, _ := s.syncer.CurrentAnchor(); cur == ref && s.syncer.Resync() != panelsync.Ignored {
			s.fillExpanded()
			s.emitState()
		}
		s.checkIdle()
		return
	}
	s.loadBranch(id, branch, func(loaded bool) {
		if s.locating != ref {
			return
		}
		if !loaded {
			s.locating = ""
			return
		}
		s.advance(ref, path)
	})
}

// fillExpanded loads the lazy branches of expanded nodes.
func (s *Session) fillExpanded() {
	for id, branch := range s.tree.Pending() {
		n, _ := s.tree.Node(id)
		if !n.Expanded {
			continue
		}
		s.loadBranch(id, branch, func(loaded bool) {
			if loaded {
				s.emitState()
			}
		})
	}
}

// loadBranch fetches a lazy branch and grafts it, then calls then on the
// event loop. Concurrent requests for one node share a single load.
func (s *Session) loadBranch(id navtree.NodeID, branch string, then func(loaded bool)) {
	if waiting, ok := s.branches[id]; ok {
		s.branches[id] = append(waiting, then)
		return
	}
	s.branches[id] = []func(bool){then}
	go func() {
		children, err := s.loader.LoadBranch(s.ctx, branch)
		s.post(func() { s.branchLoaded(id, branch, children, err) })
	}()
}

func (s *Session) branchLoaded(id navtree.NodeID, branch string, children []navdata.NodeLiteral, err error) {
	callbacks := s.branches[id]
	delete(s.branches, id)
	defer s.checkIdle()

	loaded := err == nil
	if err != nil {
		if s.ctx.Err() == nil {
			s.log.Printf("docnav: session %s: loading branch %s: %v", s.ID, branch, err)
		}
	} else if err := s.tree.Graft(id, children); err != nil {
		s.log.Printf("docnav: session %s: grafting branch %s: %v", s.ID, branch, err)
		loaded = false
	}
	for _, cb := range callbacks {
		cb(loaded)
	}
}
