package navtree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ziadkadry99/docnav/internal/navdata"
)

var (
	// ErrMalformedTreeNode is returned when the tree payload is structurally
	// invalid. A corrupt tree is never partially built.
	ErrMalformedTreeNode = errors.New("malformed tree node")
	// ErrUnknownNode is returned for ids that do not name a loaded node.
	ErrUnknownNode = errors.New("unknown tree node")
	// ErrAnchorUnresolved is returned by the Locator when the index has no
	// entry for an anchor.
	ErrAnchorUnresolved = errors.New("anchor has no tree node")
)

// NodeID identifies a node by its position path from the root ("0",
// "0.10", "0.10.0"). The tree is static, so ids are stable for a session and
// survive re-rendering.
type NodeID string

// RootID is the id of the single root node.
const RootID NodeID = "0"

func (id NodeID) child(i int) NodeID {
	return NodeID(string(id) + "." + strconv.Itoa(i))
}

// Node is one entry in the navigation tree.
type Node struct {
	ID       NodeID
	Label    string
	Ref      string
	Children []*Node
	Expanded bool
	// Branch is the name of a not yet loaded script holding the children.
	Branch string

	parent *Node
}

// Tree holds the navigation hierarchy and its expand/select state. Like the
// search index it is owned by one session goroutine.
type Tree struct {
	root     *Node
	nodes    map[NodeID]*Node
	anchors  map[string]NodeID
	selected NodeID
}

// Build creates a tree from the decoded NAVTREE payload, which must hold
// exactly one root.
func Build(roots []navdata.NodeLiteral) (*Tree, error) {
	if len(roots) != 1 {
		return nil, fmt.Errorf("%w: payload has %d roots, want 1", ErrMalformedTreeNode, len(roots))
	}
	t := &Tree{
		nodes:   make(map[NodeID]*Node),
		anchors: make(map[string]NodeID),
	}
	t.root = t.attach(nil, RootID, roots[0])
	return t, nil
}

// Parse decodes navtreedata.js and builds the tree from it.
func Parse(src []byte) (*Tree, *navdata.NavTreeData, error) {
	data, err := navdata.ParseNavTree(src)
	if err != nil {
		var malformed *navdata.MalformedError
		if errors.As(err, &malformed) {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedTreeNode, err)
		}
		return nil, nil, err
	}
	t, err := Build(data.Roots)
	if err != nil {
		return nil, nil, err
	}
	return t, data, nil
}

func (t *Tree) attach(parent *Node, id NodeID, lit navdata.NodeLiteral) *Node {
	n := &Node{
		ID:     id,
		Label:  lit.Label,
		Ref:    navdata.CleanHref(lit.Ref),
		Branch: lit.Branch,
		parent: parent,
	}
	t.nodes[id] = n
	if n.Ref != "" {
		if _, taken := t.anchors[n.Ref]; !taken {
			t.anchors[n.Ref] = id
		}
	}
	for i, c := range lit.Children {
		n.Children = append(n.Children, t.attach(n, id.child(i), c))
	}
	return n
}

// Root returns the root node id.
func (t *Tree) Root() NodeID { return t.root.ID }

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Len returns the number of loaded nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Parent returns the parent of id; the root has none.
func (t *Tree) Parent(id NodeID) (NodeID, bool) {
	n, ok := t.nodes[id]
	if !ok || n.parent == nil {
		return "", false
	}
	return n.parent.ID, true
}

// Ancestors returns the ancestors of id, root first, excluding id itself.
func (t *Tree) Ancestors(id NodeID) []NodeID {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var chain []NodeID
	for p := n.parent; p != nil; p = p.parent {
		chain = append(chain, p.ID)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Expand expands id and every collapsed ancestor, so the expanded set stays
// closed under "parent of". Expanding an expanded node is a no-op.
func (t *Tree) Expand(id NodeID) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("expand %s: %w", id, ErrUnknownNode)
	}
	for ; n != nil; n = n.parent {
		n.Expanded = true
	}
	return nil
}

// Collapse collapses id together with its expanded descendants, so no
// expanded node is left under a collapsed one.
func (t *Tree) Collapse(id NodeID) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("collapse %s: %w", id, ErrUnknownNode)
	}
	collapse(n)
	return nil
}

func collapse(n *Node) {
	n.Expanded = false
	for _, c := range n.Children {
		if c.Expanded {
			collapse(c)
		}
	}
}

// Select marks id as the single selected node. The node does not have to be
// visible; scrolling it into view is the presentation layer's business.
func (t *Tree) Select(id NodeID) error {
	if _, ok := t.nodes[id]; !ok {
		return fmt.Errorf("select %s: %w", id, ErrUnknownNode)
	}
	t.selected = id
	return nil
}

// Selected returns the selected node, if any.
func (t *Tree) Selected() (NodeID, bool) {
	return t.selected, t.selected != ""
}

// FindByAnchor resolves a content reference to the node that links to it.
// Sub-anchors that have no node of their own resolve to nothing.
func (t *Tree) FindByAnchor(ref string) (NodeID, bool) {
	id, ok := t.anchors[navdata.CleanHref(ref)]
	return id, ok
}

// FindByPage resolves the page part of ref, ignoring any fragment.
func (t *Tree) FindByPage(ref string) (NodeID, bool) {
	page, _, _ := strings.Cut(navdata.CleanHref(ref), "#")
	id, ok := t.anchors[page]
	return id, ok
}

// ExpandedPath returns the expanded nodes in pre-order, so every node is
// preceded by its ancestors.
func (t *Tree) ExpandedPath() []NodeID {
	var out []NodeID
	var walk func(n *Node)
	walk = func(n *Node) {
		if !n.Expanded {
			return
		}
		out = append(out, n.ID)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}

// Graft attaches the children of a lazily loaded branch to the node waiting
// for it. Grafting a node that has no pending branch is a no-op.
func (t *Tree) Graft(id NodeID, children []navdata.NodeLiteral) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("graft %s: %w", id, ErrUnknownNode)
	}
	if n.Branch == "" {
		return nil
	}
	n.Branch = ""
	for i, c := range children {
		n.Children = append(n.Children, t.attach(n, id.child(i), c))
	}
	return nil
}

// Pending returns the branches that still have to be loaded, keyed by node.
func (t *Tree) Pending() map[NodeID]string {
	out := make(map[NodeID]string)
	for id, n := range t.nodes {
		if n.Branch != "" {
			out[id] = n.Branch
		}
	}
	return out
}

// NodeAt follows a child index path from the root. It stops at the deepest
// loaded node and reports whether the whole path was walked.
func (t *Tree) NodeAt(path []int) (NodeID, bool) {
	n := t.root
	for _, i := range path {
		if i < 0 || i >= len(n.Children) {
			return n.ID, false
		}
		n = n.Children[i]
	}
	return n.ID, true
}

// PendingOnPath returns the first node along path whose children are still
// an unloaded branch.
func (t *Tree) PendingOnPath(path []int) (NodeID, string, bool) {
	n := t.root
	for _, i := range path {
		if n.Branch != "" {
			return n.ID, n.Branch, true
		}
		if i < 0 || i >= len(n.Children) {
			return "", "", false
		}
		n = n.Children[i]
	}
	return "", "", false
}

// Walk visits every loaded node in pre-order until fn returns false.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var walk func(n *Node, depth int) bool
	walk = func(n *Node, depth int) bool {
		if !fn(n, depth) {
			return false
		}
		for _, c := range n.Children {
			if !walk(c, depth+1) {
				return false
			}
		}
		return true
	}
	walk(t.root, 0)
}
