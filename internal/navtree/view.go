package navtree

import (
	"fmt"
	"io"
	"strings"
)

// View is a read-only snapshot of a subtree, safe to hand to other
// goroutines and to encode as JSON.
type View struct {
	ID          NodeID  `json:"id"`
	Label       string  `json:"label"`
	Ref         string  `json:"target_ref,omitempty"`
	Expanded    bool    `json:"expanded"`
	Selected    bool    `json:"selected,omitempty"`
	HasChildren bool    `json:"has_children"`
	Children    []*View `json:"children,omitempty"`
}

// Snapshot copies the tree. With visibleOnly, children are included only
// under expanded nodes, which is what a tree panel renders.
func (t *Tree) Snapshot(visibleOnly bool) *View {
	var snap func(n *Node) *View
	snap = func(n *Node) *View {
		v := &View{
			ID:          n.ID,
			Label:       n.Label,
			Ref:         n.Ref,
			Expanded:    n.Expanded,
			Selected:    n.ID == t.selected,
			HasChildren: len(n.Children) > 0 || n.Branch != "",
		}
		if visibleOnly && !n.Expanded {
			return v
		}
		for _, c := range n.Children {
			v.Children = append(v.Children, snap(c))
		}
		return v
	}
	return snap(t.root)
}

// Print writes the view as an indented outline. Collapsed nodes with
// children are marked "+", expanded ones "-", and the selection "*".
func (v *View) Print(w io.Writer) error {
	return v.print(w, 0)
}

func (v *View) print(w io.Writer, depth int) error {
	marker := " "
	switch {
	case v.HasChildren && v.Expanded:
		marker = "-"
	case v.HasChildren:
		marker = "+"
	}
	sel := " "
	if v.Selected {
		sel = "*"
	}
	line := fmt.Sprintf("%s%s%s %s", strings.Repeat("  ", depth), marker, sel, v.Label)
	if v.Ref != "" {
		line += "  (" + v.Ref + ")"
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range v.Children {
		if err := c.print(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
