package navdata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Names of the variables navtreedata.js declares.
const (
	VarNavTree      = "NAVTREE"
	VarNavTreeIndex = "NAVTREEINDEX"
	VarSyncOn       = "SYNCONMSG"
	VarSyncOff      = "SYNCOFFMSG"
)

// Default toggle labels, used when navtreedata.js does not declare them.
const (
	DefaultSyncOnMsg  = "click to disable panel synchronisation"
	DefaultSyncOffMsg = "click to enable panel synchronisation"
)

// NodeLiteral is one `[label, href|null, children|null|"branch"]` triple.
type NodeLiteral struct {
	Label    string
	Ref      string // empty when the node has no target
	Children []NodeLiteral
	// Branch names a script (`<Branch>.js`) holding the children; set only
	// when the children slot is a string.
	Branch string
}

// MalformedError reports a structurally invalid tree literal.
type MalformedError struct {
	Path   []int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed tree node at %v: %s", e.Path, e.Reason)
}

// UnmarshalJSON decodes the triple form.
func (n *NodeLiteral) UnmarshalJSON(data []byte) error {
	lit, err := decodeNode(data, nil)
	if err != nil {
		return err
	}
	*n = lit
	return nil
}

func decodeNode(data []byte, path []int) (NodeLiteral, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return NodeLiteral{}, &MalformedError{Path: path, Reason: "node is not an array"}
	}
	if len(parts) != 3 {
		return NodeLiteral{}, &MalformedError{Path: path, Reason: fmt.Sprintf("node has %d fields, want 3", len(parts))}
	}

	var node NodeLiteral
	if err := json.Unmarshal(parts[0], &node.Label); err != nil {
		return NodeLiteral{}, &MalformedError{Path: path, Reason: "label is not a string"}
	}

	var ref *string
	if err := json.Unmarshal(parts[1], &ref); err != nil {
		return NodeLiteral{}, &MalformedError{Path: path, Reason: "target is neither a string nor null"}
	}
	if ref != nil {
		node.Ref = *ref
	}

	switch kind := firstByte(parts[2]); kind {
	case 'n':
		// Leaf.
	case '"':
		if err := json.Unmarshal(parts[2], &node.Branch); err != nil {
			return NodeLiteral{}, &MalformedError{Path: path, Reason: "branch name is not a string"}
		}
		if node.Branch == "" {
			return NodeLiteral{}, &MalformedError{Path: path, Reason: "empty branch name"}
		}
	case '[':
		children, err := decodeNodes(parts[2], path)
		if err != nil {
			return NodeLiteral{}, err
		}
		node.Children = children
	default:
		return NodeLiteral{}, &MalformedError{Path: path, Reason: "children must be null, a branch name or an array"}
	}
	return node, nil
}

func decodeNodes(data []byte, parent []int) ([]NodeLiteral, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedError{Path: parent, Reason: "children is not an array"}
	}
	nodes := make([]NodeLiteral, 0, len(raw))
	for i, r := range raw {
		path := append(append([]int(nil), parent...), i)
		n, err := decodeNode(r, path)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func firstByte(data json.RawMessage) byte {
	for _, c := range data {
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return c
		}
	}
	return 0
}

// NavTreeData is the decoded navtreedata.js.
type NavTreeData struct {
	Roots []NodeLiteral
	// Index holds the first href of each navtreeindexN.js page, in page order.
	Index      []string
	SyncOnMsg  string
	SyncOffMsg string
}

// ParseNavTree decodes navtreedata.js. NAVTREE is required; the index and
// the toggle labels fall back to empty / default values.
func ParseNavTree(src []byte) (*NavTreeData, error) {
	vars, _, err := Vars(src)
	if err != nil {
		return nil, fmt.Errorf("reading navtree data: %w", err)
	}

	rawTree, ok := vars[VarNavTree]
	if !ok {
		return nil, fmt.Errorf("%s: %w", VarNavTree, ErrVarNotFound)
	}
	roots, err := decodeNodes(rawTree, nil)
	if err != nil {
		return nil, err
	}

	data := &NavTreeData{
		Roots:      roots,
		SyncOnMsg:  DefaultSyncOnMsg,
		SyncOffMsg: DefaultSyncOffMsg,
	}
	if raw, ok := vars[VarNavTreeIndex]; ok {
		if err := json.Unmarshal(raw, &data.Index); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", VarNavTreeIndex, err)
		}
	}
	if raw, ok := vars[VarSyncOn]; ok {
		if err := json.Unmarshal(raw, &data.SyncOnMsg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", VarSyncOn, err)
		}
	}
	if raw, ok := vars[VarSyncOff]; ok {
		if err := json.Unmarshal(raw, &data.SyncOffMsg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", VarSyncOff, err)
		}
	}
	return data, nil
}

// ParseBranch decodes a lazily loaded branch script (`var name = [ ... ];`).
func ParseBranch(src []byte) ([]NodeLiteral, error) {
	name, raw, err := FirstVar(src)
	if err != nil {
		return nil, fmt.Errorf("scanning branch: %w", err)
	}
	nodes, err := decodeNodes(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("branch %s: %w", name, err)
	}
	return nodes, nil
}

// ParseNavIndexPage decodes a navtreeindexN.js page: href -> child index path.
func ParseNavIndexPage(src []byte) (map[string][]int, error) {
	name, raw, err := FirstVar(src)
	if err != nil {
		return nil, fmt.Errorf("scanning navtree index page: %w", err)
	}
	var page map[string][]int
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return page, nil
}

// CleanHref strips the relative prefixes search shards carry ("../") so
// search targets and tree targets compare equal.
func CleanHref(href string) string {
	for {
		switch {
		case strings.HasPrefix(href, "../"):
			href = href[3:]
		case strings.HasPrefix(href, "./"):
			href = href[2:]
		default:
			return href
		}
	}
}
