package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/docnav/internal/navdata"
	"github.com/ziadkadry99/docnav/internal/navtree"
	"github.com/ziadkadry99/docnav/internal/search"
	"github.com/ziadkadry99/docnav/internal/session"
)

// handleSearchDocs runs a query and waits for every shard it needs.
func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	kind := search.Kind(request.GetString("kind", ""))

	if _, err := s.sess.Search(ctx, query); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if err := s.sess.WaitIdle(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	res, err := s.sess.Results(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	var matches []search.Match
	for _, m := range res.Matches {
		if kind != "" && m.Kind != kind {
			continue
		}
		matches = append(matches, m)
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No results for %q.", query)), nil
	}

	return mcp.NewToolResultText(formatMatches(matches, limit)), nil
}

// handleLocateAnchor syncs the tree to a reference and reports where it landed.
func (s *Server) handleLocateAnchor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("target_ref")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: target_ref"), nil
	}

	if _, err := s.sess.OnContentNavigate(ctx, ref); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("navigate failed: %v", err)), nil
	}
	if err := s.sess.WaitIdle(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("navigate failed: %v", err)), nil
	}
	st, err := s.sess.State(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("navigate failed: %v", err)), nil
	}
	if !st.SyncEnabled {
		return mcp.NewToolResultText(fmt.Sprintf("Synchronisation is off; %s was recorded but the tree was not moved.", ref)), nil
	}
	if st.Selected == "" {
		return mcp.NewToolResultText(fmt.Sprintf("%s is not in the navigation tree.", ref)), nil
	}

	view, err := s.sess.Tree(ctx, false)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading tree: %v", err)), nil
	}
	// An unresolved anchor leaves the previous selection in place.
	crumbs := breadcrumb(view, st.Selected)
	clean := navdata.CleanHref(ref)
	page, _, _ := strings.Cut(clean, "#")
	if len(crumbs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s is not in the navigation tree.", ref)), nil
	}
	sel := crumbs[len(crumbs)-1]
	if sel.Ref != clean && sel.Ref != page {
		return mcp.NewToolResultText(fmt.Sprintf("%s is not in the navigation tree.", ref)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Node: %s\n", sel.ID)
	if sel.Ref != clean {
		fmt.Fprintf(&sb, "Page: %s (closest node for %s)\n", sel.Ref, ref)
	}
	labels := make([]string, len(crumbs))
	for i, c := range crumbs {
		labels[i] = c.Label
	}
	fmt.Fprintf(&sb, "Path: %s\n", strings.Join(labels, " > "))
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetTree prints the tree outline.
func (s *Server) handleGetTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all := request.GetBool("all", false)
	view, err := s.sess.Tree(ctx, !all)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading tree: %v", err)), nil
	}
	var sb strings.Builder
	writeOutline(&sb, view, 0)
	return mcp.NewToolResultText(sb.String()), nil
}

// handleOpenNode clicks a tree node.
func (s *Server) handleOpenNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: node_id"), nil
	}

	ref, _, err := s.sess.OnTreeClick(ctx, navtree.NodeID(id))
	if errors.Is(err, navtree.ErrUnknownNode) {
		return mcp.NewToolResultError(fmt.Sprintf("no node %q in the loaded tree; call get_tree to list node ids", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open failed: %v", err)), nil
	}
	if ref == "" {
		// Expanding may have started a branch load.
		if err := s.sess.WaitIdle(ctx); err != nil && !errors.Is(err, session.ErrClosed) {
			return mcp.NewToolResultError(fmt.Sprintf("open failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Node %s has no page; its expansion was toggled.", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Opened %s", ref)), nil
}

// formatMatches renders results for AI agent consumption.
func formatMatches(matches []search.Match, limit int) string {
	var sb strings.Builder
	shown := matches
	if len(shown) > limit {
		shown = shown[:limit]
	}
	fmt.Fprintf(&sb, "Found %d result(s)", len(matches))
	if len(shown) < len(matches) {
		fmt.Fprintf(&sb, ", showing %d", len(shown))
	}
	sb.WriteString(":\n")

	for _, m := range shown {
		fmt.Fprintf(&sb, "\n%s [%s]\n", m.DisplayName, m.Kind)
		fmt.Fprintf(&sb, "  Ref: %s\n", m.TargetRef)
		if m.Context != "" {
			fmt.Fprintf(&sb, "  In: %s\n", m.Context)
		}
	}
	return sb.String()
}

// breadcrumb returns the views from the root down to id.
func breadcrumb(v *navtree.View, id navtree.NodeID) []*navtree.View {
	if v == nil {
		return nil
	}
	if v.ID == id {
		return []*navtree.View{v}
	}
	for _, c := range v.Children {
		if path := breadcrumb(c, id); path != nil {
			return append([]*navtree.View{v}, path...)
		}
	}
	return nil
}

func writeOutline(sb *strings.Builder, v *navtree.View, depth int) {
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
	fmt.Fprintf(sb, "%s%s%s [%s] %s", strings.Repeat("  ", depth), marker, sel, v.ID, v.Label)
	if v.Ref != "" {
		fmt.Fprintf(sb, "  (%s)", v.Ref)
	}
	sb.WriteString("\n")
	for _, c := range v.Children {
		writeOutline(sb, c, depth+1)
	}
}
