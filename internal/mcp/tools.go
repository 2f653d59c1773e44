package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchDocsTool defines the search_docs MCP tool.
var searchDocsTool = mcp.NewTool("search_docs",
	mcp.WithDescription("Search the Doxygen symbol index by name prefix. Returns matching symbols, pages and groups with the page they live on."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Symbol name or prefix; several words must all appear in order"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 20)"),
	),
	mcp.WithString("kind",
		mcp.Description("Only return results of this kind"),
		mcp.Enum("page", "group", "file", "class", "namespace", "function", "variable",
			"typedef", "enum", "enumvalue", "define", "symbol"),
	),
)

// locateAnchorTool defines the locate_anchor MCP tool.
var locateAnchorTool = mcp.NewTool("locate_anchor",
	mcp.WithDescription("Show a page or anchor in the navigation tree. Expands and selects the matching node and returns its breadcrumb."),
	mcp.WithString("target_ref",
		mcp.Required(),
		mcp.Description("Page reference such as group__io.html#ga1f2e or index.html"),
	),
)

// getTreeTool defines the get_tree MCP tool.
var getTreeTool = mcp.NewTool("get_tree",
	mcp.WithDescription("Get the navigation tree outline with expansion and selection markers."),
	mcp.WithBoolean("all",
		mcp.Description("Include collapsed branches (default false: only what an expanded tree panel shows)"),
	),
)

// openNodeTool defines the open_node MCP tool.
var openNodeTool = mcp.NewTool("open_node",
	mcp.WithDescription("Click a navigation tree node by id. Returns the page it opens; nodes without a page toggle their expansion."),
	mcp.WithString("node_id",
		mcp.Required(),
		mcp.Description("Node id as printed by get_tree, for example 0.10.0"),
	),
)
