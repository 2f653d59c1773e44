package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/docnav/internal/session"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes doc set search and navigation
// tools. Every tool call acts on one navigation session, so locating an
// anchor and then printing the tree shows the synced state.
type Server struct {
	sess *session.Session
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server over sess.
func NewServer(sess *session.Session) *Server {
	s := &Server{sess: sess}

	s.mcp = server.NewMCPServer(
		"docnav",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocsTool, s.handleSearchDocs)
	s.mcp.AddTool(locateAnchorTool, s.handleLocateAnchor)
	s.mcp.AddTool(getTreeTool, s.handleGetTree)
	s.mcp.AddTool(openNodeTool, s.handleOpenNode)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
