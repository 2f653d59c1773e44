package mcp

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docnav/internal/docset"
	"github.com/ziadkadry99/docnav/internal/session"
)

const fixtureDir = "../../testdata/doxygen"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store := docset.NewStore(docset.DirSource(fixtureDir), docset.Options{})
	sess, err := session.New(ctx, store, session.Options{Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return NewServer(sess)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(testContext(t), req)
	require.NoError(t, err)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "unexpected content type %T", result.Content[0])
	return tc.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"search_docs", searchDocsTool, "search_docs"},
		{"locate_anchor", locateAnchorTool, "locate_anchor"},
		{"get_tree", getTreeTool, "get_tree"},
		{"open_node", openNodeTool, "open_node"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.tool.Name)
			assert.NotEmpty(t, tt.tool.Description)
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(t)
	assert.NotNil(t, srv.mcp)
	assert.NotNil(t, srv.sess)
}

func TestHandleSearchDocs(t *testing.T) {
	srv := newTestServer(t)

	t.Run("waits for every shard", func(t *testing.T) {
		result := call(t, srv.handleSearchDocs, map[string]any{"query": "pip_wait"})
		require.False(t, result.IsError, "%v", result.Content)
		text := resultText(t, result)
		assert.True(t, strings.HasPrefix(text, "Found 6 result(s):"), text)
		assert.Contains(t, text, "pip_wait [function]")
		assert.Contains(t, text, "Ref: group__PiP-3-wait.html#")
	})

	t.Run("kind filter and limit", func(t *testing.T) {
		result := call(t, srv.handleSearchDocs, map[string]any{
			"query": "pip_wait",
			"kind":  "function",
			"limit": float64(1),
		})
		require.False(t, result.IsError, "%v", result.Content)
		text := resultText(t, result)
		assert.True(t, strings.HasPrefix(text, "Found 2 result(s), showing 1:"), text)
		assert.NotContains(t, text, "[symbol]")
	})

	t.Run("no results", func(t *testing.T) {
		result := call(t, srv.handleSearchDocs, map[string]any{"query": "zzz_nothing"})
		assert.False(t, result.IsError, "empty results are not an error")
		assert.True(t, strings.HasPrefix(resultText(t, result), "No results"))
	})

	t.Run("missing query", func(t *testing.T) {
		result := call(t, srv.handleSearchDocs, map[string]any{})
		assert.True(t, result.IsError)
	})
}

func TestHandleLocateAnchor(t *testing.T) {
	srv := newTestServer(t)

	t.Run("anchor in a lazy branch", func(t *testing.T) {
		result := call(t, srv.handleLocateAnchor, map[string]any{
			"target_ref": "group__PiP-0-init-fin.html#gad4e0db6c69792b3fa014e3310892a0eb",
		})
		require.False(t, result.IsError, "%v", result.Content)
		text := resultText(t, result)
		assert.Contains(t, text, "Node: 0.10.0.0")
		assert.Contains(t, text, "Path: Process-in-Process > Modules > PiP Initialization/Finalization > pip_init")
	})

	t.Run("unknown anchor", func(t *testing.T) {
		result := call(t, srv.handleLocateAnchor, map[string]any{"target_ref": "nowhere.html#x"})
		require.False(t, result.IsError, "an unresolved anchor is not an error: %v", result.Content)
		assert.Contains(t, resultText(t, result), "not in the navigation tree")
	})

	t.Run("missing target_ref", func(t *testing.T) {
		result := call(t, srv.handleLocateAnchor, map[string]any{})
		assert.True(t, result.IsError)
	})
}

func TestHandleGetTree(t *testing.T) {
	srv := newTestServer(t)

	text := resultText(t, call(t, srv.handleGetTree, map[string]any{}))
	assert.Contains(t, text, "[0] Process-in-Process  (index.html)")
	assert.NotContains(t, text, "PiP Versions", "collapsed nodes are hidden")

	text = resultText(t, call(t, srv.handleGetTree, map[string]any{"all": true}))
	assert.Contains(t, text, "[0.0.0] PiP Versions")
}

func TestHandleOpenNode(t *testing.T) {
	srv := newTestServer(t)

	result := call(t, srv.handleOpenNode, map[string]any{"node_id": "0.1"})
	require.False(t, result.IsError, "%v", result.Content)
	assert.Equal(t, "Opened index.html#autotoc_md5", resultText(t, result))

	result = call(t, srv.handleOpenNode, map[string]any{"node_id": "7.7"})
	assert.True(t, result.IsError)
}

func TestFormatMatchesLimit(t *testing.T) {
	srv := newTestServer(t)
	ctx := testContext(t)
	_, err := srv.sess.Search(ctx, "pip")
	require.NoError(t, err)
	require.NoError(t, srv.sess.WaitIdle(ctx))
	res, err := srv.sess.Results(ctx)
	require.NoError(t, err)

	out := formatMatches(res.Matches, 3)
	assert.Equal(t, 3, strings.Count(out, "  Ref: "))
}
