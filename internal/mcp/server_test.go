package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/apidocs/internal/app"
	"github.com/dshills/apidocs/internal/config"
)

const (
	docV1 = `# v1.0.0

### class: Page

#### event: 'close'

#### page.click(selector)

Clicks an element.

#### page.goto(url)
`
	docV2 = `# v2.0.0

### class: Page

#### page.goto(url[, options])

#### page.waitForSelector(selector)
`
)

// newTestServer creates a server over a fresh database and a releases
// directory holding v1.0.0 and v2.0.0
func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ReleasesDir = t.TempDir()
	cfg.DBPath = filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ReleasesDir, "v1.0.0.md"), []byte(docV1), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ReleasesDir, "v2.0.0.md"), []byte(docV2), 0644))

	a, err := app.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return NewServer(a)
}

// newIndexedServer is newTestServer after one successful index_releases run
func newIndexedServer(t *testing.T) *Server {
	t.Helper()
	s := newTestServer(t)
	_, err := s.handleIndexReleases(context.Background(), request(nil))
	require.NoError(t, err)
	return s
}

func request(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	if args != nil {
		req.Params.Arguments = args
	}
	return req
}

// decode unmarshals the JSON text payload of a tool result
func decode(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	var text string
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		text = c.Text
	case *mcp.TextContent:
		text = c.Text
	default:
		t.Fatalf("unexpected content type %T", c)
	}

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
		required []string
	}{
		{indexReleasesTool(), "index_releases", nil},
		{symbolLifespanTool(), "symbol_lifespan", []string{"class"}},
		{searchAPITool(), "search_api", nil},
		{getStatusTool(), "get_status", nil},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.tool.Name)
			assert.NotEmpty(t, tt.tool.Description)
			assert.Equal(t, "object", tt.tool.InputSchema.Type)
			assert.Equal(t, tt.required, tt.tool.InputSchema.Required)
		})
	}
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)
	assert.NotNil(t, s.mcp, "MCP server should be initialized")
	assert.NotNil(t, s.app, "application should be set")
}

func TestHandleIndexReleases(t *testing.T) {
	ctx := context.Background()

	t.Run("configured directory", func(t *testing.T) {
		s := newTestServer(t)
		result, err := s.handleIndexReleases(ctx, request(nil))
		require.NoError(t, err)

		out := decode(t, result)
		assert.Equal(t, true, out["indexed"])
		assert.Equal(t, float64(2), out["releases_indexed"])
		assert.Equal(t, "v2.0.0", out["newest_release"])
		assert.Equal(t, "v1.0.0", out["oldest_release"])
		assert.NotContains(t, out, "errors")
	})

	t.Run("skipped releases are reported", func(t *testing.T) {
		s := newTestServer(t)
		dir := s.app.Config.ReleasesDir
		require.NoError(t, os.WriteFile(filepath.Join(dir, "CHANGELOG.md"), []byte("# Changes\n"), 0644))

		result, err := s.handleIndexReleases(ctx, request(map[string]any{"dir": dir}))
		require.NoError(t, err)

		out := decode(t, result)
		assert.Equal(t, float64(1), out["releases_skipped"])
		assert.Len(t, out["errors"], 1)
	})

	t.Run("missing directory", func(t *testing.T) {
		s := newTestServer(t)
		_, err := s.handleIndexReleases(ctx, request(map[string]any{"dir": filepath.Join(t.TempDir(), "missing")}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("no release documents", func(t *testing.T) {
		s := newTestServer(t)
		_, err := s.handleIndexReleases(ctx, request(map[string]any{"dir": t.TempDir()}))
		requireMCPError(t, err, ErrorCodeReleasesNotFound)
	})

	t.Run("malformed release", func(t *testing.T) {
		s := newTestServer(t)
		dir := s.app.Config.ReleasesDir
		require.NoError(t, os.WriteFile(filepath.Join(dir, "v3.0.0.md"), []byte("#### page.goto(url)\n"), 0644))

		_, err := s.handleIndexReleases(ctx, request(nil))
		mcpErr := requireMCPError(t, err, ErrorCodeMalformedRelease)
		data, ok := mcpErr.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "v3.0.0", data["release"])
		assert.Equal(t, "#### page.goto(url)", data["heading"])
	})

	t.Run("invalid arguments", func(t *testing.T) {
		s := newTestServer(t)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = "not an object"
		_, err := s.handleIndexReleases(ctx, req)
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestHandleSymbolLifespan(t *testing.T) {
	ctx := context.Background()
	s := newIndexedServer(t)

	tests := []struct {
		name      string
		args      map[string]any
		wantFound bool
		wantSince string
		wantUntil string
	}{
		{
			name:      "class in newest release",
			args:      map[string]any{"class": "Page"},
			wantFound: true,
			wantSince: "v1.0.0",
		},
		{
			name:      "removed event",
			args:      map[string]any{"release": "v1.0.0", "class": "Page", "kind": "event", "name": "close"},
			wantFound: true,
			wantSince: "v1.0.0",
			wantUntil: "v2.0.0",
		},
		{
			name:      "added method",
			args:      map[string]any{"class": "Page", "kind": "method", "name": "waitForSelector"},
			wantFound: true,
			wantSince: "v2.0.0",
		},
		{
			name: "unknown member",
			args: map[string]any{"class": "Page", "kind": "method", "name": "click"},
		},
		{
			name: "unknown class",
			args: map[string]any{"class": "Browser"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleSymbolLifespan(ctx, request(tt.args))
			require.NoError(t, err)

			out := decode(t, result)
			assert.Equal(t, tt.wantFound, out["found"])
			if !tt.wantFound {
				assert.NotEmpty(t, out["message"])
				return
			}
			assert.Equal(t, tt.wantSince, out["since"])
			assert.Equal(t, tt.wantUntil != "", out["removed"])
			if tt.wantUntil != "" {
				assert.Equal(t, tt.wantUntil, out["until"])
			} else {
				assert.NotContains(t, out, "until")
			}
		})
	}

	t.Run("history", func(t *testing.T) {
		result, err := s.handleSymbolLifespan(ctx, request(map[string]any{
			"class": "Page", "kind": "method", "name": "goto", "include_history": true,
		}))
		require.NoError(t, err)

		out := decode(t, result)
		history, ok := out["history"].([]any)
		require.True(t, ok)
		require.Len(t, history, 2)
		assert.Equal(t, "v2.0.0", history[0].(map[string]any)["release"])
	})

	t.Run("parameter errors", func(t *testing.T) {
		errTests := []struct {
			name string
			args map[string]any
			code int
		}{
			{"missing class", map[string]any{}, ErrorCodeInvalidParams},
			{"invalid kind", map[string]any{"class": "Page", "kind": "field"}, ErrorCodeInvalidParams},
			{"member without name", map[string]any{"class": "Page", "kind": "method"}, ErrorCodeInvalidParams},
			{"unknown release", map[string]any{"class": "Page", "release": "v9.9.9"}, ErrorCodeReleaseNotFound},
		}
		for _, tt := range errTests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := s.handleSymbolLifespan(ctx, request(tt.args))
				requireMCPError(t, err, tt.code)
			})
		}
	})

	t.Run("not indexed", func(t *testing.T) {
		_, err := newTestServer(t).handleSymbolLifespan(ctx, request(map[string]any{"class": "Page"}))
		requireMCPError(t, err, ErrorCodeNotIndexed)
	})
}

func TestHandleSearchAPI(t *testing.T) {
	ctx := context.Background()
	s := newIndexedServer(t)

	t.Run("fuzzy query", func(t *testing.T) {
		result, err := s.handleSearchAPI(ctx, request(map[string]any{"query": "goto"}))
		require.NoError(t, err)

		out := decode(t, result)
		assert.Equal(t, "v2.0.0", out["release"])
		results, ok := out["results"].([]any)
		require.True(t, ok)
		require.NotEmpty(t, results)

		first := results[0].(map[string]any)
		assert.Equal(t, "method", first["kind"])
		assert.Equal(t, "goto", first["name"])
		assert.Equal(t, "page.goto(url[, options])", first["text"])
		assert.Equal(t, []any{"goto"}, first["highlights"])
		assert.Equal(t, float64(1), first["rank"])
	})

	t.Run("empty query lists release", func(t *testing.T) {
		result, err := s.handleSearchAPI(ctx, request(map[string]any{"release": "v1.0.0"}))
		require.NoError(t, err)

		out := decode(t, result)
		// Page, close, click, goto
		assert.Equal(t, float64(4), out["total_matches"])
		results := out["results"].([]any)
		assert.Equal(t, "class", results[0].(map[string]any)["kind"])
		assert.Equal(t, "Clicks an element.", results[2].(map[string]any)["description"])
	})

	t.Run("kinds and limit", func(t *testing.T) {
		result, err := s.handleSearchAPI(ctx, request(map[string]any{
			"release": "v1.0.0",
			"kinds":   []any{"method"},
			"limit":   float64(1),
		}))
		require.NoError(t, err)

		out := decode(t, result)
		assert.Equal(t, float64(2), out["total_matches"])
		assert.Equal(t, float64(1), out["returned"])
	})

	t.Run("cached on repeat", func(t *testing.T) {
		args := map[string]any{"query": "wfs"}
		_, err := s.handleSearchAPI(ctx, request(args))
		require.NoError(t, err)

		result, err := s.handleSearchAPI(ctx, request(args))
		require.NoError(t, err)
		assert.Equal(t, true, decode(t, result)["cache_hit"])
	})

	t.Run("parameter errors", func(t *testing.T) {
		errTests := []struct {
			name string
			args map[string]any
			code int
		}{
			{"limit too small", map[string]any{"limit": float64(0)}, ErrorCodeInvalidParams},
			{"limit too large", map[string]any{"limit": float64(501)}, ErrorCodeInvalidParams},
			{"invalid kind", map[string]any{"kinds": []any{"field"}}, ErrorCodeInvalidParams},
			{"kinds not array", map[string]any{"kinds": "method"}, ErrorCodeInvalidParams},
			{"unknown release", map[string]any{"release": "v0.1.0"}, ErrorCodeReleaseNotFound},
		}
		for _, tt := range errTests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := s.handleSearchAPI(ctx, request(tt.args))
				requireMCPError(t, err, tt.code)
			})
		}
	})
}

func TestHandleGetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing indexed", func(t *testing.T) {
		result, err := newTestServer(t).handleGetStatus(ctx, request(nil))
		require.NoError(t, err)

		out := decode(t, result)
		assert.Equal(t, false, out["indexed"])
		assert.NotEmpty(t, out["message"])
		health := out["health"].(map[string]any)
		assert.Equal(t, true, health["database_accessible"])
	})

	t.Run("indexed", func(t *testing.T) {
		result, err := newIndexedServer(t).handleGetStatus(ctx, request(nil))
		require.NoError(t, err)

		out := decode(t, result)
		assert.Equal(t, true, out["indexed"])
		assert.Equal(t, false, out["indexing_in_progress"])

		stats := out["statistics"].(map[string]any)
		assert.Equal(t, float64(2), stats["releases_count"])
		assert.Equal(t, "v2.0.0", stats["newest_release"])
		assert.Contains(t, out, "last_run")

		catalog := out["catalog"].(map[string]any)
		assert.Equal(t, []any{"v2.0.0", "v1.0.0"}, catalog["releases"])
	})
}

func TestGetKinds(t *testing.T) {
	kinds, err := getKinds(map[string]any{}, "kinds")
	require.NoError(t, err)
	assert.Nil(t, kinds)

	kinds, err = getKinds(map[string]any{"kinds": []string{"event", "class"}}, "kinds")
	require.NoError(t, err)
	assert.Len(t, kinds, 2)
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "v1.0.0.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.NoError(t, validateDir(dir))
	assert.ErrorIs(t, validateDir(""), ErrPathRequired)
	assert.ErrorIs(t, validateDir(filepath.Join(dir, "missing")), ErrPathNotFound)
	assert.ErrorIs(t, validateDir(file), ErrNotDirectory)
}
