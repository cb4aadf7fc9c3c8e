package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/apidocs/internal/app"
	"github.com/dshills/apidocs/internal/indexer"
	"github.com/dshills/apidocs/internal/render"
	"github.com/dshills/apidocs/internal/searcher"
	"github.com/dshills/apidocs/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeReleasesNotFound   = -32001 // No release documents under the given directory
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Nothing indexed yet
	ErrorCodeReleaseNotFound    = -32004 // Requested release is not indexed
	ErrorCodeMalformedRelease   = -32005 // A release document has an invalid heading sequence
)

// maxReportedErrors bounds the skipped-release messages returned by index_releases
const maxReportedErrors = 5

// handleIndexReleases handles the index_releases tool invocation
func (s *Server) handleIndexReleases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	dir := getStringDefault(args, "dir", s.app.Config.ReleasesDir)
	if err := validateDir(dir); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid dir", map[string]interface{}{
			"param":  "dir",
			"reason": err.Error(),
		})
	}

	stats, err := s.app.Index(ctx, app.IndexOptions{
		Dir:     dir,
		Pattern: getStringDefault(args, "pattern", ""),
	})
	if err != nil {
		return nil, indexError(err)
	}

	response := map[string]interface{}{
		"indexed":          true,
		"files_parsed":     stats.FilesParsed,
		"releases_indexed": stats.ReleasesIndexed,
		"releases_skipped": stats.ReleasesSkipped,
		"classes":          stats.Classes,
		"members":          stats.Members,
		"newest_release":   stats.NewestRelease,
		"oldest_release":   stats.OldestRelease,
		"duration_ms":      stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// indexError maps an indexing failure to an MCP error
func indexError(err error) error {
	var headingErr *types.HeadingError
	switch {
	case errors.Is(err, indexer.ErrIndexingInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	case errors.Is(err, indexer.ErrNoReleases):
		return newMCPError(ErrorCodeReleasesNotFound, "no release documents found", map[string]interface{}{
			"error": err.Error(),
		})
	case errors.As(err, &headingErr):
		return newMCPError(ErrorCodeMalformedRelease, "malformed release document", map[string]interface{}{
			"release": headingErr.Release,
			"index":   headingErr.Index,
			"heading": headingErr.Heading,
			"reason":  headingErr.Err.Error(),
		})
	default:
		return newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// handleSymbolLifespan handles the symbol_lifespan tool invocation
func (s *Server) handleSymbolLifespan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	class, ok := args["class"].(string)
	if !ok || class == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "class parameter is required", map[string]interface{}{
			"param":  "class",
			"reason": "missing or empty",
		})
	}

	kind, err := types.ParseKind(getStringDefault(args, "kind", string(types.KindClass)))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
			"param":   "kind",
			"reason":  err.Error(),
			"allowed": kindEnum,
		})
	}

	name := getStringDefault(args, "name", "")
	if kind.IsMember() && name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "name parameter is required for members", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	catalog, err := s.catalog()
	if err != nil {
		return nil, err
	}
	release, err := resolveRelease(catalog, args)
	if err != nil {
		return nil, err
	}

	response := map[string]interface{}{
		"release": release,
		"class":   class,
		"kind":    kind,
	}
	if kind.IsMember() {
		response["name"] = name
	}

	l, found := catalog.Lifespans().Lookup(release, class, kind, name)
	response["found"] = found
	if !found {
		response["message"] = fmt.Sprintf("%s is not documented in release %s", symbolLabel(class, kind, name), release)
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	response["since"] = l.Since
	response["removed"] = l.Removed()
	if l.Removed() {
		response["until"] = l.Until
	}
	if getBoolDefault(args, "include_history", false) {
		response["history"] = catalog.Lifespans().History(class, kind, name)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func symbolLabel(class string, kind types.EntryKind, name string) string {
	if kind == types.KindClass {
		return "class " + class
	}
	return fmt.Sprintf("%s %s.%s", kind, class, name)
}

// handleSearchAPI handles the search_api tool invocation
func (s *Server) handleSearchAPI(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", s.app.Config.Search.Limit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	kinds, err := getKinds(args, "kinds")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid kinds", map[string]interface{}{
			"param":   "kinds",
			"reason":  err.Error(),
			"allowed": kindEnum,
		})
	}

	catalog, err := s.catalog()
	if err != nil {
		return nil, err
	}
	release, err := resolveRelease(catalog, args)
	if err != nil {
		return nil, err
	}

	resp, err := s.app.Searcher.Search(ctx, searcher.Request{
		Release:  release,
		Query:    getStringDefault(args, "query", ""),
		Limit:    limit,
		Kinds:    kinds,
		UseCache: true,
	})
	if errors.Is(err, searcher.ErrReleaseNotFound) {
		return nil, newMCPError(ErrorCodeReleaseNotFound, "release not indexed", map[string]interface{}{
			"release": release,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		nodes, err := r.Title()
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to render result", map[string]interface{}{
				"error": err.Error(),
				"text":  r.Item.Text,
			})
		}
		result := map[string]interface{}{
			"rank":       r.Rank,
			"score":      r.Score,
			"kind":       r.Item.Kind,
			"class":      r.Item.Class,
			"name":       r.Item.Name,
			"text":       r.Item.Text,
			"icon":       r.Item.Icon,
			"offsets":    r.Offsets,
			"highlights": render.Highlighted(nodes),
		}
		if r.Item.Description != "" {
			result["description"] = r.Item.Description
		}
		results = append(results, result)
	}

	response := map[string]interface{}{
		"release":       resp.Release,
		"query":         resp.Query,
		"total_matches": resp.TotalMatches,
		"returned":      len(results),
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
		"results":       results,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := arguments(request); err != nil {
		return nil, err
	}

	status, err := s.app.Storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":              status.ReleasesCount > 0,
		"indexing_in_progress": s.app.Indexer.IsIndexing(),
		"releases_dir":         s.app.Config.ReleasesDir,
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"schema_version":      status.Health.SchemaVersion,
			"build_mode":          status.Health.BuildMode,
		},
	}

	if status.ReleasesCount == 0 {
		response["message"] = "Nothing indexed yet. Use index_releases tool to index the release documents."
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	response["statistics"] = map[string]interface{}{
		"releases_count": status.ReleasesCount,
		"classes_count":  status.ClassesCount,
		"members_count":  status.MembersCount,
		"newest_release": status.NewestRelease,
		"oldest_release": status.OldestRelease,
		"index_size_mb":  fmt.Sprintf("%.2f", status.IndexSizeMB),
	}
	if status.LastRun != nil {
		response["last_run"] = map[string]interface{}{
			"releases":    status.LastRun.Releases,
			"classes":     status.LastRun.Classes,
			"members":     status.LastRun.Members,
			"duration_ms": status.LastRun.Duration.Milliseconds(),
			"created_at":  status.LastRun.CreatedAt.Format(time.RFC3339),
		}
	}
	if catalog := s.app.Indexer.Catalog(); catalog != nil {
		response["catalog"] = map[string]interface{}{
			"releases": catalog.Releases(),
			"built_at": catalog.BuiltAt().Format(time.RFC3339),
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// catalog returns the published catalog or a not-indexed error
func (s *Server) catalog() (*indexer.Catalog, error) {
	c := s.app.Indexer.Catalog()
	if c == nil {
		return nil, newMCPError(ErrorCodeNotIndexed, "nothing indexed yet, run index_releases first", nil)
	}
	return c, nil
}

// resolveRelease returns the requested release, defaulting to the newest one
func resolveRelease(c *indexer.Catalog, args map[string]interface{}) (string, error) {
	releases := c.Releases()
	release := getStringDefault(args, "release", "")
	if release == "" {
		return releases[0], nil
	}
	if !c.Lifespans().HasRelease(release) {
		return "", newMCPError(ErrorCodeReleaseNotFound, "release not indexed", map[string]interface{}{
			"release":   release,
			"available": releases,
		})
	}
	return release, nil
}

// arguments extracts the argument object; tools without required parameters accept none
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateDir checks that a releases directory exists and is readable
func validateDir(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// getKinds extracts an optional list of entry kinds
func getKinds(args map[string]interface{}, key string) ([]types.EntryKind, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	var values []string
	switch v := raw.(type) {
	case []string:
		values = v
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %v", types.ErrUnknownKind, item)
			}
			values = append(values, s)
		}
	default:
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}

	kinds := make([]types.EntryKind, 0, len(values))
	for _, s := range values {
		k, err := types.ParseKind(s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
