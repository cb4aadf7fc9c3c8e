package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var kindEnum = []string{"class", "event", "method", "namespace"}

// indexReleasesTool returns the tool definition for index_releases
func indexReleasesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_releases",
		Description: "Parse every release API document and rebuild the lifespan and search indexes",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"dir": map[string]interface{}{
					"type":        "string",
					"description": "Directory holding one document (or directory) per release, named after the release version. Defaults to the configured releases_dir",
				},
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Doublestar glob relative to dir selecting release documents",
					"default":     "**/*.md",
				},
			},
		},
	}
}

// symbolLifespanTool returns the tool definition for symbol_lifespan
func symbolLifespanTool() mcp.Tool {
	return mcp.Tool{
		Name:        "symbol_lifespan",
		Description: "Report the release that introduced an API class or member and the release that removed it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"release": map[string]interface{}{
					"type":        "string",
					"description": "Release to look the symbol up in. Defaults to the newest indexed release",
				},
				"class": map[string]interface{}{
					"type":        "string",
					"description": "Class name, e.g. Page",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Entry kind",
					"enum":        kindEnum,
					"default":     "class",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Member name, required unless kind is class (e.g. goto, close)",
				},
				"include_history": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, list the lifespan seen from every release containing the symbol",
					"default":     false,
				},
			},
			Required: []string{"class"},
		},
	}
}

// searchAPITool returns the tool definition for search_api
func searchAPITool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_api",
		Description: "Fuzzy-search the classes, events, methods and namespaces documented in a release",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"release": map[string]interface{}{
					"type":        "string",
					"description": "Release to search. Defaults to the newest indexed release",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Fuzzy query, e.g. 'pgoto' or 'page.click'. Empty lists every entry",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-500)",
					"default":     50,
					"minimum":     1,
					"maximum":     500,
				},
				"kinds": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these entry kinds",
					"items": map[string]interface{}{
						"type": "string",
						"enum": kindEnum,
					},
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status and statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
