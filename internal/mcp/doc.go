// Package mcp implements the Model Context Protocol (MCP) server for apidocs.
//
// The MCP server exposes four tools to AI coding assistants:
//   - index_releases: Parse the per-release API documents and rebuild the indexes
//   - symbol_lifespan: Report when a class or member was introduced and removed
//   - search_api: Fuzzy-search the entries documented in one release
//   - get_status: Check indexing status and statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol messages only; all logging goes to stderr.
//
// # Basic Usage
//
//	apidocs mcp
//
// The server loads the previously stored index on startup, so search and
// lifespan queries work without re-indexing.
//
// # Tool: index_releases
//
//	Request:
//	{
//	  "name": "index_releases",
//	  "arguments": {
//	    "dir": "./releases",
//	    "pattern": "**/*.md"
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "releases_indexed": 42,
//	  "releases_skipped": 1,
//	  "classes": 61,
//	  "members": 1523,
//	  "newest_release": "v1.45.0",
//	  "oldest_release": "v1.0.0",
//	  "duration_ms": 310,
//	  "errors": ["README: skipped: invalid release version \"README\""]
//	}
//
// # Tool: symbol_lifespan
//
//	Request:
//	{
//	  "name": "symbol_lifespan",
//	  "arguments": {
//	    "release": "v1.10.0",
//	    "class": "Page",
//	    "kind": "method",
//	    "name": "waitForTimeout",
//	    "include_history": false
//	  }
//	}
//
//	Response:
//	{
//	  "found": true,
//	  "release": "v1.10.0",
//	  "class": "Page",
//	  "kind": "method",
//	  "name": "waitForTimeout",
//	  "since": "v1.5.0",
//	  "until": "v1.20.0",
//	  "removed": true
//	}
//
// An entry that is not documented in the release yields "found": false rather
// than an error.
//
// # Tool: search_api
//
//	Request:
//	{
//	  "name": "search_api",
//	  "arguments": {
//	    "query": "pgoto",
//	    "limit": 10,
//	    "kinds": ["method"]
//	  }
//	}
//
// Each result carries the matched text, the rune offsets of the matched
// characters and the highlighted substrings, ordered by descending score.
//
// # Error Codes
//
//	-32602  Invalid parameters
//	-32603  Internal error
//	-32001  No release documents found
//	-32002  Indexing already in progress
//	-32003  Nothing indexed yet
//	-32004  Release not indexed
//	-32005  Malformed release document
package mcp
