// Package cli implements the apidocs command tree.
//
// Every command loads the configuration named by --config (see package
// config), opens the index through package app and closes it on exit.
// Query commands read the stored index; serve and mcp keep it open and
// expose it over HTTP and the MCP stdio transport.
package cli
