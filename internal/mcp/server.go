package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/apidocs/internal/app"
)

const (
	// ServerName is the MCP server name
	ServerName = "apidocs"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp *server.MCPServer
	app *app.App
}

// NewServer creates a new MCP server exposing the given application
func NewServer(a *app.App) *Server {
	s := &Server{
		mcp: server.NewMCPServer(ServerName, ServerVersion),
		app: a,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexReleasesTool(), s.handleIndexReleases)
	s.mcp.AddTool(symbolLifespanTool(), s.handleSymbolLifespan)
	s.mcp.AddTool(searchAPITool(), s.handleSearchAPI)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
