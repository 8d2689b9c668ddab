// Package mcp exposes dish search as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	locateuc "github.com/dishola/dishola/internal/usecase/locate"
	searchuc "github.com/dishola/dishola/internal/usecase/search"
	usageuc "github.com/dishola/dishola/internal/usecase/usage"
	"github.com/dishola/dishola/internal/version"
)

// ServerName is the MCP server name
const ServerName = "dishola"

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	search *searchuc.Service
	locate *locateuc.Service
	usage  *usageuc.Service
	logger *zap.Logger
}

// NewServer creates an MCP server with every tool registered.
func NewServer(
	search *searchuc.Service, locate *locateuc.Service, usage *usageuc.Service, logger *zap.Logger,
) *Server {
	s := &Server{
		mcp:    server.NewMCPServer(ServerName, version.Version),
		search: search,
		locate: locate,
		usage:  usage,
		logger: logger,
	}
	s.mcp.AddTool(searchDishesTool(), s.handleSearchDishes)
	s.mcp.AddTool(locateTool(), s.handleLocate)
	s.mcp.AddTool(getUsageTool(), s.handleGetUsage)
	return s
}

// Serve reads JSON-RPC from in and writes responses to out until ctx is done or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out) //nolint:wrapcheck // terminal error for main
}
