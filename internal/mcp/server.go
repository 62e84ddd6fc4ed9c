package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/getAsterisk/blockoli/internal/indexer"
	"github.com/getAsterisk/blockoli/internal/searcher"
	"github.com/getAsterisk/blockoli/internal/storage"
)

const (
	// ServerName is the MCP server name advertised during initialization
	ServerName = "blockoli"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the engine's dependencies.
type Server struct {
	mcp      *server.MCPServer
	store    storage.Store
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	logger   *zap.Logger
}

// NewServer creates an MCP server over an already wired engine.
func NewServer(
	store storage.Store,
	idx *indexer.Indexer,
	srch *searcher.Searcher,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		store:    store,
		indexer:  idx,
		searcher: srch,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting mcp server", zap.String("name", ServerName))
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(createProjectTool(), s.handleCreateProject)
	s.mcp.AddTool(deleteProjectTool(), s.handleDeleteProject)
	s.mcp.AddTool(listProjectsTool(), s.handleListProjects)
	s.mcp.AddTool(projectInfoTool(), s.handleProjectInfo)
	s.mcp.AddTool(indexProjectTool(), s.handleIndexProject)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(findFunctionTool(), s.handleFindFunction)
}
