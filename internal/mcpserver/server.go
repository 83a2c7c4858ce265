// Package mcpserver exposes product search and the synonym and boost
// controls as MCP tools for agent clients.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/utafrali/aisearch/internal/domain"
)

const (
	// ServerName is the MCP server name
	ServerName = "aisearch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Searcher runs a validated search.
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (domain.PageResult, error)
}

// SynonymReloader pushes a synonym set and reloads search analyzers.
type SynonymReloader interface {
	Reload(ctx context.Context, req domain.SynonymReloadRequest) (domain.SynonymReloadResult, error)
}

// BetaSource reads the category boost strength.
type BetaSource interface {
	Get() float64
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	searcher Searcher
	synonyms SynonymReloader
	beta     BetaSource
	logger   *slog.Logger
}

// NewServer creates a new MCP server with every tool registered
func NewServer(searcher Searcher, synonyms SynonymReloader, beta BetaSource, logger *slog.Logger) *Server {
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion, server.WithRecovery()),
		searcher: searcher,
		synonyms: synonyms,
		beta:     beta,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio and blocks until the client disconnects
func (s *Server) Serve(_ context.Context) error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchProductsTool(), s.handleSearchProducts)
	s.mcp.AddTool(reloadSynonymsTool(), s.handleReloadSynonyms)
	s.mcp.AddTool(getCategoryBoostBetaTool(), s.handleGetCategoryBoostBeta)
}
