package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"anthemengine/internal/dbclient"
	"anthemengine/internal/domain"
	"anthemengine/internal/service"
	"anthemengine/internal/version"
)

// Anthems is the generation and history surface exposed as tools.
type Anthems interface {
	Generate(ctx context.Context, opportunityID string) (*domain.AnthemRun, error)
	Get(ctx context.Context, runID string) (*domain.AnthemRun, error)
	Latest(ctx context.Context, opportunityID string) (*domain.AnthemRun, error)
	List(ctx context.Context, limit int) ([]domain.AnthemRun, error)
}

// Sources lists, checks and describes stored source connections.
type Sources interface {
	List(ctx context.Context) ([]domain.SourceConnection, error)
	Test(ctx context.Context, idOrName string) error
	Introspect(ctx context.Context, idOrName string) (*dbclient.SchemaInfo, error)
}

// Server is the MCP server for the anthem engine.
// It exposes tools, resources, and prompts so AI agents can generate and inspect anthems.
type Server struct {
	mcp    *server.MCPServer
	logger logrus.FieldLogger

	// Services (injected from app layer)
	anthems Anthems
	sources Sources
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Anthems Anthems
	Sources Sources // optional; source tools report an error when nil
	Logger  logrus.FieldLogger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{
		logger:  deps.Logger.WithField("component", "mcp"),
		anthems: deps.Anthems,
		sources: deps.Sources,
	}

	s.mcp = server.NewMCPServer(
		"anthem-mcp",
		version.Short(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)

	s.registerAnthemTools()
	s.registerSourceTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// MCP exposes the underlying server for embedding in other transports.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

var _ Anthems = (*service.AnthemService)(nil)
var _ Sources = (*service.SourceService)(nil)
