package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"anthemengine/internal/domain"
	"anthemengine/internal/records"
)

func (s *Server) registerSourceTools() {
	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List record source types and stored source connections"),
	), s.handleListSources)

	s.mcp.AddTool(mcp.NewTool("test_source",
		mcp.WithDescription("Check that a stored source connection is reachable"),
		mcp.WithString("source", mcp.Description("Source connection ID or name"), mcp.Required()),
	), s.handleTestSource)

	s.mcp.AddTool(mcp.NewTool("describe_source",
		mcp.WithDescription("Get schema information (tables and columns) of a stored source connection"),
		mcp.WithString("source", mcp.Description("Source connection ID or name"), mcp.Required()),
	), s.handleDescribeSource)
}

type sourcesResult struct {
	Types       []records.SourceSpec      `json:"types"`
	Connections []domain.SourceConnection `json:"connections"`
}

func (s *Server) handleListSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := sourcesResult{Types: records.ListSources(), Connections: []domain.SourceConnection{}}
	if s.sources != nil {
		conns, err := s.sources.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		if conns != nil {
			res.Connections = conns
		}
	}
	return jsonResult(res)
}

func (s *Server) handleTestSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("source")
	if err != nil || name == "" {
		return nil, fmt.Errorf("source is required")
	}
	if s.sources == nil {
		return nil, fmt.Errorf("source connections are not available")
	}
	if err := s.sources.Test(ctx, name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("connection %s failed: %v", name, err)), nil
	}
	return textResult(fmt.Sprintf("connection %s ok", name)), nil
}

func (s *Server) handleDescribeSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("source", "")
	if name == "" {
		return nil, fmt.Errorf("source is required")
	}
	if s.sources == nil {
		return nil, fmt.Errorf("source connections are not available")
	}
	schema, err := s.sources.Introspect(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("introspect %s: %v", name, err)), nil
	}
	return jsonResult(schema)
}
