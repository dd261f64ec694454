package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	runsURI       = "anthem://runs"
	runURIPrefix  = "anthem://runs/"
	resourceLimit = 50
)

func (s *Server) registerResources() {
	// ── anthem://runs ──────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		runsURI,
		"Recent Anthem Runs",
		mcp.WithMIMEType("application/json"),
	), s.handleRunsResource)

	// ── anthem://runs/{runId} ──────────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			runURIPrefix+"{runId}",
			"Anthem Run Summary",
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleRunResource,
	)
}

func (s *Server) handleRunsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runs, err := s.anthems.List(ctx, resourceLimit)
	if err != nil {
		return nil, err
	}

	type runEntry struct {
		ID            string  `json:"id"`
		OpportunityID string  `json:"opportunityId"`
		Max           float64 `json:"max"`
		Min           float64 `json:"min"`
		CreatedAt     string  `json:"createdAt"`
	}

	entries := make([]runEntry, 0, len(runs))
	for _, r := range runs {
		entries = append(entries, runEntry{
			ID:            r.ID,
			OpportunityID: r.OpportunityID,
			Max:           r.Max,
			Min:           r.Min,
			CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		})
	}
	return jsonContents(runsURI, entries)
}

func (s *Server) handleRunResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	runID := strings.TrimPrefix(uri, runURIPrefix)
	if runID == uri || runID == "" || strings.Contains(runID, "/") {
		return nil, fmt.Errorf("could not extract runId from URI: %s", uri)
	}

	run, err := s.anthems.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, summarizeRun(run, false))
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
