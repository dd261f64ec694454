package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"anthemengine/internal/domain"
	"anthemengine/internal/export"
)

func (s *Server) registerAnthemTools() {
	s.mcp.AddTool(mcp.NewTool("generate_anthem",
		mcp.WithDescription("Generate the anthem for an opportunity. Returns a channel summary; set includeSamples for the full sample arrays."),
		mcp.WithString("opportunityId", mcp.Description("Opportunity ID"), mcp.Required()),
		mcp.WithBoolean("includeSamples", mcp.Description("Include anthemData in the result (large)"), mcp.DefaultBool(false)),
	), s.handleGenerateAnthem)

	s.mcp.AddTool(mcp.NewTool("get_anthem",
		mcp.WithDescription("Get a stored anthem run by run ID, or the latest run for an opportunity"),
		mcp.WithString("runId", mcp.Description("Anthem run ID")),
		mcp.WithString("opportunityId", mcp.Description("Opportunity ID (used when runId is empty)")),
		mcp.WithBoolean("includeSamples", mcp.Description("Include anthemData in the result (large)"), mcp.DefaultBool(false)),
	), s.handleGetAnthem)

	s.mcp.AddTool(mcp.NewTool("list_anthems",
		mcp.WithDescription("List recent anthem runs, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20, max 200)"), mcp.DefaultNumber(20)),
	), s.handleListAnthems)
}

// channelSummary is the per-channel part of a run summary.
type channelSummary struct {
	Index   int       `json:"index"`
	Samples int       `json:"samples"`
	Window  int       `json:"window"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Avg     float64   `json:"avg"`
	First   []float64 `json:"first"`
	Last    []float64 `json:"last"`
}

// runSummary describes a run without its samples unless asked to.
type runSummary struct {
	ID            string                `json:"id"`
	OpportunityID string                `json:"opportunityId"`
	Mode          domain.GenerationMode `json:"mode"`
	Max           float64               `json:"max"`
	Min           float64               `json:"min"`
	DurationMs    int                   `json:"durationMs"`
	CreatedAt     string                `json:"createdAt"`
	Warnings      []string              `json:"warnings,omitempty"`
	Channels      []channelSummary      `json:"channels"`
	AnthemData    [][]float64           `json:"anthemData,omitempty"`
}

func summarizeRun(run *domain.AnthemRun, withSamples bool) runSummary {
	sum := runSummary{
		ID:            run.ID,
		OpportunityID: run.OpportunityID,
		Mode:          run.Mode,
		Max:           run.Max,
		Min:           run.Min,
		DurationMs:    run.DurationMs,
		CreatedAt:     run.CreatedAt.Format(time.RFC3339),
		Warnings:      run.Warnings,
		Channels:      make([]channelSummary, len(run.Channels)),
	}
	for i, ch := range run.Channels {
		st := export.ChannelStats(ch, export.DefaultStatsWindow)
		sum.Channels[i] = channelSummary{
			Index:   i + 1,
			Samples: st.Length,
			Window:  st.Window,
			Min:     st.Min,
			Max:     st.Max,
			Avg:     st.Avg,
			First:   st.First,
			Last:    st.Last,
		}
	}
	if withSamples {
		sum.AnthemData = run.Channels
	}
	return sum
}

func (s *Server) handleGenerateAnthem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("opportunityId", ""))
	if id == "" {
		return nil, fmt.Errorf("opportunityId is required")
	}
	run, err := s.anthems.Generate(ctx, id)
	if err != nil {
		return toolError(ctx, err)
	}
	return jsonResult(summarizeRun(run, req.GetBool("includeSamples", false)))
}

func (s *Server) handleGetAnthem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := strings.TrimSpace(req.GetString("runId", ""))
	oppID := strings.TrimSpace(req.GetString("opportunityId", ""))

	var (
		run *domain.AnthemRun
		err error
	)
	switch {
	case runID != "":
		run, err = s.anthems.Get(ctx, runID)
	case oppID != "":
		run, err = s.anthems.Latest(ctx, oppID)
	default:
		return nil, fmt.Errorf("runId or opportunityId is required")
	}
	if err != nil {
		return toolError(ctx, err)
	}
	return jsonResult(summarizeRun(run, req.GetBool("includeSamples", false)))
}

func (s *Server) handleListAnthems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := clampLimit(req.GetInt("limit", 20), 20, 200)
	runs, err := s.anthems.List(ctx, limit)
	if err != nil {
		return toolError(ctx, err)
	}
	if runs == nil {
		runs = []domain.AnthemRun{}
	}
	return jsonResult(runs)
}
