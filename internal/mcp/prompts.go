package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("explain_anthem",
		mcp.WithPromptDescription("Generate an opportunity's anthem and describe its channels"),
		mcp.WithArgument("opportunityId",
			mcp.ArgumentDescription("Opportunity ID"),
			mcp.RequiredArgument(),
		),
	), s.handleExplainPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("compare_anthems",
		mcp.WithPromptDescription("Compare the latest anthems of two opportunities"),
		mcp.WithArgument("first",
			mcp.ArgumentDescription("First opportunity ID"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("second",
			mcp.ArgumentDescription("Second opportunity ID"),
			mcp.RequiredArgument(),
		),
	), s.handleComparePrompt)
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}
}

func (s *Server) handleExplainPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := req.Params.Arguments["opportunityId"]
	if id == "" {
		return nil, fmt.Errorf("opportunityId is required")
	}
	return userPrompt(fmt.Sprintf("Explain the anthem for %s", id), fmt.Sprintf(`Explain the anthem of opportunity "%s". Follow these steps:

1. Call generate_anthem with opportunityId "%s" (leave includeSamples off)
2. Report the overall max and min sample and any encoding warnings
3. For each channel (1 = opportunity, 2 = first line item, 3 = account), describe its sample range and average over the first window
4. Point out channels that are flat near zero; they usually mean the record had no data`, id, id)), nil
}

func (s *Server) handleComparePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	first := req.Params.Arguments["first"]
	second := req.Params.Arguments["second"]
	if first == "" || second == "" {
		return nil, fmt.Errorf("first and second are required")
	}
	return userPrompt(fmt.Sprintf("Compare anthems of %s and %s", first, second), fmt.Sprintf(`Compare the anthems of opportunities "%s" and "%s":

1. Call get_anthem with each opportunityId; generate_anthem any that has no stored run
2. Put the per-channel min, max and average side by side
3. Summarise which record kinds differ most between the two`, first, second)), nil
}
