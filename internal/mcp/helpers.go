package mcpserver

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"anthemengine/internal/httpapi"
)

// toolError turns a service failure into a tool result the agent can read.
// Context cancellation stays a protocol error.
func toolError(ctx context.Context, err error) (*mcp.CallToolResult, error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil, err
	}
	_, msg := httpapi.StatusFor(err)
	return mcp.NewToolResultError(msg), nil
}

// clampLimit bounds a list size taken from tool arguments.
func clampLimit(n, def, maxN int) int {
	if n <= 0 {
		return def
	}
	return min(n, maxN)
}
