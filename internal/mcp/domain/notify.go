package domain

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wrenfold/roundtable/internal/id"
)

// invocationIDMetaKey names the correlation id attached to tool results.
const invocationIDMetaKey = "invocation_id"

// ResourceUpdateNotifier notifies MCP clients about resource updates.
type ResourceUpdateNotifier func(ctx context.Context, uri string)

// NewInvocationID generates a correlation identifier for a tool call.
func NewInvocationID() (string, error) {
	return id.NewID()
}

// CallToolResultWithID builds a tool result carrying the invocation id so
// clients can correlate results with the stored telemetry trail.
func CallToolResultWithID(invocationID string) *mcp.CallToolResult {
	if invocationID == "" {
		return nil
	}
	return &mcp.CallToolResult{
		Meta: map[string]any{invocationIDMetaKey: invocationID},
	}
}

// NotifyResourceUpdates sends resource update notifications for each URI
// provided.
func NotifyResourceUpdates(ctx context.Context, notify ResourceUpdateNotifier, uris ...string) {
	if notify == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, uri := range uris {
		if strings.TrimSpace(uri) == "" {
			continue
		}
		notify(ctx, uri)
	}
}
