//go:build conformance

package conformance

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// The probe fixtures mirror the shapes the real table tools produce, so
// protocol clients can be validated against each content kind without
// touching a session store.
const (
	probeConfirmationText = "Rolled 2d6+3: [4 2] +3 = 9."
	probeRejectionText    = "DICE_EXPRESSION_INVALID: cannot read \"banana\""
	probeToolErrorText    = "probe tool failure requested by the client"
	probeLogResourceName  = "probe_log_entry"
	probeLogResourceURI   = "probe://log-entry"
	probeLogResourceBody  = `{"kind":"dice","turn":3,"speaker":"director","content":"Rolled 2d6+3: [4 2] +3 = 9."}`
)

// Register adds probe-only MCP fixtures (tools, prompts, resources).
func Register(mcpServer *mcp.Server) {
	if mcpServer == nil {
		return
	}

	mcp.AddTool(mcpServer, probeConfirmationTool(), fixedTextHandler(probeConfirmationText, false))
	mcp.AddTool(mcpServer, probeRejectionTool(), fixedTextHandler(probeRejectionText, true))
	mcp.AddTool(mcpServer, probeToolErrorTool(), fixedTextHandler(probeToolErrorText, true))
	mcpServer.AddPrompt(probeScenePrompt(), probeScenePromptHandler())
	mcpServer.AddResource(probeLogResource(), probeLogResourceHandler())
}

func probeConfirmationTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "probe_confirmation",
		Description: "Probe tool shaped like an accepted table action confirmation.",
	}
}

func probeRejectionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "probe_rejection",
		Description: "Probe tool shaped like a rejected table action observation.",
	}
}

func probeToolErrorTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "probe_tool_error",
		Description: "Probe tool that always reports a tool error.",
	}
}

// fixedTextHandler returns a handler producing one text content block, marked
// as a tool error when isError is set.
func fixedTextHandler(text string, isError bool) mcp.ToolHandlerFor[struct{}, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			IsError: isError,
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, nil, nil
	}
}

func probeScenePrompt() *mcp.Prompt {
	return &mcp.Prompt{
		Name:        "probe_scene",
		Description: "Probe prompt framing one narration beat.",
	}
}

func probeScenePromptHandler() mcp.PromptHandler {
	return func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Messages: []*mcp.PromptMessage{
				{
					Role: "user",
					Content: &mcp.TextContent{
						Text: "Describe the scene at the table in two sentences.",
					},
				},
			},
		}, nil
	}
}

// probeLogResource mirrors the JSON shape of one shared log entry.
func probeLogResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        probeLogResourceName,
		Description: "Probe resource carrying one log entry in the session log shape.",
		MIMEType:    "application/json",
		URI:         probeLogResourceURI,
	}
}

func probeLogResourceHandler() mcp.ResourceHandler {
	return func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      probeLogResourceURI,
					MIMEType: "application/json",
					Text:     probeLogResourceBody,
				},
			},
		}, nil
	}
}
