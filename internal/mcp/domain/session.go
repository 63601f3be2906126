package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wrenfold/roundtable/internal/game"
	"github.com/wrenfold/roundtable/internal/scenario"
	"github.com/wrenfold/roundtable/internal/storage"
)

// storageCallTimeout bounds each store operation behind a tool call.
const storageCallTimeout = 5 * time.Second

// SessionCreateInput represents the MCP tool input for creating a session.
type SessionCreateInput struct {
	Scenario string `json:"scenario" jsonschema:"scenario setup document in YAML form"`
}

// SessionCreateResult represents the MCP tool output for creating a session.
type SessionCreateResult struct {
	SessionID    string   `json:"session_id" jsonschema:"new session identifier"`
	Name         string   `json:"name" jsonschema:"session name"`
	TurnQueue    []string `json:"turn_queue" jsonschema:"exploration-mode turn rotation"`
	TacticalMode bool     `json:"tactical_mode" jsonschema:"whether combat may be started"`
}

// SessionForkInput represents the MCP tool input for forking a session.
type SessionForkInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier to branch from"`
	Name      string `json:"name,omitempty" jsonschema:"optional name for the branch"`
}

// SessionForkResult represents the MCP tool output for forking a session.
type SessionForkResult struct {
	SessionID    string `json:"session_id" jsonschema:"new branch identifier"`
	Name         string `json:"name" jsonschema:"branch name"`
	ParentID     string `json:"parent_id" jsonschema:"session the branch split from"`
	OriginID     string `json:"origin_id" jsonschema:"root of the fork lineage"`
	ForkedAtTurn int    `json:"forked_at_turn" jsonschema:"turn count at the split point"`
}

// SessionLineageInput represents the MCP tool input for session lineage.
type SessionLineageInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// LineageEntry is one session in a fork ancestry chain.
type LineageEntry struct {
	SessionID    string `json:"session_id"`
	Name         string `json:"name"`
	ParentID     string `json:"parent_id,omitempty"`
	ForkedAtTurn int    `json:"forked_at_turn,omitempty"`
	TurnCount    int    `json:"turn_count"`
}

// SessionLineageResult represents the MCP tool output for session lineage.
type SessionLineageResult struct {
	Entries  []LineageEntry `json:"entries" jsonschema:"chain from the session to its root timeline"`
	OriginID string         `json:"origin_id" jsonschema:"root of the fork lineage"`
	Depth    int            `json:"depth" jsonschema:"fork depth (0 = root timeline)"`
}

// SessionCreateTool defines the MCP tool schema for creating sessions.
func SessionCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_create",
		Description: "Create a new session from a YAML scenario document and persist it",
	}
}

// SessionForkTool defines the MCP tool schema for forking sessions.
func SessionForkTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_fork",
		Description: "Branch a stored session into an independent what-if timeline at its current turn",
	}
}

// SessionLineageTool defines the MCP tool schema for session lineage.
func SessionLineageTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_lineage",
		Description: "Show the fork ancestry of a session, from the session back to its root timeline",
	}
}

// SessionCreateHandler parses the scenario document and persists a fresh
// session built from it.
func SessionCreateHandler(store storage.Store, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[SessionCreateInput, SessionCreateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionCreateInput) (*mcp.CallToolResult, SessionCreateResult, error) {
		if store == nil {
			return nil, SessionCreateResult{}, fmt.Errorf("session store is not configured")
		}
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, SessionCreateResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		doc, err := scenario.Parse([]byte(input.Scenario))
		if err != nil {
			return nil, SessionCreateResult{}, fmt.Errorf("parse scenario: %w", err)
		}
		state, err := game.CreateState(doc.CreateInput(), nil, nil)
		if err != nil {
			return nil, SessionCreateResult{}, fmt.Errorf("create session: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, storageCallTimeout)
		defer cancel()
		if err := store.SaveSession(callCtx, state); err != nil {
			return nil, SessionCreateResult{}, fmt.Errorf("save session: %w", err)
		}

		NotifyResourceUpdates(ctx, notify, SessionListResource().URI)
		result := SessionCreateResult{
			SessionID:    state.ID,
			Name:         state.Name,
			TurnQueue:    state.TurnQueue,
			TacticalMode: state.TacticalMode,
		}
		return CallToolResultWithID(invocationID), result, nil
	}
}

// SessionForkHandler branches a stored session and persists the branch.
func SessionForkHandler(store storage.Store, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[SessionForkInput, SessionForkResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionForkInput) (*mcp.CallToolResult, SessionForkResult, error) {
		if store == nil {
			return nil, SessionForkResult{}, fmt.Errorf("session store is not configured")
		}
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, SessionForkResult{}, fmt.Errorf("generate invocation id: %w", err)
		}
		if strings.TrimSpace(input.SessionID) == "" {
			return nil, SessionForkResult{}, fmt.Errorf("session_id is required")
		}

		callCtx, cancel := context.WithTimeout(ctx, storageCallTimeout)
		defer cancel()
		branch, err := storage.ForkSession(callCtx, store, input.SessionID, input.Name, nil, nil)
		if err != nil {
			return nil, SessionForkResult{}, fmt.Errorf("fork session: %w", err)
		}

		NotifyResourceUpdates(ctx, notify, SessionListResource().URI)
		result := SessionForkResult{
			SessionID:    branch.ID,
			Name:         branch.Name,
			ParentID:     branch.ParentID,
			OriginID:     branch.OriginID,
			ForkedAtTurn: branch.ForkedAtTurn,
		}
		return CallToolResultWithID(invocationID), result, nil
	}
}

// SessionLineageHandler walks the fork ancestry of a session.
func SessionLineageHandler(store storage.Store) mcp.ToolHandlerFor[SessionLineageInput, SessionLineageResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionLineageInput) (*mcp.CallToolResult, SessionLineageResult, error) {
		if store == nil {
			return nil, SessionLineageResult{}, fmt.Errorf("session store is not configured")
		}
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, SessionLineageResult{}, fmt.Errorf("generate invocation id: %w", err)
		}
		if strings.TrimSpace(input.SessionID) == "" {
			return nil, SessionLineageResult{}, fmt.Errorf("session_id is required")
		}

		callCtx, cancel := context.WithTimeout(ctx, storageCallTimeout)
		defer cancel()
		chain, err := store.Lineage(callCtx, input.SessionID)
		if err != nil {
			return nil, SessionLineageResult{}, fmt.Errorf("session lineage: %w", err)
		}

		result := SessionLineageResult{Depth: len(chain) - 1}
		for _, summary := range chain {
			result.Entries = append(result.Entries, LineageEntry{
				SessionID:    summary.ID,
				Name:         summary.Name,
				ParentID:     summary.ParentID,
				ForkedAtTurn: summary.ForkedAtTurn,
				TurnCount:    summary.TurnCount,
			})
			result.OriginID = summary.OriginID
		}
		return CallToolResultWithID(invocationID), result, nil
	}
}
