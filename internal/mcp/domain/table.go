package domain

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wrenfold/roundtable/internal/action"
	"github.com/wrenfold/roundtable/internal/dice"
	"github.com/wrenfold/roundtable/internal/game"
	"github.com/wrenfold/roundtable/internal/random"
	"github.com/wrenfold/roundtable/internal/storage"
	"github.com/wrenfold/roundtable/internal/telemetry"
)

// ActionResult represents the MCP tool output shared by every table action.
// Rejections are results, not errors: the table stays intact and the caller
// reads why the action was refused.
type ActionResult struct {
	Confirmation string `json:"confirmation" jsonschema:"observation text for the acting agent"`
	Rejected     bool   `json:"rejected,omitempty" jsonschema:"whether the action was rejected"`
	Code         string `json:"code,omitempty" jsonschema:"rejection category when rejected"`
	Total        int    `json:"total,omitempty" jsonschema:"numeric result for dice rolls"`
	Turn         int    `json:"turn" jsonschema:"turn count the entry was recorded under"`
}

// RollDiceInput represents the MCP tool input for rolling dice.
type RollDiceInput struct {
	SessionID  string `json:"session_id" jsonschema:"session identifier"`
	Actor      string `json:"actor,omitempty" jsonschema:"acting agent id, defaults to the director"`
	Expression string `json:"expression" jsonschema:"dice expression such as 2d6+1"`
	Reason     string `json:"reason,omitempty" jsonschema:"what the roll is for"`
}

// SheetUpdateInput represents the MCP tool input for updating a character sheet.
type SheetUpdateInput struct {
	SessionID        string   `json:"session_id" jsonschema:"session identifier"`
	Actor            string   `json:"actor,omitempty" jsonschema:"acting agent id, defaults to the director"`
	Character        string   `json:"character" jsonschema:"character display name"`
	HPSet            *int     `json:"hp_set,omitempty" jsonschema:"set current hit points to this value"`
	HPDelta          *int     `json:"hp_delta,omitempty" jsonschema:"adjust current hit points by this amount"`
	AddEquipment     []string `json:"add_equipment,omitempty" jsonschema:"equipment to add"`
	RemoveEquipment  []string `json:"remove_equipment,omitempty" jsonschema:"equipment to remove"`
	AddConditions    []string `json:"add_conditions,omitempty" jsonschema:"conditions to add"`
	RemoveConditions []string `json:"remove_conditions,omitempty" jsonschema:"conditions to remove"`
}

// WhisperSendInput represents the MCP tool input for sending a whisper.
type WhisperSendInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
	Actor     string `json:"actor,omitempty" jsonschema:"sending agent id, defaults to the director"`
	To        string `json:"to" jsonschema:"receiving agent id"`
	Content   string `json:"content" jsonschema:"the private note"`
}

// SecretRevealInput represents the MCP tool input for revealing a secret.
type SecretRevealInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
	Actor     string `json:"actor,omitempty" jsonschema:"acting agent id, defaults to the director"`
	Agent     string `json:"agent" jsonschema:"agent holding the secret"`
	Secret    string `json:"secret" jsonschema:"whisper id or a fragment of its content"`
}

// CombatParticipant is one NPC fielded when combat starts.
type CombatParticipant struct {
	Key           string `json:"key,omitempty" jsonschema:"roster key, derived from name when empty"`
	Name          string `json:"name" jsonschema:"NPC display name"`
	InitiativeMod int    `json:"initiative_mod,omitempty" jsonschema:"initiative modifier"`
	HPMax         int    `json:"hp_max" jsonschema:"maximum hit points"`
	HPCurrent     int    `json:"hp_current,omitempty" jsonschema:"current hit points, defaults to hp_max"`
	ArmorClass    int    `json:"armor_class,omitempty" jsonschema:"armor class"`
	Personality   string `json:"personality,omitempty" jsonschema:"temperament notes"`
	Tactics       string `json:"tactics,omitempty" jsonschema:"battle behavior notes"`
	Secret        string `json:"secret,omitempty" jsonschema:"private detail the table cannot see"`
}

// CombatStartInput represents the MCP tool input for starting combat.
type CombatStartInput struct {
	SessionID    string              `json:"session_id" jsonschema:"session identifier"`
	Actor        string              `json:"actor,omitempty" jsonschema:"acting agent id, defaults to the director"`
	Participants []CombatParticipant `json:"participants" jsonschema:"NPC participants to field"`
}

// CombatEndInput represents the MCP tool input for ending combat.
type CombatEndInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
	Actor     string `json:"actor,omitempty" jsonschema:"acting agent id, defaults to the director"`
}

// RollDiceTool defines the MCP tool schema for rolling dice.
func RollDiceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll_dice",
		Description: "Resolve an uncertain outcome with dice and record the result in the session log",
	}
}

// SheetUpdateTool defines the MCP tool schema for sheet updates.
func SheetUpdateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "sheet_update",
		Description: "Apply a field-level change to a character sheet",
	}
}

// WhisperSendTool defines the MCP tool schema for whispers.
func WhisperSendTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "whisper_send",
		Description: "Send one agent a private note only they can see",
	}
}

// SecretRevealTool defines the MCP tool schema for revealing secrets.
func SecretRevealTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "secret_reveal",
		Description: "Move a private note into the shared session record",
	}
}

// CombatStartTool defines the MCP tool schema for starting combat.
func CombatStartTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_start",
		Description: "Switch the session into initiative order with the given NPC participants",
	}
}

// CombatEndTool defines the MCP tool schema for ending combat.
func CombatEndTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "combat_end",
		Description: "Return the session to free play and restore the turn rotation",
	}
}

// RollDiceHandler executes a dice roll against a stored session.
func RollDiceHandler(store storage.Store, interceptor *action.Interceptor, emitter *telemetry.Emitter, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[RollDiceInput, ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollDiceInput) (*mcp.CallToolResult, ActionResult, error) {
		req := action.Request{Name: action.NameRollDice, Args: map[string]any{
			"expression": input.Expression,
			"reason":     input.Reason,
		}}
		return runTableAction(ctx, store, interceptor, emitter, notify, input.SessionID, input.Actor, req,
			sessionResourceURI(input.SessionID, "log"))
	}
}

// SheetUpdateHandler applies a sheet delta to a stored session.
func SheetUpdateHandler(store storage.Store, interceptor *action.Interceptor, emitter *telemetry.Emitter, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[SheetUpdateInput, ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SheetUpdateInput) (*mcp.CallToolResult, ActionResult, error) {
		args := map[string]any{"character": input.Character}
		if input.HPSet != nil {
			args["hp_set"] = *input.HPSet
		}
		if input.HPDelta != nil {
			args["hp_delta"] = *input.HPDelta
		}
		if len(input.AddEquipment) > 0 {
			args["add_equipment"] = input.AddEquipment
		}
		if len(input.RemoveEquipment) > 0 {
			args["remove_equipment"] = input.RemoveEquipment
		}
		if len(input.AddConditions) > 0 {
			args["add_conditions"] = input.AddConditions
		}
		if len(input.RemoveConditions) > 0 {
			args["remove_conditions"] = input.RemoveConditions
		}
		req := action.Request{Name: action.NameUpdateSheet, Args: args}
		return runTableAction(ctx, store, interceptor, emitter, notify, input.SessionID, input.Actor, req,
			sessionResourceURI(input.SessionID, "sheets"),
			sessionResourceURI(input.SessionID, "log"))
	}
}

// WhisperSendHandler records a private note for one agent.
func WhisperSendHandler(store storage.Store, interceptor *action.Interceptor, emitter *telemetry.Emitter, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[WhisperSendInput, ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input WhisperSendInput) (*mcp.CallToolResult, ActionResult, error) {
		req := action.Request{Name: action.NameWhisper, Args: map[string]any{
			"to":      input.To,
			"content": input.Content,
		}}
		return runTableAction(ctx, store, interceptor, emitter, notify, input.SessionID, input.Actor, req,
			sessionURIPrefix+strings.TrimSpace(input.SessionID)+"/secrets/"+strings.TrimSpace(input.To))
	}
}

// SecretRevealHandler moves a whisper into the shared record.
func SecretRevealHandler(store storage.Store, interceptor *action.Interceptor, emitter *telemetry.Emitter, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[SecretRevealInput, ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SecretRevealInput) (*mcp.CallToolResult, ActionResult, error) {
		req := action.Request{Name: action.NameRevealSecret, Args: map[string]any{
			"agent":  input.Agent,
			"secret": input.Secret,
		}}
		return runTableAction(ctx, store, interceptor, emitter, notify, input.SessionID, input.Actor, req,
			sessionResourceURI(input.SessionID, "log"),
			sessionURIPrefix+strings.TrimSpace(input.SessionID)+"/secrets/"+strings.TrimSpace(input.Agent))
	}
}

// CombatStartHandler switches a stored session into initiative order.
func CombatStartHandler(store storage.Store, interceptor *action.Interceptor, emitter *telemetry.Emitter, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[CombatStartInput, ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CombatStartInput) (*mcp.CallToolResult, ActionResult, error) {
		req := action.Request{Name: action.NameStartCombat, Args: map[string]any{
			"participants": input.Participants,
		}}
		return runTableAction(ctx, store, interceptor, emitter, notify, input.SessionID, input.Actor, req,
			sessionResourceURI(input.SessionID, "combat"),
			sessionResourceURI(input.SessionID, "log"))
	}
}

// CombatEndHandler returns a stored session to free play.
func CombatEndHandler(store storage.Store, interceptor *action.Interceptor, emitter *telemetry.Emitter, notify ResourceUpdateNotifier) mcp.ToolHandlerFor[CombatEndInput, ActionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CombatEndInput) (*mcp.CallToolResult, ActionResult, error) {
		req := action.Request{Name: action.NameEndCombat, Args: map[string]any{}}
		return runTableAction(ctx, store, interceptor, emitter, notify, input.SessionID, input.Actor, req,
			sessionResourceURI(input.SessionID, "combat"),
			sessionResourceURI(input.SessionID, "log"))
	}
}

// runTableAction loads the session, routes the request through the action
// registry, persists the replacement state on success, and reports the
// outcome. Rejected actions leave the stored state untouched.
func runTableAction(
	ctx context.Context,
	store storage.Store,
	interceptor *action.Interceptor,
	emitter *telemetry.Emitter,
	notify ResourceUpdateNotifier,
	sessionID, actor string,
	req action.Request,
	touchedURIs ...string,
) (*mcp.CallToolResult, ActionResult, error) {
	if store == nil {
		return nil, ActionResult{}, fmt.Errorf("session store is not configured")
	}
	invocationID, err := NewInvocationID()
	if err != nil {
		return nil, ActionResult{}, fmt.Errorf("generate invocation id: %w", err)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ActionResult{}, fmt.Errorf("session_id is required")
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = game.DirectorAgent
	}
	if interceptor == nil {
		interceptor = action.NewInterceptor(nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, storageCallTimeout)
	defer cancel()

	state, err := store.LoadSession(callCtx, sessionID)
	if err != nil {
		return nil, ActionResult{}, fmt.Errorf("load session: %w", err)
	}

	seed, err := random.NewSeed()
	if err != nil {
		return nil, ActionResult{}, fmt.Errorf("seed dice: %w", err)
	}

	outcome := interceptor.Apply(action.Invocation{
		Actor: actor,
		Turn:  state.TurnCount,
		Dice:  dice.NewSource(seed),
	}, state, req)

	result := ActionResult{
		Confirmation: outcome.Confirmation,
		Rejected:     outcome.Rejected,
		Code:         outcome.Code,
		Total:        outcome.Total,
		Turn:         state.TurnCount,
	}

	if outcome.Rejected {
		emitEvent(ctx, emitter, storage.TelemetryEvent{
			SessionID: sessionID,
			EventName: telemetry.EventActionRejected,
			Actor:     actor,
			Detail:    fmt.Sprintf("%s: %s", req.Name, outcome.Code),
			Turn:      state.TurnCount,
		})
		return CallToolResultWithID(invocationID), result, nil
	}

	saved := outcome.State.Stamp(time.Now())
	if err := store.SaveSession(callCtx, saved); err != nil {
		return nil, ActionResult{}, fmt.Errorf("save session: %w", err)
	}

	emitEvent(ctx, emitter, storage.TelemetryEvent{
		SessionID: sessionID,
		EventName: telemetry.EventActionApplied,
		Actor:     actor,
		Detail:    req.Name,
		Turn:      state.TurnCount,
	})
	switch {
	case !state.Combat.Active && saved.Combat.Active:
		emitEvent(ctx, emitter, storage.TelemetryEvent{
			SessionID: sessionID,
			EventName: telemetry.EventCombatStarted,
			Actor:     actor,
			Detail:    strings.Join(saved.Combat.InitiativeOrder, ", "),
			Turn:      state.TurnCount,
		})
	case state.Combat.Active && !saved.Combat.Active:
		emitEvent(ctx, emitter, storage.TelemetryEvent{
			SessionID: sessionID,
			EventName: telemetry.EventCombatEnded,
			Actor:     actor,
			Turn:      state.TurnCount,
		})
	}

	NotifyResourceUpdates(ctx, notify, touchedURIs...)
	return CallToolResultWithID(invocationID), result, nil
}

func emitEvent(ctx context.Context, emitter *telemetry.Emitter, evt storage.TelemetryEvent) {
	if err := emitter.Emit(ctx, evt); err != nil {
		log.Printf("emit telemetry %s: %v", evt.EventName, err)
	}
}

// sessionResourceURI builds session://{session_id}/{resourceType}.
func sessionResourceURI(sessionID, resourceType string) string {
	return sessionURIPrefix + strings.TrimSpace(sessionID) + "/" + resourceType
}
