package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wrenfold/roundtable/internal/game"
	"github.com/wrenfold/roundtable/internal/storage"
)

// SessionListEntry represents a readable session entry.
type SessionListEntry struct {
	SessionID    string `json:"session_id"`
	Name         string `json:"name"`
	TurnCount    int    `json:"turn_count"`
	ParentID     string `json:"parent_id,omitempty"`
	OriginID     string `json:"origin_id"`
	ForkedAtTurn int    `json:"forked_at_turn,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// SessionListPayload represents the MCP resource payload for session listings.
type SessionListPayload struct {
	Sessions []SessionListEntry `json:"sessions"`
}

// SheetAbilities represents the six ability scores of a sheet.
type SheetAbilities struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// SheetSpellcasting represents casting data for characters that cast spells.
type SheetSpellcasting struct {
	Ability      string      `json:"ability,omitempty"`
	SlotsByLevel map[int]int `json:"slots_by_level,omitempty"`
	Known        []string    `json:"known,omitempty"`
}

// SheetEntry represents one readable character sheet.
type SheetEntry struct {
	Agent         string             `json:"agent,omitempty"`
	Name          string             `json:"name"`
	Class         string             `json:"class,omitempty"`
	Level         int                `json:"level,omitempty"`
	Abilities     SheetAbilities     `json:"abilities"`
	HPCurrent     int                `json:"hp_current"`
	HPMax         int                `json:"hp_max"`
	ArmorClass    int                `json:"armor_class,omitempty"`
	InitiativeMod int                `json:"initiative_mod,omitempty"`
	Proficiencies []string           `json:"proficiencies,omitempty"`
	Equipment     []string           `json:"equipment,omitempty"`
	Conditions    []string           `json:"conditions,omitempty"`
	Spellcasting  *SheetSpellcasting `json:"spellcasting,omitempty"`
}

// SheetsPayload represents the MCP resource payload for party sheets.
type SheetsPayload struct {
	SessionID string       `json:"session_id"`
	Sheets    []SheetEntry `json:"sheets"`
}

// LogEntry represents one readable shared-record entry.
type LogEntry struct {
	Kind    string `json:"kind"`
	Turn    int    `json:"turn"`
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// LogPayload represents the MCP resource payload for the session log.
type LogPayload struct {
	SessionID string     `json:"session_id"`
	Entries   []LogEntry `json:"entries"`
}

// SecretEntry represents one readable whisper.
type SecretEntry struct {
	ID           string `json:"id"`
	From         string `json:"from"`
	Content      string `json:"content"`
	TurnCreated  int    `json:"turn_created"`
	Revealed     bool   `json:"revealed,omitempty"`
	TurnRevealed *int   `json:"turn_revealed,omitempty"`
}

// SecretsPayload represents the MCP resource payload for one agent's whispers.
type SecretsPayload struct {
	SessionID string        `json:"session_id"`
	AgentID   string        `json:"agent_id"`
	Secrets   []SecretEntry `json:"secrets"`
}

// NpcEntry represents one readable combat NPC. The profile's private detail
// stays out of this payload on purpose.
type NpcEntry struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	HPCurrent  int      `json:"hp_current"`
	HPMax      int      `json:"hp_max"`
	ArmorClass int      `json:"armor_class,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
}

// CombatPayload represents the MCP resource payload for combat state.
type CombatPayload struct {
	SessionID       string         `json:"session_id"`
	Active          bool           `json:"active"`
	RoundNumber     int            `json:"round_number,omitempty"`
	InitiativeOrder []string       `json:"initiative_order,omitempty"`
	InitiativeRolls map[string]int `json:"initiative_rolls,omitempty"`
	Npcs            []NpcEntry     `json:"npcs,omitempty"`
}

// SessionListResource defines the MCP resource for session listings.
func SessionListResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "session_list",
		Title:       "Sessions",
		Description: "Readable listing of stored sessions, newest first",
		MIMEType:    "application/json",
		URI:         "sessions://list",
	}
}

// SheetsResourceTemplate defines the MCP resource template for party sheets.
func SheetsResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "session_sheets",
		Title:       "Character sheets",
		Description: "Readable party character sheets for a session. URI format: session://{session_id}/sheets",
		MIMEType:    "application/json",
		URITemplate: "session://{session_id}/sheets",
	}
}

// LogResourceTemplate defines the MCP resource template for the shared record.
func LogResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "session_log",
		Title:       "Session log",
		Description: "Readable append-only shared record for a session. URI format: session://{session_id}/log",
		MIMEType:    "application/json",
		URITemplate: "session://{session_id}/log",
	}
}

// SecretsResourceTemplate defines the MCP resource template for agent whispers.
func SecretsResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "session_secrets",
		Title:       "Agent whispers",
		Description: "Readable whispers visible to one agent. URI format: session://{session_id}/secrets/{agent_id}",
		MIMEType:    "application/json",
		URITemplate: "session://{session_id}/secrets/{agent_id}",
	}
}

// CombatResourceTemplate defines the MCP resource template for combat state.
func CombatResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "session_combat",
		Title:       "Combat state",
		Description: "Readable initiative order and NPC standing for a session. URI format: session://{session_id}/combat",
		MIMEType:    "application/json",
		URITemplate: "session://{session_id}/combat",
	}
}

// SessionListResourceHandler returns a readable session listing resource.
func SessionListResourceHandler(store storage.Store) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if store == nil {
			return nil, fmt.Errorf("session store is not configured")
		}

		uri := SessionListResource().URI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}

		callCtx, cancel := context.WithTimeout(ctx, storageCallTimeout)
		defer cancel()
		sessions, err := store.ListSessions(callCtx)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}

		payload := SessionListPayload{}
		for _, summary := range sessions {
			payload.Sessions = append(payload.Sessions, SessionListEntry{
				SessionID:    summary.ID,
				Name:         summary.Name,
				TurnCount:    summary.TurnCount,
				ParentID:     summary.ParentID,
				OriginID:     summary.OriginID,
				ForkedAtTurn: summary.ForkedAtTurn,
				CreatedAt:    summary.CreatedAt.Format(time.RFC3339),
				UpdatedAt:    summary.UpdatedAt.Format(time.RFC3339),
			})
		}
		return resourceResult(uri, payload)
	}
}

// SheetsResourceHandler returns the party's character sheets.
func SheetsResourceHandler(store storage.Store) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		state, uri, err := loadResourceSession(ctx, store, req, "sheets")
		if err != nil {
			return nil, err
		}

		agentByName := make(map[string]string, len(state.Party))
		for agent, name := range state.Party {
			agentByName[name] = agent
		}

		payload := SheetsPayload{SessionID: state.ID}
		for _, sheet := range state.Sheets {
			entry := SheetEntry{
				Agent: agentByName[sheet.Name],
				Name:  sheet.Name,
				Class: sheet.Class,
				Level: sheet.Level,
				Abilities: SheetAbilities{
					Strength:     sheet.Abilities.Strength,
					Dexterity:    sheet.Abilities.Dexterity,
					Constitution: sheet.Abilities.Constitution,
					Intelligence: sheet.Abilities.Intelligence,
					Wisdom:       sheet.Abilities.Wisdom,
					Charisma:     sheet.Abilities.Charisma,
				},
				HPCurrent:     sheet.HPCurrent,
				HPMax:         sheet.HPMax,
				ArmorClass:    sheet.ArmorClass,
				InitiativeMod: sheet.InitiativeMod,
				Proficiencies: sheet.Proficiencies,
				Equipment:     sheet.Equipment,
				Conditions:    sheet.Conditions,
			}
			if sheet.Spellcasting != nil {
				entry.Spellcasting = &SheetSpellcasting{
					Ability:      sheet.Spellcasting.Ability,
					SlotsByLevel: sheet.Spellcasting.SlotsByLevel,
					Known:        sheet.Spellcasting.Known,
				}
			}
			payload.Sheets = append(payload.Sheets, entry)
		}
		sort.Slice(payload.Sheets, func(i, j int) bool {
			return payload.Sheets[i].Name < payload.Sheets[j].Name
		})
		return resourceResult(uri, payload)
	}
}

// LogResourceHandler returns the shared record for a session.
func LogResourceHandler(store storage.Store) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		state, uri, err := loadResourceSession(ctx, store, req, "log")
		if err != nil {
			return nil, err
		}

		payload := LogPayload{SessionID: state.ID}
		for _, entry := range state.Log {
			payload.Entries = append(payload.Entries, LogEntry{
				Kind:    string(entry.Kind),
				Turn:    entry.Turn,
				Speaker: entry.Speaker,
				Content: entry.Content,
			})
		}
		return resourceResult(uri, payload)
	}
}

// SecretsResourceHandler returns the whispers one agent can see.
func SecretsResourceHandler(store storage.Store) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if store == nil {
			return nil, fmt.Errorf("session store is not configured")
		}
		if req == nil || req.Params == nil || req.Params.URI == "" {
			return nil, fmt.Errorf("session and agent IDs are required; use URI format session://{session_id}/secrets/{agent_id}")
		}
		uri := req.Params.URI

		sessionID, agentID, err := parseSecretsResourceURI(uri)
		if err != nil {
			return nil, fmt.Errorf("parse secrets URI: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, storageCallTimeout)
		defer cancel()
		state, err := store.LoadSession(callCtx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		if _, ok := state.Party[agentID]; !ok && agentID != game.DirectorAgent {
			return nil, fmt.Errorf("no agent %q in session %s", agentID, sessionID)
		}

		payload := SecretsPayload{SessionID: state.ID, AgentID: agentID}
		for _, whisper := range state.Secrets[agentID] {
			payload.Secrets = append(payload.Secrets, SecretEntry{
				ID:           whisper.ID,
				From:         whisper.FromAgent,
				Content:      whisper.Content,
				TurnCreated:  whisper.TurnCreated,
				Revealed:     whisper.Revealed,
				TurnRevealed: whisper.TurnRevealed,
			})
		}
		return resourceResult(uri, payload)
	}
}

// CombatResourceHandler returns the initiative order and NPC standing.
func CombatResourceHandler(store storage.Store) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		state, uri, err := loadResourceSession(ctx, store, req, "combat")
		if err != nil {
			return nil, err
		}

		payload := CombatPayload{
			SessionID:       state.ID,
			Active:          state.Combat.Active,
			RoundNumber:     state.Combat.RoundNumber,
			InitiativeOrder: state.Combat.InitiativeOrder,
			InitiativeRolls: state.Combat.InitiativeRolls,
		}
		for key, profile := range state.Combat.NpcProfiles {
			payload.Npcs = append(payload.Npcs, NpcEntry{
				Key:        key,
				Name:       profile.Name,
				HPCurrent:  profile.HPCurrent,
				HPMax:      profile.HPMax,
				ArmorClass: profile.ArmorClass,
				Conditions: profile.Conditions,
			})
		}
		sort.Slice(payload.Npcs, func(i, j int) bool {
			return payload.Npcs[i].Key < payload.Npcs[j].Key
		})
		return resourceResult(uri, payload)
	}
}

// loadResourceSession validates the request and loads the session addressed
// by a session://{session_id}/{resourceType} URI.
func loadResourceSession(ctx context.Context, store storage.Store, req *mcp.ReadResourceRequest, resourceType string) (game.GameState, string, error) {
	if store == nil {
		return game.GameState{}, "", fmt.Errorf("session store is not configured")
	}
	if req == nil || req.Params == nil || req.Params.URI == "" {
		return game.GameState{}, "", fmt.Errorf("session ID is required; use URI format session://{session_id}/%s", resourceType)
	}
	uri := req.Params.URI

	sessionID, err := parseSessionIDFromResourceURI(uri, resourceType)
	if err != nil {
		return game.GameState{}, "", fmt.Errorf("parse session ID from URI: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, storageCallTimeout)
	defer cancel()
	state, err := store.LoadSession(callCtx, sessionID)
	if err != nil {
		return game.GameState{}, "", fmt.Errorf("load session: %w", err)
	}
	return state, uri, nil
}

func resourceResult(uri string, payload any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource payload: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
