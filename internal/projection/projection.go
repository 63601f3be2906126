// Package projection builds per-actor views of a session. The director sees
// the whole table; a player agent sees the shared log, its own sheet, and its
// own unrevealed secrets. Nothing in this package mutates game state.
package projection

import (
	"sort"

	"github.com/wrenfold/roundtable/internal/game"
)

// Role labels which side of the table an actor context was built for.
type Role string

const (
	RoleDirector Role = "director"
	RolePlayer   Role = "player"
)

// AgentSecrets groups one agent's active whispers. The director context
// carries one group per agent that holds unrevealed secrets; a player
// context carries at most its own group.
type AgentSecrets struct {
	Agent    string
	Whispers []game.Whisper
}

// CombatView is the table-visible slice of combat: who acts in what order
// and on which round. NPC tactics and secrets are never part of it.
type CombatView struct {
	Active          bool
	RoundNumber     int
	InitiativeOrder []string
	InitiativeRolls map[string]int
}

// ActorContext is everything one actor may see when taking a turn.
type ActorContext struct {
	ActorID      string
	Role         Role
	SessionName  string
	TurnNumber   int
	TacticalMode bool

	// Log is the shared narrative record, visible in full to every actor.
	Log []game.LogEntry
	// Sheets holds every sheet for the director, exactly one for a player,
	// ordered by character name.
	Sheets []game.CharacterSheet
	// Secrets holds only active (unrevealed) whispers, grouped by owning
	// agent in agent order.
	Secrets []AgentSecrets
	Combat  CombatView

	// NpcFocus is set on director contexts routed to an NPC initiative
	// slot. It replaces the per-PC sheet focus for that turn.
	NpcFocus *game.NpcProfile
}

// BuildActorContext assembles the view for one actor. Pure: the result
// shares no mutable data with the state it was built from.
func BuildActorContext(state game.GameState, actorID string) ActorContext {
	if actorID == game.DirectorAgent {
		return directorContext(state)
	}
	return playerContext(state, actorID)
}

// BuildNpcContext assembles the director's view for a routed NPC slot with
// that NPC's profile attached. An unknown key yields the plain director
// context.
func BuildNpcContext(state game.GameState, npcKey string) ActorContext {
	ctx := directorContext(state)
	if profile, ok := state.Combat.NpcProfiles[npcKey]; ok {
		focused := profile
		ctx.NpcFocus = &focused
	}
	return ctx
}

func directorContext(state game.GameState) ActorContext {
	return ActorContext{
		ActorID:      game.DirectorAgent,
		Role:         RoleDirector,
		SessionName:  state.Name,
		TurnNumber:   state.TurnCount,
		TacticalMode: state.TacticalMode,
		Log:          copyLog(state.Log),
		Sheets:       SheetSet(state),
		Secrets:      allActiveSecrets(state),
		Combat:       CombatSummaryView(state),
	}
}

func playerContext(state game.GameState, actorID string) ActorContext {
	ctx := ActorContext{
		ActorID:      actorID,
		Role:         RolePlayer,
		SessionName:  state.Name,
		TurnNumber:   state.TurnCount,
		TacticalMode: state.TacticalMode,
		Log:          copyLog(state.Log),
		Combat:       CombatSummaryView(state),
	}
	if sheet, ok := state.SheetFor(actorID); ok {
		ctx.Sheets = []game.CharacterSheet{sheet}
	}
	if own := ActiveSecrets(state, actorID); len(own) > 0 {
		ctx.Secrets = []AgentSecrets{{Agent: actorID, Whispers: own}}
	}
	return ctx
}

func allActiveSecrets(state game.GameState) []AgentSecrets {
	agents := make([]string, 0, len(state.Secrets))
	for agent := range state.Secrets {
		agents = append(agents, agent)
	}
	sort.Strings(agents)

	var groups []AgentSecrets
	for _, agent := range agents {
		active := ActiveSecrets(state, agent)
		if len(active) == 0 {
			continue
		}
		groups = append(groups, AgentSecrets{Agent: agent, Whispers: active})
	}
	return groups
}

func copyLog(entries []game.LogEntry) []game.LogEntry {
	if len(entries) == 0 {
		return nil
	}
	return append([]game.LogEntry(nil), entries...)
}
