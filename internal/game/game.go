// Package game holds the canonical session state for the orchestration
// engine: character sheets, whispers, combat, the ground-truth log, and the
// turn queue.
//
// Every value in this package is mutable by replacement only. Transition
// helpers return a new GameState and never edit the receiver in place, which
// is what makes atomic action application and timeline forking tractable.
package game

import "strings"

// DirectorAgent is the reserved identifier for the director (DM) agent. It
// appears exactly once in every turn queue and bookends combat orders.
const DirectorAgent = "director"

// npcKeySeparator joins the director identifier to an NPC key in combat
// initiative orders.
const npcKeySeparator = ":"

// NpcTurnKey builds the initiative-order key for a director-controlled NPC.
func NpcTurnKey(npcKey string) string {
	return DirectorAgent + npcKeySeparator + npcKey
}

// ParseNpcTurnKey splits a combatant key of the form "director:<npc_key>".
// The second return is false for PC keys and the director bookend.
func ParseNpcTurnKey(key string) (string, bool) {
	npcKey, ok := strings.CutPrefix(key, DirectorAgent+npcKeySeparator)
	if !ok || npcKey == "" {
		return "", false
	}
	return npcKey, true
}
