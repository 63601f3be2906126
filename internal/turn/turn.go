// Package turn decides whose turn is next. Exploration cycles the session's
// turn queue; active combat cycles the initiative order instead, with NPC
// slots routed to the director. The router is pure: it reads one state and
// returns the next actor plus a replacement state with advanced counters.
package turn

import (
	"errors"

	"github.com/wrenfold/roundtable/internal/game"
)

// ErrEmptyOrder indicates a state with nothing to cycle.
var ErrEmptyOrder = errors.New("turn order is empty")

// Actor identifies who takes the upcoming turn.
type Actor struct {
	// AgentID is the agent that acts: the director for its own slots and
	// for NPC slots, otherwise the PC agent.
	AgentID string
	// Key is the raw order entry the actor was routed from.
	Key string
	// NpcKey names the director-controlled NPC when the slot is an NPC
	// initiative entry, empty otherwise.
	NpcKey string
}

// Next picks the actor for the upcoming turn and advances the counters.
// In combat, completing a full pass over the initiative order increments
// the round number.
func Next(state game.GameState) (Actor, game.GameState, error) {
	order := state.TurnQueue
	if state.Combat.Active {
		order = state.Combat.InitiativeOrder
	}
	if len(order) == 0 {
		return Actor{}, state, ErrEmptyOrder
	}

	idx := state.Cursor % len(order)
	key := order[idx]

	next := state
	if state.Combat.Active && idx == 0 && state.Cursor > 0 {
		next.Combat = state.Combat
		next.Combat.RoundNumber = state.Combat.RoundNumber + 1
	}
	next.Cursor = state.Cursor + 1
	next.TurnCount = state.TurnCount + 1

	return routeKey(key), next, nil
}

func routeKey(key string) Actor {
	if npcKey, ok := game.ParseNpcTurnKey(key); ok {
		return Actor{AgentID: game.DirectorAgent, Key: key, NpcKey: npcKey}
	}
	return Actor{AgentID: key, Key: key}
}

// Resolve reconciles routing state after an applied action. Combat
// activation restarts the cursor at the top of the initiative order; combat
// end restores the exploration queue from the snapshot taken at activation
// and restarts the cursor at the top of the queue. All other outcomes pass
// through untouched.
func Resolve(before, after game.GameState) game.GameState {
	switch {
	case !before.Combat.Active && after.Combat.Active:
		out := after
		out.Cursor = 0
		return out
	case before.Combat.Active && !after.Combat.Active:
		out := after
		if len(before.Combat.OriginalTurnQueue) > 0 {
			out = out.WithTurnQueue(before.Combat.OriginalTurnQueue)
		}
		out.Cursor = 0
		return out
	default:
		return after
	}
}
