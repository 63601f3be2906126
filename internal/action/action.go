// Package action implements the tool-call interceptor: a closed registry of
// named actions that validate their arguments against the current state and
// either return a replacement state with a confirmation or the unchanged
// state with a descriptive rejection. Nothing here is fatal; rejections are
// observations handed back to the requesting agent.
package action

import (
	"github.com/wrenfold/roundtable/internal/dice"
	"github.com/wrenfold/roundtable/internal/game"
	"github.com/wrenfold/roundtable/internal/id"
)

const (
	// NameRollDice resolves an uncertain outcome with dice.
	NameRollDice = "roll-dice"
	// NameUpdateSheet applies a field-level delta to a character.
	NameUpdateSheet = "update-sheet"
	// NameWhisper sends one agent a private note.
	NameWhisper = "whisper"
	// NameRevealSecret moves a whisper into the shared record.
	NameRevealSecret = "reveal-secret"
	// NameStartCombat switches the session into initiative order.
	NameStartCombat = "start-combat"
	// NameEndCombat returns the session to free play.
	NameEndCombat = "end-combat"
)

const (
	rejectionCodeUnknownAction   = "ACTION_UNKNOWN"
	rejectionCodeBadArguments    = "ACTION_BAD_ARGUMENTS"
	rejectionCodeDiceUnavailable = "DICE_UNAVAILABLE"
	rejectionCodeDiceExpr        = "DICE_EXPRESSION_INVALID"
	rejectionCodeNoSuchCharacter = "SHEET_NO_SUCH_CHARACTER"
	rejectionCodeEmptyPatch      = "SHEET_EMPTY_PATCH"
	rejectionCodeWhisperInvalid  = "WHISPER_INVALID"
	rejectionCodeNoSuchAgent     = "SECRET_NO_SUCH_AGENT"
	rejectionCodeSecretNotFound  = "SECRET_NOT_FOUND"
	rejectionCodeSecretRevealed  = "SECRET_ALREADY_REVEALED"
	rejectionCodeCombatInvalid   = "COMBAT_INVALID_PARTICIPANTS"
)

// Request is one requested action: a canonical name plus decoded JSON
// arguments as they arrive from the model boundary.
type Request struct {
	Name string
	Args map[string]any
}

// Invocation carries the per-turn inputs a handler may draw on. Actor and
// Turn stamp log entries and new whispers; Dice feeds the rolling actions.
type Invocation struct {
	Actor string
	Turn  int
	Dice  dice.Source
	// NewID generates whisper identifiers. Nil falls back to id.NewID.
	NewID func() (string, error)
}

func (inv Invocation) idGenerator() func() (string, error) {
	if inv.NewID != nil {
		return inv.NewID
	}
	return id.NewID
}

// Outcome is the result of intercepting one action. State is the
// replacement state on success and the input state, untouched, on
// rejection or no-op.
type Outcome struct {
	State game.GameState
	// Confirmation is the observation returned to the requesting agent,
	// for accepted and rejected actions alike.
	Confirmation string
	Rejected     bool
	// Code labels the rejection category. Empty on success.
	Code string
	// Total carries the numeric result of roll-dice. Zero otherwise.
	Total int
}

func accept(state game.GameState, confirmation string) Outcome {
	return Outcome{State: state, Confirmation: confirmation}
}

func reject(state game.GameState, code, message string) Outcome {
	return Outcome{State: state, Confirmation: message, Rejected: true, Code: code}
}

// displayName resolves an agent id to its character name when one is bound.
func displayName(state game.GameState, agent string) string {
	if name, ok := state.Party[agent]; ok {
		return name
	}
	return agent
}
