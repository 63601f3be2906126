package action

import (
	"fmt"
	"strings"

	"github.com/wrenfold/roundtable/internal/dice"
	"github.com/wrenfold/roundtable/internal/game"
)

type rollDiceArgs struct {
	Expression string `json:"expression"`
	Reason     string `json:"reason,omitempty"`
}

func rollDiceDefinition() Definition {
	return Definition{
		Name:        NameRollDice,
		Description: "Roll dice for an uncertain outcome. Returns the formatted roll and its total, and records it in the shared log.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "Dice expression such as d20, 2d6, or 2d6+3.",
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "What the roll is for, e.g. Perception check.",
				},
			},
			"required": []string{"expression"},
		},
		Handler: handleRollDice,
	}
}

func handleRollDice(inv Invocation, state game.GameState, args map[string]any) Outcome {
	var parsed rollDiceArgs
	if err := decodeArgs(args, &parsed); err != nil {
		return reject(state, rejectionCodeBadArguments, fmt.Sprintf("roll-dice arguments invalid: %v", err))
	}
	if inv.Dice == nil {
		return reject(state, rejectionCodeDiceUnavailable, "no randomness source is configured for this session")
	}

	expr, err := dice.ParseExpr(parsed.Expression)
	if err != nil {
		return reject(state, rejectionCodeDiceExpr, fmt.Sprintf("cannot read %q: %v", parsed.Expression, err))
	}
	result, err := dice.RollExpr(inv.Dice, expr)
	if err != nil {
		return reject(state, rejectionCodeDiceExpr, fmt.Sprintf("cannot roll %q: %v", parsed.Expression, err))
	}

	content := result.String()
	if reason := strings.TrimSpace(parsed.Reason); reason != "" {
		content = fmt.Sprintf("%s: %s", reason, content)
	}

	next := state.AppendLog(game.LogEntry{
		Kind:    game.EntryDice,
		Turn:    inv.Turn,
		Speaker: inv.Actor,
		Content: content,
	})

	out := accept(next, content)
	out.Total = result.Total
	return out
}
