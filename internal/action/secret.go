package action

import (
	"fmt"
	"strings"

	"github.com/wrenfold/roundtable/internal/game"
)

type whisperArgs struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

func whisperDefinition() Definition {
	return Definition{
		Name:        NameWhisper,
		Description: "Send one agent a private note that only they can see. It never appears in the shared log unless revealed later.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"to": map[string]any{
					"type":        "string",
					"description": "Agent identifier of the recipient.",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "The private information.",
				},
			},
			"required": []string{"to", "content"},
		},
		Handler: handleWhisper,
	}
}

func handleWhisper(inv Invocation, state game.GameState, args map[string]any) Outcome {
	var parsed whisperArgs
	if err := decodeArgs(args, &parsed); err != nil {
		return reject(state, rejectionCodeBadArguments, fmt.Sprintf("whisper arguments invalid: %v", err))
	}

	w, err := game.CreateWhisper(game.CreateWhisperInput{
		FromAgent: inv.Actor,
		ToAgent:   parsed.To,
		Content:   parsed.Content,
		Turn:      inv.Turn,
	}, inv.idGenerator())
	if err != nil {
		return reject(state, rejectionCodeWhisperInvalid, fmt.Sprintf("whisper not sent: %v", err))
	}

	next := state.AddWhisper(w)
	return accept(next, fmt.Sprintf("whisper %s delivered to %s; it stays private until revealed", w.ID, w.ToAgent))
}

type revealSecretArgs struct {
	Agent  string `json:"agent"`
	Secret string `json:"secret"`
}

func revealSecretDefinition() Definition {
	return Definition{
		Name:        NameRevealSecret,
		Description: "Reveal one of an agent's private secrets to the whole table. Identify the secret by its id or a distinctive phrase from its content.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent": map[string]any{
					"type":        "string",
					"description": "Agent identifier whose secret is being revealed.",
				},
				"secret": map[string]any{
					"type":        "string",
					"description": "Whisper id or a case-insensitive phrase from its content.",
				},
			},
			"required": []string{"agent", "secret"},
		},
		Handler: handleRevealSecret,
	}
}

func handleRevealSecret(inv Invocation, state game.GameState, args map[string]any) Outcome {
	var parsed revealSecretArgs
	if err := decodeArgs(args, &parsed); err != nil {
		return reject(state, rejectionCodeBadArguments, fmt.Sprintf("reveal-secret arguments invalid: %v", err))
	}

	agent := strings.TrimSpace(parsed.Agent)
	if agent == "" {
		return reject(state, rejectionCodeBadArguments, "reveal-secret needs an agent identifier")
	}
	if _, known := state.Party[agent]; !known && len(state.Secrets[agent]) == 0 {
		return reject(state, rejectionCodeNoSuchAgent, fmt.Sprintf("no agent named %q at the table", agent))
	}

	list := state.Secrets[agent]
	index, kind := game.MatchWhisper(list, parsed.Secret)
	switch kind {
	case game.MatchActive:
		// revealed below
	case game.MatchRevealed:
		matched := list[index]
		if matched.TurnRevealed != nil {
			return reject(state, rejectionCodeSecretRevealed,
				fmt.Sprintf("secret %s was already revealed on turn %d", matched.ID, *matched.TurnRevealed))
		}
		return reject(state, rejectionCodeSecretRevealed, fmt.Sprintf("secret %s was already revealed", matched.ID))
	default:
		return reject(state, rejectionCodeSecretNotFound,
			fmt.Sprintf("no unrevealed secret for %s matches %q", agent, strings.TrimSpace(parsed.Secret)))
	}

	revealed := game.RevealWhisper(list, index, inv.Turn)
	w := revealed[index]
	content := fmt.Sprintf("Secret about %s comes to light: %s", displayName(state, agent), w.Content)

	// The secret flip and its log entry land on the same replacement
	// state, so readers never observe one without the other.
	next := state.WithSecrets(agent, revealed).AppendLog(game.LogEntry{
		Kind:    game.EntrySecretReveal,
		Turn:    inv.Turn,
		Speaker: inv.Actor,
		Content: content,
	})
	return accept(next, content)
}
