package action

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wrenfold/roundtable/internal/game"
)

type updateSheetArgs struct {
	Character        string   `json:"character"`
	HPSet            *int     `json:"hp_set,omitempty"`
	HPDelta          *int     `json:"hp_delta,omitempty"`
	AddEquipment     []string `json:"add_equipment,omitempty"`
	RemoveEquipment  []string `json:"remove_equipment,omitempty"`
	AddConditions    []string `json:"add_conditions,omitempty"`
	RemoveConditions []string `json:"remove_conditions,omitempty"`
}

func updateSheetDefinition() Definition {
	return Definition{
		Name:        NameUpdateSheet,
		Description: "Apply a delta to a character: set or shift hit points, add or remove equipment and conditions. Hit points clamp between 0 and the maximum.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"character": map[string]any{
					"type":        "string",
					"description": "Display name of the character, or an NPC name during combat.",
				},
				"hp_set": map[string]any{
					"type":        "integer",
					"description": "Absolute new hit point value.",
				},
				"hp_delta": map[string]any{
					"type":        "integer",
					"description": "Signed hit point change, e.g. -7 for damage.",
				},
				"add_equipment":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"remove_equipment":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"add_conditions":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"remove_conditions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"character"},
		},
		Handler: handleUpdateSheet,
	}
}

func handleUpdateSheet(inv Invocation, state game.GameState, args map[string]any) Outcome {
	var parsed updateSheetArgs
	if err := decodeArgs(args, &parsed); err != nil {
		return reject(state, rejectionCodeBadArguments, fmt.Sprintf("update-sheet arguments invalid: %v", err))
	}

	name := strings.TrimSpace(parsed.Character)
	if name == "" {
		return reject(state, rejectionCodeBadArguments, "update-sheet needs a character name")
	}

	patch := game.SheetPatch{
		HPSet:            parsed.HPSet,
		HPDelta:          parsed.HPDelta,
		AddEquipment:     parsed.AddEquipment,
		RemoveEquipment:  parsed.RemoveEquipment,
		AddConditions:    parsed.AddConditions,
		RemoveConditions: parsed.RemoveConditions,
	}
	if patch.IsZero() {
		return reject(state, rejectionCodeEmptyPatch, fmt.Sprintf("update-sheet for %s changes nothing", name))
	}

	if sheet, ok := state.Sheets[name]; ok {
		updated, change := game.ApplySheetPatch(sheet, patch)
		summary := change.Summary()
		next := state.WithSheet(name, updated).AppendLog(game.LogEntry{
			Kind:    game.EntrySheetChange,
			Turn:    inv.Turn,
			Speaker: inv.Actor,
			Content: summary,
		})
		return accept(next, summary)
	}

	if key, profile, ok := findNpc(state, name); ok {
		updated, change := game.ApplyNpcPatch(profile, patch)
		summary := change.Summary()
		combat := state.Combat.Clone()
		combat.NpcProfiles[key] = updated
		next := state.WithCombat(combat).AppendLog(game.LogEntry{
			Kind:    game.EntrySheetChange,
			Turn:    inv.Turn,
			Speaker: inv.Actor,
			Content: summary,
		})
		return accept(next, summary)
	}

	return reject(state, rejectionCodeNoSuchCharacter, fmt.Sprintf("no character named %q at the table", name))
}

// findNpc matches a profile by key or display name, case-insensitively.
// Name matches scan keys in sorted order so the result is deterministic.
func findNpc(state game.GameState, name string) (string, game.NpcProfile, bool) {
	lowered := strings.ToLower(name)
	if profile, ok := state.Combat.NpcProfiles[lowered]; ok {
		return lowered, profile, true
	}

	keys := make([]string, 0, len(state.Combat.NpcProfiles))
	for key := range state.Combat.NpcProfiles {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		profile := state.Combat.NpcProfiles[key]
		if strings.ToLower(profile.Name) == lowered {
			return key, profile, true
		}
	}
	return "", game.NpcProfile{}, false
}
