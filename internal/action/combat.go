package action

import (
	"fmt"
	"strings"

	"github.com/wrenfold/roundtable/internal/game"
)

type combatParticipant struct {
	Key           string `json:"key,omitempty"`
	Name          string `json:"name"`
	InitiativeMod int    `json:"initiative_mod,omitempty"`
	HPMax         int    `json:"hp_max"`
	HPCurrent     int    `json:"hp_current,omitempty"`
	ArmorClass    int    `json:"armor_class,omitempty"`
	Personality   string `json:"personality,omitempty"`
	Tactics       string `json:"tactics,omitempty"`
	Secret        string `json:"secret,omitempty"`
}

type startCombatArgs struct {
	Participants []combatParticipant `json:"participants"`
}

func startCombatDefinition() Definition {
	return Definition{
		Name:        NameStartCombat,
		Description: "Switch the session into combat: roll initiative for every player character and every listed NPC, then cycle turns in initiative order.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"participants": map[string]any{
					"type":        "array",
					"description": "Director-controlled combatants joining the fight.",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"key":            map[string]any{"type": "string", "description": "Short stable key, derived from the name when omitted."},
							"name":           map[string]any{"type": "string"},
							"initiative_mod": map[string]any{"type": "integer"},
							"hp_max":         map[string]any{"type": "integer"},
							"hp_current":     map[string]any{"type": "integer", "description": "Defaults to hp_max."},
							"armor_class":    map[string]any{"type": "integer"},
							"personality":    map[string]any{"type": "string"},
							"tactics":        map[string]any{"type": "string"},
							"secret":         map[string]any{"type": "string"},
						},
						"required": []string{"name", "hp_max"},
					},
				},
			},
		},
		Handler: handleStartCombat,
	}
}

func handleStartCombat(inv Invocation, state game.GameState, args map[string]any) Outcome {
	var parsed startCombatArgs
	if err := decodeArgs(args, &parsed); err != nil {
		return reject(state, rejectionCodeBadArguments, fmt.Sprintf("start-combat arguments invalid: %v", err))
	}

	if !state.TacticalMode {
		return accept(state, "tactical mode is off for this session; keep narrating the fight without initiative tracking")
	}
	if state.Combat.Active {
		return accept(state, fmt.Sprintf("combat is already active (round %d); end it before starting another", state.Combat.RoundNumber))
	}
	if inv.Dice == nil {
		return reject(state, rejectionCodeDiceUnavailable, "no randomness source is configured for this session")
	}

	profiles := make(map[string]game.NpcProfile, len(parsed.Participants))
	npcKeys := make([]string, 0, len(parsed.Participants))
	for _, p := range parsed.Participants {
		profile := game.NpcProfile{
			Name:          strings.TrimSpace(p.Name),
			InitiativeMod: p.InitiativeMod,
			HPMax:         p.HPMax,
			HPCurrent:     p.HPCurrent,
			ArmorClass:    p.ArmorClass,
			Personality:   strings.TrimSpace(p.Personality),
			Tactics:       strings.TrimSpace(p.Tactics),
			Secret:        strings.TrimSpace(p.Secret),
		}
		if profile.HPCurrent == 0 {
			profile.HPCurrent = profile.HPMax
		}
		if err := game.ValidateNpcProfile(profile); err != nil {
			return reject(state, rejectionCodeCombatInvalid, fmt.Sprintf("participant %q invalid: %v", p.Name, err))
		}
		key := game.NormalizeNpcKey(p.Key, profile.Name)
		if _, dup := profiles[key]; dup {
			return reject(state, rejectionCodeCombatInvalid, fmt.Sprintf("duplicate participant key %q", key))
		}
		profiles[key] = profile
		npcKeys = append(npcKeys, key)
	}

	// Dice are consumed PCs first in queue order, then NPCs in the order
	// they were supplied.
	combatants := make([]game.Combatant, 0, len(state.TurnQueue)+len(npcKeys))
	for _, agent := range state.PlayerAgents() {
		c := game.Combatant{Key: agent, Name: agent}
		if sheet, ok := state.SheetFor(agent); ok {
			c.Name = sheet.Name
			c.Modifier = sheet.InitiativeMod
		}
		combatants = append(combatants, c)
	}
	for _, key := range npcKeys {
		combatants = append(combatants, game.Combatant{
			Key:      game.NpcTurnKey(key),
			Name:     profiles[key].Name,
			Modifier: profiles[key].InitiativeMod,
		})
	}

	order, rolls := game.RollInitiative(inv.Dice, combatants)
	combat := game.CombatState{
		Active:            true,
		RoundNumber:       1,
		InitiativeOrder:   order,
		InitiativeRolls:   rolls,
		OriginalTurnQueue: append([]string(nil), state.TurnQueue...),
		NpcProfiles:       profiles,
	}

	content := fmt.Sprintf("Combat begins. Initiative: %s.", describeOrder(state, combat))
	next := state.WithCombat(combat).AppendLog(game.LogEntry{
		Kind:    game.EntryNarrative,
		Turn:    inv.Turn,
		Speaker: inv.Actor,
		Content: content,
	})
	return accept(next, content)
}

func endCombatDefinition() Definition {
	return Definition{
		Name:        NameEndCombat,
		Description: "End the active combat and return the session to free play in the original turn order.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: handleEndCombat,
	}
}

func handleEndCombat(inv Invocation, state game.GameState, _ map[string]any) Outcome {
	if !state.Combat.Active {
		return accept(state, "no combat is active; the table is already in free play")
	}

	content := fmt.Sprintf("Combat ends in round %d.", state.Combat.RoundNumber)
	next := state.WithCombat(game.CombatState{}).AppendLog(game.LogEntry{
		Kind:    game.EntryNarrative,
		Turn:    inv.Turn,
		Speaker: inv.Actor,
		Content: content,
	})
	return accept(next, content)
}

// describeOrder renders the initiative order with display names and totals,
// e.g. "director, Thorin (18), Ogre (12)".
func describeOrder(state game.GameState, combat game.CombatState) string {
	parts := make([]string, 0, len(combat.InitiativeOrder))
	for _, key := range combat.InitiativeOrder {
		name := key
		if npc, ok := game.ParseNpcTurnKey(key); ok {
			if profile, found := combat.NpcProfiles[npc]; found {
				name = profile.Name
			}
		} else if key != game.DirectorAgent {
			name = displayName(state, key)
		}
		if total, ok := combat.InitiativeRolls[key]; ok {
			parts = append(parts, fmt.Sprintf("%s (%d)", name, total))
			continue
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}
