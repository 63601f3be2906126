package game

import (
	"sort"

	"github.com/wrenfold/roundtable/internal/dice"
)

// Combatant is one participant in an initiative roll.
type Combatant struct {
	// Key is the initiative-order entry: an agent identifier for PCs, a
	// NpcTurnKey for director-controlled NPCs.
	Key string
	// Name is the display name used for deterministic tie-breaking.
	Name string
	// Modifier is added to the d20 roll.
	Modifier int
}

// RollInitiative rolls one d20 per combatant, adds each modifier, and
// returns the combat turn order plus the per-combatant totals keyed the same
// way as the order entries.
//
// Dice are consumed from src in the order combatants are provided. The
// order is fully deterministic given the rolls: total descending, tie-break
// by modifier descending, then by name ascending. The director bookend is
// prepended at index 0 and carries no roll.
func RollInitiative(src dice.Source, combatants []Combatant) ([]string, map[string]int) {
	type rolled struct {
		Combatant
		Total int
	}

	entries := make([]rolled, 0, len(combatants))
	for _, c := range combatants {
		entries = append(entries, rolled{
			Combatant: c,
			Total:     src.Roll(20) + c.Modifier,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		if entries[i].Modifier != entries[j].Modifier {
			return entries[i].Modifier > entries[j].Modifier
		}
		return entries[i].Name < entries[j].Name
	})

	order := make([]string, 0, len(entries)+1)
	order = append(order, DirectorAgent)
	rolls := make(map[string]int, len(entries))
	for _, entry := range entries {
		order = append(order, entry.Key)
		rolls[entry.Key] = entry.Total
	}
	return order, rolls
}
