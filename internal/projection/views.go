package projection

import (
	"sort"

	"github.com/wrenfold/roundtable/internal/game"
)

// ActiveSecrets returns copies of an agent's unrevealed whispers in
// creation order. Revealed whispers never appear here.
func ActiveSecrets(state game.GameState, agent string) []game.Whisper {
	var active []game.Whisper
	for _, w := range state.Secrets[agent] {
		if w.Revealed {
			continue
		}
		active = append(active, copyWhisper(w))
	}
	return active
}

// SecretHistory returns copies of every whisper ever sent to an agent,
// revealed ones included, in creation order.
func SecretHistory(state game.GameState, agent string) []game.Whisper {
	list := state.Secrets[agent]
	if len(list) == 0 {
		return nil
	}
	out := make([]game.Whisper, 0, len(list))
	for _, w := range list {
		out = append(out, copyWhisper(w))
	}
	return out
}

// SheetSet returns every character sheet ordered by character name.
func SheetSet(state game.GameState) []game.CharacterSheet {
	if len(state.Sheets) == 0 {
		return nil
	}
	names := make([]string, 0, len(state.Sheets))
	for name := range state.Sheets {
		names = append(names, name)
	}
	sort.Strings(names)

	sheets := make([]game.CharacterSheet, 0, len(names))
	for _, name := range names {
		sheets = append(sheets, state.Sheets[name])
	}
	return sheets
}

// NpcStatus is one NPC's table-facing condition line in a combat summary.
type NpcStatus struct {
	Key        string
	Name       string
	HPCurrent  int
	HPMax      int
	Conditions []string
}

// CombatSummary is the operator-facing combat projection: the shared view
// plus per-NPC hit point standing. Tactics and secrets stay out.
type CombatSummary struct {
	CombatView
	Npcs []NpcStatus
}

// CombatSummaryView projects the table-visible combat fields.
func CombatSummaryView(state game.GameState) CombatView {
	view := CombatView{
		Active:      state.Combat.Active,
		RoundNumber: state.Combat.RoundNumber,
	}
	if len(state.Combat.InitiativeOrder) > 0 {
		view.InitiativeOrder = append([]string(nil), state.Combat.InitiativeOrder...)
	}
	if len(state.Combat.InitiativeRolls) > 0 {
		view.InitiativeRolls = make(map[string]int, len(state.Combat.InitiativeRolls))
		for key, total := range state.Combat.InitiativeRolls {
			view.InitiativeRolls[key] = total
		}
	}
	return view
}

// BuildCombatSummary projects combat for presentation surfaces.
func BuildCombatSummary(state game.GameState) CombatSummary {
	summary := CombatSummary{CombatView: CombatSummaryView(state)}
	if len(state.Combat.NpcProfiles) == 0 {
		return summary
	}

	keys := make([]string, 0, len(state.Combat.NpcProfiles))
	for key := range state.Combat.NpcProfiles {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		profile := state.Combat.NpcProfiles[key]
		status := NpcStatus{
			Key:       key,
			Name:      profile.Name,
			HPCurrent: profile.HPCurrent,
			HPMax:     profile.HPMax,
		}
		if len(profile.Conditions) > 0 {
			status.Conditions = append([]string(nil), profile.Conditions...)
		}
		summary.Npcs = append(summary.Npcs, status)
	}
	return summary
}

// LogSince returns copies of log entries from the given index onward. Out
// of range indexes yield nil.
func LogSince(state game.GameState, index int) []game.LogEntry {
	if index < 0 {
		index = 0
	}
	if index >= len(state.Log) {
		return nil
	}
	return append([]game.LogEntry(nil), state.Log[index:]...)
}

func copyWhisper(w game.Whisper) game.Whisper {
	if w.TurnRevealed != nil {
		turn := *w.TurnRevealed
		w.TurnRevealed = &turn
	}
	return w
}
