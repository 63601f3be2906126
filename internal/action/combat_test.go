package action

import (
	"strings"
	"testing"

	"github.com/wrenfold/roundtable/internal/game"
)

func TestHandleStartCombat_NoOpWithoutTacticalMode(t *testing.T) {
	state := testState(t, false)
	interceptor := NewInterceptor(nil)

	out := interceptor.Apply(testInvocation(20, 20, 20), state, Request{
		Name: NameStartCombat,
		Args: map[string]any{"participants": []any{map[string]any{"name": "Goblin", "hp_max": 7}}},
	})

	if out.Rejected {
		t.Fatalf("no-op came back rejected: %s", out.Confirmation)
	}
	if out.State.Combat.Active {
		t.Error("combat activated despite tactical mode being off")
	}
	if !strings.Contains(out.Confirmation, "tactical mode is off") {
		t.Errorf("Confirmation = %q", out.Confirmation)
	}
	if len(out.State.Log) != 0 {
		t.Error("no-op appended a log entry")
	}
}

func TestHandleStartCombat_ActivatesAndRollsInitiative(t *testing.T) {
	state := testState(t, true)
	interceptor := NewInterceptor(nil)

	// Faces go to pc-thorin (mod 1), pc-mira (mod 3), then the goblin
	// (mod 2): totals 11, 13, 12.
	out := interceptor.Apply(testInvocation(10, 10, 10), state, Request{
		Name: NameStartCombat,
		Args: map[string]any{"participants": []any{
			map[string]any{"name": "Goblin", "hp_max": 7, "initiative_mod": 2, "tactics": "stab and flee"},
		}},
	})

	if out.Rejected {
		t.Fatalf("rejected: %s", out.Confirmation)
	}

	combat := out.State.Combat
	if !combat.Active || combat.RoundNumber != 1 {
		t.Fatalf("combat = %+v, want active round 1", combat)
	}

	wantOrder := []string{game.DirectorAgent, "pc-mira", game.NpcTurnKey("goblin"), "pc-thorin"}
	if len(combat.InitiativeOrder) != len(wantOrder) {
		t.Fatalf("order = %v, want %v", combat.InitiativeOrder, wantOrder)
	}
	for i, key := range wantOrder {
		if combat.InitiativeOrder[i] != key {
			t.Errorf("order[%d] = %q, want %q", i, combat.InitiativeOrder[i], key)
		}
	}

	if _, ok := combat.InitiativeRolls[game.DirectorAgent]; ok {
		t.Error("director bookend has an initiative roll")
	}
	if combat.InitiativeRolls["pc-mira"] != 13 || combat.InitiativeRolls["pc-thorin"] != 11 {
		t.Errorf("rolls = %v", combat.InitiativeRolls)
	}
	if combat.InitiativeRolls[game.NpcTurnKey("goblin")] != 12 {
		t.Errorf("goblin roll = %d, want 12", combat.InitiativeRolls[game.NpcTurnKey("goblin")])
	}

	wantQueue := []string{game.DirectorAgent, "pc-thorin", "pc-mira"}
	for i, agent := range wantQueue {
		if combat.OriginalTurnQueue[i] != agent {
			t.Errorf("snapshot[%d] = %q, want %q", i, combat.OriginalTurnQueue[i], agent)
		}
	}

	profile := combat.NpcProfiles["goblin"]
	if profile.HPCurrent != 7 || profile.HPMax != 7 {
		t.Errorf("profile hp = %d/%d, want 7/7", profile.HPCurrent, profile.HPMax)
	}
	if profile.Tactics != "stab and flee" {
		t.Errorf("profile tactics = %q", profile.Tactics)
	}

	entry := out.State.Log[len(out.State.Log)-1]
	if !strings.HasPrefix(entry.Content, "Combat begins.") {
		t.Errorf("log content = %q", entry.Content)
	}
	if !strings.Contains(entry.Content, "Mira (13)") || !strings.Contains(entry.Content, "Goblin (12)") {
		t.Errorf("log content lacks named order: %q", entry.Content)
	}

	if state.Combat.Active {
		t.Error("input state was mutated")
	}
}

func TestHandleStartCombat_AlreadyActive(t *testing.T) {
	state := testState(t, true)
	state = state.WithCombat(game.CombatState{Active: true, RoundNumber: 2})
	interceptor := NewInterceptor(nil)

	out := interceptor.Apply(testInvocation(), state, Request{Name: NameStartCombat})

	if out.Rejected {
		t.Fatalf("no-op came back rejected: %s", out.Confirmation)
	}
	if !strings.Contains(out.Confirmation, "already active") {
		t.Errorf("Confirmation = %q", out.Confirmation)
	}
	if out.State.Combat.RoundNumber != 2 {
		t.Error("no-op touched combat state")
	}
}

func TestHandleStartCombat_InvalidParticipant(t *testing.T) {
	state := testState(t, true)
	interceptor := NewInterceptor(nil)

	tests := []struct {
		name        string
		participant map[string]any
	}{
		{name: "blank name", participant: map[string]any{"name": " ", "hp_max": 7}},
		{name: "zero hp max", participant: map[string]any{"name": "Wisp", "hp_max": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := interceptor.Apply(testInvocation(10, 10, 10), state, Request{
				Name: NameStartCombat,
				Args: map[string]any{"participants": []any{tt.participant}},
			})
			if !out.Rejected || out.Code != rejectionCodeCombatInvalid {
				t.Fatalf("outcome = %+v", out)
			}
			if out.State.Combat.Active {
				t.Error("rejection still activated combat")
			}
		})
	}
}

func TestHandleStartCombat_DuplicateKeys(t *testing.T) {
	state := testState(t, true)
	interceptor := NewInterceptor(nil)

	out := interceptor.Apply(testInvocation(10, 10, 10, 10), state, Request{
		Name: NameStartCombat,
		Args: map[string]any{"participants": []any{
			map[string]any{"name": "Goblin", "hp_max": 7},
			map[string]any{"name": "goblin", "hp_max": 9},
		}},
	})

	if !out.Rejected || out.Code != rejectionCodeCombatInvalid {
		t.Fatalf("outcome = %+v", out)
	}
	if !strings.Contains(out.Confirmation, "goblin") {
		t.Errorf("Confirmation = %q", out.Confirmation)
	}
}

func TestHandleEndCombat(t *testing.T) {
	state := testState(t, true)
	interceptor := NewInterceptor(nil)

	started := interceptor.Apply(testInvocation(10, 10, 10), state, Request{
		Name: NameStartCombat,
		Args: map[string]any{"participants": []any{map[string]any{"name": "Goblin", "hp_max": 7}}},
	})
	if started.Rejected {
		t.Fatalf("start rejected: %s", started.Confirmation)
	}

	out := interceptor.Apply(testInvocation(), started.State, Request{Name: NameEndCombat})

	if out.Rejected {
		t.Fatalf("rejected: %s", out.Confirmation)
	}
	combat := out.State.Combat
	if combat.Active || combat.RoundNumber != 0 {
		t.Errorf("combat = %+v, want inactive defaults", combat)
	}
	if len(combat.InitiativeOrder) != 0 || len(combat.InitiativeRolls) != 0 {
		t.Errorf("combat order not cleared: %+v", combat)
	}
	if len(combat.OriginalTurnQueue) != 0 || len(combat.NpcProfiles) != 0 {
		t.Errorf("combat snapshot not cleared: %+v", combat)
	}

	entry := out.State.Log[len(out.State.Log)-1]
	if !strings.Contains(entry.Content, "Combat ends") {
		t.Errorf("log content = %q", entry.Content)
	}
}

func TestHandleEndCombat_NoOpWhenInactive(t *testing.T) {
	state := testState(t, true)
	interceptor := NewInterceptor(nil)

	out := interceptor.Apply(testInvocation(), state, Request{Name: NameEndCombat})

	if out.Rejected {
		t.Fatalf("no-op came back rejected: %s", out.Confirmation)
	}
	if !strings.Contains(out.Confirmation, "no combat is active") {
		t.Errorf("Confirmation = %q", out.Confirmation)
	}
	if len(out.State.Log) != 0 {
		t.Error("no-op appended a log entry")
	}
}
