package turn

import (
	"errors"
	"testing"
	"time"

	"github.com/wrenfold/roundtable/internal/game"
)

func testClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC)
	}
}

func testState(t *testing.T) game.GameState {
	t.Helper()
	state, err := game.CreateState(game.CreateStateInput{
		Name:         "The Sunken Vault",
		TacticalMode: true,
		Players: []game.PlayerInput{
			{Agent: "pc-thorin", Sheet: game.CharacterSheet{Name: "Thorin", HPCurrent: 20, HPMax: 20}},
			{Agent: "pc-mira", Sheet: game.CharacterSheet{Name: "Mira", HPCurrent: 16, HPMax: 16}},
		},
	}, testClock(), nil)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	return state
}

func combatState(t *testing.T) game.GameState {
	t.Helper()
	state := testState(t)
	return state.WithCombat(game.CombatState{
		Active:      true,
		RoundNumber: 1,
		InitiativeOrder: []string{
			game.DirectorAgent,
			"pc-mira",
			game.NpcTurnKey("goblin"),
			"pc-thorin",
		},
		InitiativeRolls:   map[string]int{"pc-mira": 17, game.NpcTurnKey("goblin"): 12, "pc-thorin": 9},
		OriginalTurnQueue: append([]string(nil), state.TurnQueue...),
		NpcProfiles: map[string]game.NpcProfile{
			"goblin": {Name: "Goblin", HPMax: 7, HPCurrent: 7},
		},
	})
}

func TestNext_CyclesExplorationQueue(t *testing.T) {
	state := testState(t)

	want := []string{game.DirectorAgent, "pc-thorin", "pc-mira", game.DirectorAgent, "pc-thorin"}
	for i, agent := range want {
		actor, next, err := Next(state)
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if actor.AgentID != agent {
			t.Fatalf("turn %d actor = %q, want %q", i, actor.AgentID, agent)
		}
		if actor.NpcKey != "" {
			t.Errorf("turn %d has npc key %q", i, actor.NpcKey)
		}
		if next.TurnCount != state.TurnCount+1 {
			t.Errorf("turn %d count = %d, want %d", i, next.TurnCount, state.TurnCount+1)
		}
		state = next
	}
}

func TestNext_CyclesInitiativeOrderInCombat(t *testing.T) {
	state := combatState(t)

	want := []Actor{
		{AgentID: game.DirectorAgent, Key: game.DirectorAgent},
		{AgentID: "pc-mira", Key: "pc-mira"},
		{AgentID: game.DirectorAgent, Key: game.NpcTurnKey("goblin"), NpcKey: "goblin"},
		{AgentID: "pc-thorin", Key: "pc-thorin"},
	}
	for i, expected := range want {
		actor, next, err := Next(state)
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if actor != expected {
			t.Fatalf("turn %d actor = %+v, want %+v", i, actor, expected)
		}
		state = next
	}

	if state.Combat.RoundNumber != 1 {
		t.Errorf("round = %d before wrap, want 1", state.Combat.RoundNumber)
	}
}

func TestNext_IncrementsRoundOnWrap(t *testing.T) {
	state := combatState(t)

	for i := 0; i < 4; i++ {
		_, next, err := Next(state)
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		state = next
	}

	actor, state, err := Next(state)
	if err != nil {
		t.Fatalf("wrap turn: %v", err)
	}
	if actor.AgentID != game.DirectorAgent || actor.NpcKey != "" {
		t.Errorf("wrap actor = %+v, want director bookend", actor)
	}
	if state.Combat.RoundNumber != 2 {
		t.Errorf("round = %d after wrap, want 2", state.Combat.RoundNumber)
	}
}

func TestNext_EmptyOrder(t *testing.T) {
	var state game.GameState

	_, _, err := Next(state)
	if !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("err = %v, want %v", err, ErrEmptyOrder)
	}
}

func TestResolve_CombatStartResetsCursor(t *testing.T) {
	before := testState(t)
	before.Cursor = 2

	after := before.WithCombat(game.CombatState{
		Active:            true,
		RoundNumber:       1,
		InitiativeOrder:   []string{game.DirectorAgent, "pc-mira", "pc-thorin"},
		OriginalTurnQueue: append([]string(nil), before.TurnQueue...),
	})
	after.Cursor = before.Cursor

	resolved := Resolve(before, after)

	if resolved.Cursor != 0 {
		t.Errorf("Cursor = %d, want 0", resolved.Cursor)
	}
	if !resolved.Combat.Active {
		t.Error("combat no longer active after resolve")
	}

	actor, _, err := Next(resolved)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if actor.AgentID != game.DirectorAgent {
		t.Errorf("first combat actor = %q, want director bookend", actor.AgentID)
	}
}

func TestResolve_CombatEndRestoresQueueExactly(t *testing.T) {
	before := combatState(t)
	before.Cursor = 3

	// Simulate end-combat: combat fully reset, queue restoration left to
	// the router.
	after := before.WithCombat(game.CombatState{})
	after = after.WithTurnQueue([]string{"pc-ghost"})
	after.Cursor = before.Cursor

	resolved := Resolve(before, after)

	want := []string{game.DirectorAgent, "pc-thorin", "pc-mira"}
	if len(resolved.TurnQueue) != len(want) {
		t.Fatalf("queue = %v, want %v", resolved.TurnQueue, want)
	}
	for i, agent := range want {
		if resolved.TurnQueue[i] != agent {
			t.Errorf("queue[%d] = %q, want %q", i, resolved.TurnQueue[i], agent)
		}
	}
	if resolved.Cursor != 0 {
		t.Errorf("Cursor = %d, want 0", resolved.Cursor)
	}
	if resolved.Combat.Active {
		t.Error("combat still active after resolve")
	}
}

func TestResolve_PassesThroughWithoutTransition(t *testing.T) {
	state := testState(t)
	state.Cursor = 2

	moved := state.AppendLog(game.LogEntry{Kind: game.EntryNarrative, Turn: 1, Speaker: game.DirectorAgent, Content: "onward"})

	resolved := Resolve(state, moved)

	if resolved.Cursor != 2 {
		t.Errorf("Cursor = %d, want 2", resolved.Cursor)
	}
	if len(resolved.Log) != 1 {
		t.Errorf("len(Log) = %d, want 1", len(resolved.Log))
	}
}
