package action

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wrenfold/roundtable/internal/game"
)

// scriptedSource returns queued faces, then 1s once exhausted.
type scriptedSource struct {
	faces []int
	next  int
}

func (s *scriptedSource) Roll(sides int) int {
	if s.next >= len(s.faces) {
		return 1
	}
	face := s.faces[s.next]
	s.next++
	return face
}

func testClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC)
	}
}

func testIDGenerator(ids ...string) func() (string, error) {
	next := 0
	return func() (string, error) {
		if next >= len(ids) {
			return "", errors.New("id generator exhausted")
		}
		id := ids[next]
		next++
		return id, nil
	}
}

func testSheet(name string, mod int) game.CharacterSheet {
	return game.CharacterSheet{
		Name:          name,
		Class:         "Fighter",
		Level:         3,
		HPCurrent:     28,
		HPMax:         28,
		ArmorClass:    16,
		InitiativeMod: mod,
		Equipment:     []string{"longsword", "rope"},
	}
}

func testState(t *testing.T, tactical bool) game.GameState {
	t.Helper()
	state, err := game.CreateState(game.CreateStateInput{
		Name:         "The Sunken Vault",
		TacticalMode: tactical,
		Players: []game.PlayerInput{
			{Agent: "pc-thorin", Sheet: testSheet("Thorin", 1)},
			{Agent: "pc-mira", Sheet: testSheet("Mira", 3)},
		},
	}, testClock(), testIDGenerator("session0000000000000000000"))
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	return state
}

func testInvocation(faces ...int) Invocation {
	return Invocation{
		Actor: game.DirectorAgent,
		Turn:  4,
		Dice:  &scriptedSource{faces: faces},
		NewID: testIDGenerator("w-aaa", "w-bbb", "w-ccc"),
	}
}

func TestInterceptor_RejectsUnknownAction(t *testing.T) {
	state := testState(t, false)
	interceptor := NewInterceptor(nil)

	out := interceptor.Apply(testInvocation(), state, Request{Name: "summon-dragon"})

	if !out.Rejected {
		t.Fatal("unknown action was not rejected")
	}
	if out.Code != rejectionCodeUnknownAction {
		t.Errorf("Code = %q, want %q", out.Code, rejectionCodeUnknownAction)
	}
	if !strings.Contains(out.Confirmation, "summon-dragon") {
		t.Errorf("confirmation does not name the action: %q", out.Confirmation)
	}
	if !strings.Contains(out.Confirmation, NameRollDice) {
		t.Errorf("confirmation does not list available actions: %q", out.Confirmation)
	}
	if len(out.State.Log) != len(state.Log) {
		t.Error("rejection touched the state")
	}
}

func TestInterceptor_RejectsBlankName(t *testing.T) {
	state := testState(t, false)
	interceptor := NewInterceptor(nil)

	out := interceptor.Apply(testInvocation(), state, Request{Name: "  "})

	if !out.Rejected || out.Code != rejectionCodeUnknownAction {
		t.Fatalf("blank name outcome = %+v", out)
	}
}

func TestDefaultRegistry_ListsAllActionsSorted(t *testing.T) {
	defs := DefaultRegistry().ListDefinitions()

	want := []string{NameEndCombat, NameRevealSecret, NameRollDice, NameStartCombat, NameUpdateSheet, NameWhisper}
	if len(defs) != len(want) {
		t.Fatalf("len = %d, want %d", len(defs), len(want))
	}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Errorf("defs[%d] = %q, want %q", i, def.Name, want[i])
		}
		if def.Description == "" {
			t.Errorf("%s has no description", def.Name)
		}
		if def.Schema == nil {
			t.Errorf("%s has no schema", def.Name)
		}
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Definition{Name: " ", Handler: handleEndCombat}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("blank name error = %v, want %v", err, ErrNameRequired)
	}
	if err := r.Register(Definition{Name: "x"}); !errors.Is(err, ErrHandlerRequired) {
		t.Errorf("nil handler error = %v, want %v", err, ErrHandlerRequired)
	}
	if err := r.Register(Definition{Name: "x", Handler: handleEndCombat}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(Definition{Name: "x", Handler: handleEndCombat}); err == nil {
		t.Error("duplicate registration succeeded")
	}
}
