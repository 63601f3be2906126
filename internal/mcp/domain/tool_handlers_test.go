package domain

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wrenfold/roundtable/internal/game"
	"github.com/wrenfold/roundtable/internal/storage/sqlite"
	"github.com/wrenfold/roundtable/internal/telemetry"
)

const vaultScenario = `
session: The Sunken Vault
tactical_mode: true
opening: The stairwell glitters below the waterline.
party:
  - agent: pc-thorin
    sheet:
      name: Thorin
      class: Fighter
      level: 3
      hp_max: 28
      armor_class: 16
      initiative_mod: 1
  - agent: pc-mira
    sheet:
      name: Mira
      class: Wizard
      level: 3
      hp_max: 16
      armor_class: 12
      initiative_mod: 3
`

const parlorScenario = `
session: The Locked Parlor
party:
  - agent: pc-odette
    sheet:
      name: Odette
      class: Bard
      level: 2
      hp_max: 14
`

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func createTestSession(t *testing.T, store *sqlite.Store, scenarioDoc string) SessionCreateResult {
	t.Helper()
	handler := SessionCreateHandler(store, nil)
	_, result, err := handler(context.Background(), nil, SessionCreateInput{Scenario: scenarioDoc})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return result
}

func loadTestState(t *testing.T, store *sqlite.Store, sessionID string) game.GameState {
	t.Helper()
	state, err := store.LoadSession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("load session %s: %v", sessionID, err)
	}
	return state
}

func TestSessionCreateHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := openTestStore(t)
		handler := SessionCreateHandler(store, nil)
		toolResult, result, err := handler(context.Background(), nil, SessionCreateInput{Scenario: vaultScenario})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if toolResult == nil {
			t.Fatal("expected non-nil tool result")
		}
		if result.SessionID == "" {
			t.Fatal("expected a session id")
		}
		if result.Name != "The Sunken Vault" {
			t.Errorf("expected session name %q, got %q", "The Sunken Vault", result.Name)
		}
		if !result.TacticalMode {
			t.Error("expected tactical mode on")
		}
		wantQueue := []string{game.DirectorAgent, "pc-thorin", "pc-mira"}
		if len(result.TurnQueue) != len(wantQueue) {
			t.Fatalf("expected queue %v, got %v", wantQueue, result.TurnQueue)
		}
		for i, agent := range wantQueue {
			if result.TurnQueue[i] != agent {
				t.Errorf("queue[%d]: expected %q, got %q", i, agent, result.TurnQueue[i])
			}
		}

		state := loadTestState(t, store, result.SessionID)
		if state.Name != "The Sunken Vault" {
			t.Errorf("stored session name: expected %q, got %q", "The Sunken Vault", state.Name)
		}
		if len(state.Sheets) != 2 {
			t.Errorf("expected 2 stored sheets, got %d", len(state.Sheets))
		}
	})

	t.Run("invalid scenario", func(t *testing.T) {
		handler := SessionCreateHandler(openTestStore(t), nil)
		_, _, err := handler(context.Background(), nil, SessionCreateInput{Scenario: "session: [oops"})
		if err == nil {
			t.Fatal("expected error for malformed scenario")
		}
	})

	t.Run("scenario without party", func(t *testing.T) {
		handler := SessionCreateHandler(openTestStore(t), nil)
		_, _, err := handler(context.Background(), nil, SessionCreateInput{Scenario: "session: Empty Table"})
		if err == nil {
			t.Fatal("expected error for scenario without player agents")
		}
	})

	t.Run("nil store", func(t *testing.T) {
		handler := SessionCreateHandler(nil, nil)
		_, _, err := handler(context.Background(), nil, SessionCreateInput{Scenario: vaultScenario})
		if err == nil {
			t.Fatal("expected error for nil store")
		}
	})

	t.Run("notifies resource updates", func(t *testing.T) {
		store := openTestStore(t)
		var notified []string
		notify := func(_ context.Context, uri string) { notified = append(notified, uri) }
		handler := SessionCreateHandler(store, notify)
		_, _, err := handler(context.Background(), nil, SessionCreateInput{Scenario: vaultScenario})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notified) != 1 || notified[0] != SessionListResource().URI {
			t.Errorf("expected a %s notification, got %v", SessionListResource().URI, notified)
		}
	})
}

func TestSessionForkHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := openTestStore(t)
		parent := createTestSession(t, store, vaultScenario)

		handler := SessionForkHandler(store, nil)
		toolResult, result, err := handler(context.Background(), nil, SessionForkInput{
			SessionID: parent.SessionID,
			Name:      "What if the door held?",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if toolResult == nil {
			t.Fatal("expected non-nil tool result")
		}
		if result.SessionID == "" || result.SessionID == parent.SessionID {
			t.Fatalf("expected a fresh session id, got %q", result.SessionID)
		}
		if result.ParentID != parent.SessionID {
			t.Errorf("expected parent %q, got %q", parent.SessionID, result.ParentID)
		}
		if result.OriginID != parent.SessionID {
			t.Errorf("expected origin %q, got %q", parent.SessionID, result.OriginID)
		}
		if result.Name != "What if the door held?" {
			t.Errorf("unexpected fork name %q", result.Name)
		}

		sessions, err := store.ListSessions(context.Background())
		if err != nil {
			t.Fatalf("list sessions: %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("expected 2 stored sessions, got %d", len(sessions))
		}
	})

	t.Run("missing session_id", func(t *testing.T) {
		handler := SessionForkHandler(openTestStore(t), nil)
		_, _, err := handler(context.Background(), nil, SessionForkInput{Name: "X"})
		if err == nil {
			t.Fatal("expected error for missing session_id")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		handler := SessionForkHandler(openTestStore(t), nil)
		_, _, err := handler(context.Background(), nil, SessionForkInput{SessionID: "missing"})
		if err == nil {
			t.Fatal("expected error for unknown session")
		}
	})

	t.Run("notifies resource updates", func(t *testing.T) {
		store := openTestStore(t)
		parent := createTestSession(t, store, vaultScenario)
		var notified []string
		notify := func(_ context.Context, uri string) { notified = append(notified, uri) }
		handler := SessionForkHandler(store, notify)
		_, _, err := handler(context.Background(), nil, SessionForkInput{SessionID: parent.SessionID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(notified) != 1 || notified[0] != SessionListResource().URI {
			t.Errorf("expected a %s notification, got %v", SessionListResource().URI, notified)
		}
	})
}

func TestSessionLineageHandler(t *testing.T) {
	t.Run("fork chain", func(t *testing.T) {
		store := openTestStore(t)
		parent := createTestSession(t, store, vaultScenario)

		fork := SessionForkHandler(store, nil)
		_, child, err := fork(context.Background(), nil, SessionForkInput{SessionID: parent.SessionID, Name: "Branch"})
		if err != nil {
			t.Fatalf("fork session: %v", err)
		}

		handler := SessionLineageHandler(store)
		_, result, err := handler(context.Background(), nil, SessionLineageInput{SessionID: child.SessionID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Entries) != 2 {
			t.Fatalf("expected 2 lineage entries, got %d", len(result.Entries))
		}
		if result.Entries[0].SessionID != parent.SessionID {
			t.Errorf("expected root %q first, got %q", parent.SessionID, result.Entries[0].SessionID)
		}
		if result.Entries[1].SessionID != child.SessionID {
			t.Errorf("expected child %q last, got %q", child.SessionID, result.Entries[1].SessionID)
		}
		if result.OriginID != parent.SessionID {
			t.Errorf("expected origin %q, got %q", parent.SessionID, result.OriginID)
		}
		if result.Depth != 1 {
			t.Errorf("expected depth 1, got %d", result.Depth)
		}
	})

	t.Run("root session", func(t *testing.T) {
		store := openTestStore(t)
		parent := createTestSession(t, store, vaultScenario)
		handler := SessionLineageHandler(store)
		_, result, err := handler(context.Background(), nil, SessionLineageInput{SessionID: parent.SessionID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Entries) != 1 || result.Depth != 0 {
			t.Errorf("expected a single-entry lineage at depth 0, got %d entries at depth %d", len(result.Entries), result.Depth)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		handler := SessionLineageHandler(openTestStore(t))
		_, _, err := handler(context.Background(), nil, SessionLineageInput{SessionID: "missing"})
		if err == nil {
			t.Fatal("expected error for unknown session")
		}
	})
}

func TestRollDiceHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		handler := RollDiceHandler(store, nil, nil, nil)
		toolResult, result, err := handler(context.Background(), nil, RollDiceInput{
			SessionID:  created.SessionID,
			Expression: "2d6+1",
			Reason:     "perception check",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if toolResult == nil {
			t.Fatal("expected non-nil tool result")
		}
		if result.Rejected {
			t.Fatalf("unexpected rejection: %s [%s]", result.Confirmation, result.Code)
		}
		if result.Total < 3 || result.Total > 13 {
			t.Errorf("2d6+1 total out of range: %d", result.Total)
		}
		if result.Confirmation == "" {
			t.Error("expected a confirmation")
		}

		state := loadTestState(t, store, created.SessionID)
		if len(state.Log) != 1 {
			t.Fatalf("expected 1 log entry, got %d", len(state.Log))
		}
		if state.Log[0].Kind != game.EntryDice {
			t.Errorf("expected dice log entry, got %q", state.Log[0].Kind)
		}
		if state.Log[0].Speaker != game.DirectorAgent {
			t.Errorf("expected director speaker by default, got %q", state.Log[0].Speaker)
		}
	})

	t.Run("explicit actor", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		handler := RollDiceHandler(store, nil, nil, nil)
		_, _, err := handler(context.Background(), nil, RollDiceInput{
			SessionID:  created.SessionID,
			Actor:      "pc-thorin",
			Expression: "1d20",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		state := loadTestState(t, store, created.SessionID)
		if state.Log[len(state.Log)-1].Speaker != "pc-thorin" {
			t.Errorf("expected pc-thorin speaker, got %q", state.Log[len(state.Log)-1].Speaker)
		}
	})

	t.Run("invalid expression is a rejection", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		handler := RollDiceHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, RollDiceInput{
			SessionID:  created.SessionID,
			Expression: "banana",
		})
		if err != nil {
			t.Fatalf("rejection must not be an error: %v", err)
		}
		if !result.Rejected {
			t.Fatal("expected a rejection")
		}
		if result.Code != "DICE_EXPRESSION_INVALID" {
			t.Errorf("expected DICE_EXPRESSION_INVALID, got %q", result.Code)
		}

		state := loadTestState(t, store, created.SessionID)
		if len(state.Log) != 0 {
			t.Errorf("rejected roll must not touch the log, got %d entries", len(state.Log))
		}
	})

	t.Run("missing session_id", func(t *testing.T) {
		handler := RollDiceHandler(openTestStore(t), nil, nil, nil)
		_, _, err := handler(context.Background(), nil, RollDiceInput{Expression: "1d20"})
		if err == nil {
			t.Fatal("expected error for missing session_id")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		handler := RollDiceHandler(openTestStore(t), nil, nil, nil)
		_, _, err := handler(context.Background(), nil, RollDiceInput{SessionID: "missing", Expression: "1d20"})
		if err == nil {
			t.Fatal("expected error for unknown session")
		}
	})
}

func TestSheetUpdateHandler(t *testing.T) {
	t.Run("hp delta", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		delta := -5
		handler := SheetUpdateHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, SheetUpdateInput{
			SessionID: created.SessionID,
			Character: "Thorin",
			HPDelta:   &delta,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Rejected {
			t.Fatalf("unexpected rejection: %s [%s]", result.Confirmation, result.Code)
		}

		state := loadTestState(t, store, created.SessionID)
		if hp := state.Sheets["Thorin"].HPCurrent; hp != 23 {
			t.Errorf("expected 23 hp after delta, got %d", hp)
		}
		if len(state.Log) != 1 || state.Log[0].Kind != game.EntrySheetChange {
			t.Errorf("expected one sheet_change log entry, got %v", state.Log)
		}
	})

	t.Run("equipment and conditions", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		handler := SheetUpdateHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, SheetUpdateInput{
			SessionID:     created.SessionID,
			Character:     "Mira",
			AddEquipment:  []string{"ruby lens"},
			AddConditions: []string{"frightened"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Rejected {
			t.Fatalf("unexpected rejection: %s [%s]", result.Confirmation, result.Code)
		}

		sheet := loadTestState(t, store, created.SessionID).Sheets["Mira"]
		if len(sheet.Equipment) != 1 || sheet.Equipment[0] != "ruby lens" {
			t.Errorf("expected ruby lens equipped, got %v", sheet.Equipment)
		}
		if len(sheet.Conditions) != 1 || sheet.Conditions[0] != "frightened" {
			t.Errorf("expected frightened condition, got %v", sheet.Conditions)
		}
	})

	t.Run("unknown character is a rejection", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		set := 10
		handler := SheetUpdateHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, SheetUpdateInput{
			SessionID: created.SessionID,
			Character: "Nobody",
			HPSet:     &set,
		})
		if err != nil {
			t.Fatalf("rejection must not be an error: %v", err)
		}
		if !result.Rejected || result.Code != "SHEET_NO_SUCH_CHARACTER" {
			t.Errorf("expected SHEET_NO_SUCH_CHARACTER rejection, got %+v", result)
		}
	})

	t.Run("empty patch is a rejection", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		handler := SheetUpdateHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, SheetUpdateInput{
			SessionID: created.SessionID,
			Character: "Thorin",
		})
		if err != nil {
			t.Fatalf("rejection must not be an error: %v", err)
		}
		if !result.Rejected || result.Code != "SHEET_EMPTY_PATCH" {
			t.Errorf("expected SHEET_EMPTY_PATCH rejection, got %+v", result)
		}
	})
}

func TestWhisperSendHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		var notified []string
		notify := func(_ context.Context, uri string) { notified = append(notified, uri) }
		handler := WhisperSendHandler(store, nil, nil, notify)
		_, result, err := handler(context.Background(), nil, WhisperSendInput{
			SessionID: created.SessionID,
			To:        "pc-thorin",
			Content:   "The idol on the altar is a decoy.",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Rejected {
			t.Fatalf("unexpected rejection: %s [%s]", result.Confirmation, result.Code)
		}

		state := loadTestState(t, store, created.SessionID)
		whispers := state.Secrets["pc-thorin"]
		if len(whispers) != 1 {
			t.Fatalf("expected 1 whisper, got %d", len(whispers))
		}
		if whispers[0].FromAgent != game.DirectorAgent {
			t.Errorf("expected director sender, got %q", whispers[0].FromAgent)
		}
		if whispers[0].Revealed {
			t.Error("fresh whisper must not be revealed")
		}
		if len(state.Log) != 0 {
			t.Errorf("whispers must stay out of the shared log, got %d entries", len(state.Log))
		}

		found := false
		for _, uri := range notified {
			if strings.HasSuffix(uri, "/secrets/pc-thorin") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected a secrets resource notification, got %v", notified)
		}
	})

	t.Run("missing recipient is a rejection", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		handler := WhisperSendHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, WhisperSendInput{
			SessionID: created.SessionID,
			Content:   "orphaned note",
		})
		if err != nil {
			t.Fatalf("rejection must not be an error: %v", err)
		}
		if !result.Rejected || result.Code != "WHISPER_INVALID" {
			t.Errorf("expected WHISPER_INVALID rejection, got %+v", result)
		}
	})
}

func TestSecretRevealHandler(t *testing.T) {
	seedWhisper := func(t *testing.T, store *sqlite.Store, sessionID, content string) {
		t.Helper()
		handler := WhisperSendHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, WhisperSendInput{
			SessionID: sessionID,
			To:        "pc-thorin",
			Content:   content,
		})
		if err != nil || result.Rejected {
			t.Fatalf("seed whisper: err=%v result=%+v", err, result)
		}
	}

	t.Run("success", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)
		seedWhisper(t, store, created.SessionID, "The idol on the altar is a decoy.")

		handler := SecretRevealHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, SecretRevealInput{
			SessionID: created.SessionID,
			Agent:     "pc-thorin",
			Secret:    "decoy",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Rejected {
			t.Fatalf("unexpected rejection: %s [%s]", result.Confirmation, result.Code)
		}

		state := loadTestState(t, store, created.SessionID)
		whisper := state.Secrets["pc-thorin"][0]
		if !whisper.Revealed || whisper.TurnRevealed == nil {
			t.Errorf("expected whisper marked revealed, got %+v", whisper)
		}
		last := state.Log[len(state.Log)-1]
		if last.Kind != game.EntrySecretReveal {
			t.Errorf("expected secret_reveal log entry, got %q", last.Kind)
		}
	})

	t.Run("no match is a rejection", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)
		seedWhisper(t, store, created.SessionID, "The idol on the altar is a decoy.")

		handler := SecretRevealHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, SecretRevealInput{
			SessionID: created.SessionID,
			Agent:     "pc-thorin",
			Secret:    "dragon hoard",
		})
		if err != nil {
			t.Fatalf("rejection must not be an error: %v", err)
		}
		if !result.Rejected || result.Code != "SECRET_NOT_FOUND" {
			t.Errorf("expected SECRET_NOT_FOUND rejection, got %+v", result)
		}
	})

	t.Run("double reveal is a rejection", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)
		seedWhisper(t, store, created.SessionID, "The idol on the altar is a decoy.")

		handler := SecretRevealHandler(store, nil, nil, nil)
		reveal := func() ActionResult {
			_, result, err := handler(context.Background(), nil, SecretRevealInput{
				SessionID: created.SessionID,
				Agent:     "pc-thorin",
				Secret:    "decoy",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			return result
		}
		if first := reveal(); first.Rejected {
			t.Fatalf("first reveal rejected: %+v", first)
		}
		second := reveal()
		if !second.Rejected || second.Code != "SECRET_ALREADY_REVEALED" {
			t.Errorf("expected SECRET_ALREADY_REVEALED rejection, got %+v", second)
		}
	})
}

func TestCombatStartHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)
		emitter := telemetry.NewEmitter(store)

		handler := CombatStartHandler(store, nil, emitter, nil)
		_, result, err := handler(context.Background(), nil, CombatStartInput{
			SessionID: created.SessionID,
			Participants: []CombatParticipant{
				{Name: "Gravel Fiend", HPMax: 30, ArmorClass: 15, InitiativeMod: 2},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Rejected {
			t.Fatalf("unexpected rejection: %s [%s]", result.Confirmation, result.Code)
		}

		state := loadTestState(t, store, created.SessionID)
		if !state.Combat.Active {
			t.Fatal("expected combat active")
		}
		if len(state.Combat.InitiativeOrder) != 4 {
			t.Fatalf("expected 4 initiative slots, got %v", state.Combat.InitiativeOrder)
		}
		if state.Combat.InitiativeOrder[0] != game.DirectorAgent {
			t.Errorf("expected director bookend first, got %q", state.Combat.InitiativeOrder[0])
		}
		if _, ok := state.Combat.NpcProfiles["gravel-fiend"]; !ok {
			t.Errorf("expected gravel-fiend profile, got %v", state.Combat.NpcProfiles)
		}

		page, err := store.ListTelemetryEvents(context.Background(), created.SessionID, 10, "")
		if err != nil {
			t.Fatalf("list telemetry: %v", err)
		}
		names := make(map[string]bool, len(page.Events))
		for _, evt := range page.Events {
			names[evt.EventName] = true
		}
		if !names[telemetry.EventActionApplied] || !names[telemetry.EventCombatStarted] {
			t.Errorf("expected action.applied and combat.started events, got %v", names)
		}
	})

	t.Run("tactical mode off narrates instead", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, parlorScenario)

		handler := CombatStartHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, CombatStartInput{
			SessionID:    created.SessionID,
			Participants: []CombatParticipant{{Name: "Cutpurse", HPMax: 8}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Rejected {
			t.Fatalf("tactical gate must not reject: %+v", result)
		}
		if !strings.Contains(result.Confirmation, "tactical mode is off") {
			t.Errorf("expected a tactical-mode observation, got %q", result.Confirmation)
		}
		if loadTestState(t, store, created.SessionID).Combat.Active {
			t.Error("combat must stay inactive without tactical mode")
		}
	})

	t.Run("invalid participant is a rejection", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		handler := CombatStartHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, CombatStartInput{
			SessionID:    created.SessionID,
			Participants: []CombatParticipant{{Name: "Wisp"}},
		})
		if err != nil {
			t.Fatalf("rejection must not be an error: %v", err)
		}
		if !result.Rejected || result.Code != "COMBAT_INVALID_PARTICIPANTS" {
			t.Errorf("expected COMBAT_INVALID_PARTICIPANTS rejection, got %+v", result)
		}
	})
}

func TestCombatEndHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)
		emitter := telemetry.NewEmitter(store)

		start := CombatStartHandler(store, nil, emitter, nil)
		_, startResult, err := start(context.Background(), nil, CombatStartInput{
			SessionID:    created.SessionID,
			Participants: []CombatParticipant{{Name: "Gravel Fiend", HPMax: 30}},
		})
		if err != nil || startResult.Rejected {
			t.Fatalf("start combat: err=%v result=%+v", err, startResult)
		}

		handler := CombatEndHandler(store, nil, emitter, nil)
		_, result, err := handler(context.Background(), nil, CombatEndInput{SessionID: created.SessionID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Rejected {
			t.Fatalf("unexpected rejection: %+v", result)
		}

		state := loadTestState(t, store, created.SessionID)
		if state.Combat.Active {
			t.Error("expected combat inactive")
		}
		if len(state.Combat.InitiativeOrder) != 0 {
			t.Errorf("expected cleared initiative order, got %v", state.Combat.InitiativeOrder)
		}

		page, err := store.ListTelemetryEvents(context.Background(), created.SessionID, 20, "")
		if err != nil {
			t.Fatalf("list telemetry: %v", err)
		}
		ended := false
		for _, evt := range page.Events {
			if evt.EventName == telemetry.EventCombatEnded {
				ended = true
			}
		}
		if !ended {
			t.Error("expected a combat.ended event")
		}
	})

	t.Run("idle table is a no-op", func(t *testing.T) {
		store := openTestStore(t)
		created := createTestSession(t, store, vaultScenario)

		handler := CombatEndHandler(store, nil, nil, nil)
		_, result, err := handler(context.Background(), nil, CombatEndInput{SessionID: created.SessionID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Rejected {
			t.Errorf("ending idle combat must not reject, got %+v", result)
		}
	})
}
