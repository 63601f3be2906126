package director

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	loop "github.com/wrenfold/roundtable/internal/director"
	"github.com/wrenfold/roundtable/internal/storage/sqlite"
	"github.com/wrenfold/roundtable/internal/turn"
)

const setupDoc = `
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
npcs:
  - name: Drowned Warden
    hp_max: 22
    armor_class: 14
`

func writeSetupFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.yaml")
	if err := os.WriteFile(path, []byte(setupDoc), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("director", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "roundtable.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Turns != 12 {
		t.Fatalf("expected default turns 12, got %d", cfg.Turns)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", cfg.Model)
	}
	if cfg.TurnTimeout != 60*time.Second {
		t.Fatalf("expected default turn timeout, got %v", cfg.TurnTimeout)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("director", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{
		"-db", "campaign.db",
		"-scenario", "vault.yaml",
		"-session", "sess-1",
		"-turns", "3",
		"-model", "local-model",
		"-fork", "sess-0",
		"-branch", "What if the door held?",
		"-lineage", "sess-9",
		"-list",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "campaign.db" {
		t.Fatalf("expected db override, got %q", cfg.DBPath)
	}
	if cfg.ScenarioPath != "vault.yaml" {
		t.Fatalf("expected scenario override, got %q", cfg.ScenarioPath)
	}
	if cfg.SessionID != "sess-1" {
		t.Fatalf("expected session override, got %q", cfg.SessionID)
	}
	if cfg.Turns != 3 {
		t.Fatalf("expected turns 3, got %d", cfg.Turns)
	}
	if cfg.Fork != "sess-0" || cfg.Branch != "What if the door held?" {
		t.Fatalf("expected fork selectors, got %q %q", cfg.Fork, cfg.Branch)
	}
	if cfg.Lineage != "sess-9" || !cfg.List {
		t.Fatalf("expected mode selectors, got %q %v", cfg.Lineage, cfg.List)
	}
}

func TestParseConfigReadsEnv(t *testing.T) {
	t.Setenv("ROUNDTABLE_TURNS", "5")
	t.Setenv("ROUNDTABLE_MODEL", "env-model")

	fs := flag.NewFlagSet("director", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-model", "flag-model"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Turns != 5 {
		t.Fatalf("expected env turns 5, got %d", cfg.Turns)
	}
	if cfg.Model != "flag-model" {
		t.Fatalf("expected flag to win over env, got %q", cfg.Model)
	}
}

func TestRunRequiresScenarioForNewSession(t *testing.T) {
	cfg := Config{DBPath: filepath.Join(t.TempDir(), "table.db")}

	var out bytes.Buffer
	err := run(context.Background(), cfg, &out)
	if err == nil {
		t.Fatal("expected error without scenario")
	}
	if !strings.Contains(err.Error(), "scenario file is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunCreatesAndListsSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "table.db")
	cfg := Config{DBPath: dbPath, ScenarioPath: writeSetupFile(t), Turns: 0}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), `session "The Sunken Vault"`) {
		t.Fatalf("expected session header, got %q", out.String())
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	sessions, err := store.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one stored session, got %d", len(sessions))
	}
	if sessions[0].Name != "The Sunken Vault" {
		t.Fatalf("unexpected session name %q", sessions[0].Name)
	}

	var listing bytes.Buffer
	if err := run(context.Background(), Config{DBPath: dbPath, List: true}, &listing); err != nil {
		t.Fatalf("list mode: %v", err)
	}
	if !strings.Contains(listing.String(), sessions[0].ID) {
		t.Fatalf("expected listing to include %s, got %q", sessions[0].ID, listing.String())
	}

	var lineage bytes.Buffer
	if err := run(context.Background(), Config{DBPath: dbPath, Lineage: sessions[0].ID}, &lineage); err != nil {
		t.Fatalf("lineage mode: %v", err)
	}
	if !strings.Contains(lineage.String(), sessions[0].ID) {
		t.Fatalf("expected lineage to include %s, got %q", sessions[0].ID, lineage.String())
	}
}

func TestRunForksStoredSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "table.db")
	scenarioPath := writeSetupFile(t)

	var out bytes.Buffer
	if err := run(context.Background(), Config{DBPath: dbPath, ScenarioPath: scenarioPath}, &out); err != nil {
		t.Fatalf("create session: %v", err)
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	parentID := func() string {
		sessions, err := store.ListSessions(context.Background())
		if err != nil {
			t.Fatalf("list sessions: %v", err)
		}
		if len(sessions) != 1 {
			t.Fatalf("expected one session, got %d", len(sessions))
		}
		return sessions[0].ID
	}()
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	var forked bytes.Buffer
	cfg := Config{DBPath: dbPath, Fork: parentID, Branch: "What if the door held?"}
	if err := run(context.Background(), cfg, &forked); err != nil {
		t.Fatalf("fork: %v", err)
	}
	if !strings.Contains(forked.String(), `session "What if the door held?"`) {
		t.Fatalf("expected branch header, got %q", forked.String())
	}

	store, err = sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	sessions, err := store.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected parent and branch, got %d", len(sessions))
	}
}

func TestPrintTurnFormatsReport(t *testing.T) {
	var out bytes.Buffer
	printTurn(&out, loop.TurnReport{
		Actor:     turn.Actor{AgentID: "pc-thorin", Key: "pc-thorin"},
		Turn:      4,
		Narration: []string{"Thorin kicks the waterlogged door."},
		Actions: []loop.ActionReport{
			{Name: "roll-dice", Confirmation: "Rolled 1d20: [14] = 14"},
			{Name: "update-sheet", Confirmation: "no sheet for Nobody", Rejected: true, Code: "UNKNOWN_SHEET"},
		},
	})

	text := out.String()
	for _, want := range []string{
		"== turn 4: pc-thorin ==",
		"Thorin kicks the waterlogged door.",
		"* roll-dice: Rolled 1d20: [14] = 14",
		"x update-sheet: no sheet for Nobody [UNKNOWN_SHEET]",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output, got %q", want, text)
		}
	}
}

func TestPrintTurnSkipped(t *testing.T) {
	var out bytes.Buffer
	printTurn(&out, loop.TurnReport{
		Actor:      turn.Actor{AgentID: "director", Key: "director"},
		Turn:       2,
		Skipped:    true,
		SkipReason: "invoke agent: timeout",
	})

	if !strings.Contains(out.String(), "(skipped: invoke agent: timeout)") {
		t.Fatalf("expected skip note, got %q", out.String())
	}
}
