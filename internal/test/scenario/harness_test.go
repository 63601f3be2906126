//go:build scenario

package scenario

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/wrenfold/roundtable/internal/action"
	"github.com/wrenfold/roundtable/internal/game"
	"github.com/wrenfold/roundtable/internal/storage/sqlite"
	"github.com/wrenfold/roundtable/internal/telemetry"
)

func stepTimeout() time.Duration {
	return 10 * time.Second
}

// tableEnv is the engine a script plays against: the real interceptor, a
// real sqlite store on a throwaway path, and a store-backed emitter.
type tableEnv struct {
	store       *sqlite.Store
	interceptor *action.Interceptor
	emitter     *telemetry.Emitter
}

func newTableEnv(t *testing.T) tableEnv {
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

	return tableEnv{
		store:       store,
		interceptor: action.NewInterceptor(nil),
		emitter:     telemetry.NewEmitter(store),
	}
}

func loadStored(t *testing.T, ctx context.Context, env tableEnv, sessionID string) game.GameState {
	t.Helper()

	state, err := env.store.LoadSession(ctx, sessionID)
	if err != nil {
		t.Fatalf("load session %s: %v", sessionID, err)
	}
	return state
}

func lastLogEntry(t *testing.T, state game.GameState) game.LogEntry {
	t.Helper()

	if len(state.Log) == 0 {
		t.Fatal("shared log is empty")
	}
	return state.Log[len(state.Log)-1]
}

// currentHP resolves a display name against PC sheets first, then combat
// NPC profiles.
func currentHP(t *testing.T, state game.GameState, name string) int {
	t.Helper()

	if sheet, ok := state.Sheets[name]; ok {
		return sheet.HPCurrent
	}
	if profile, ok := state.Combat.NpcProfiles[game.NormalizeNpcKey("", name)]; ok {
		return profile.HPCurrent
	}
	for _, profile := range state.Combat.NpcProfiles {
		if profile.Name == name {
			return profile.HPCurrent
		}
	}

	t.Fatalf("no character or npc named %q", name)
	return 0
}

func repoRoot(t *testing.T) string {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to resolve runtime caller")
	}

	dir := filepath.Dir(filename)
	for {
		candidate := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(candidate); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	t.Fatalf("go.mod not found from %s", filename)
	return ""
}
