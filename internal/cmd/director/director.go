// Package director parses director command flags and plays table sessions.
package director

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	loop "github.com/wrenfold/roundtable/internal/director"
	"github.com/wrenfold/roundtable/internal/game"
	"github.com/wrenfold/roundtable/internal/llm"
	entrypoint "github.com/wrenfold/roundtable/internal/platform/cmd"
	"github.com/wrenfold/roundtable/internal/scenario"
	"github.com/wrenfold/roundtable/internal/storage"
	"github.com/wrenfold/roundtable/internal/storage/sqlite"
	"github.com/wrenfold/roundtable/internal/telemetry"
)

// Config holds director command configuration.
type Config struct {
	DBPath       string        `env:"ROUNDTABLE_DB_PATH" envDefault:"roundtable.db"`
	ScenarioPath string        `env:"ROUNDTABLE_SCENARIO"`
	SessionID    string        `env:"ROUNDTABLE_SESSION_ID"`
	Turns        int           `env:"ROUNDTABLE_TURNS" envDefault:"12"`
	Model        string        `env:"ROUNDTABLE_MODEL" envDefault:"gpt-4o-mini"`
	APIKey       string        `env:"ROUNDTABLE_OPENAI_API_KEY"`
	BaseURL      string        `env:"ROUNDTABLE_OPENAI_BASE_URL"`
	Temperature  float32       `env:"ROUNDTABLE_TEMPERATURE" envDefault:"0.7"`
	MaxTokens    int           `env:"ROUNDTABLE_MAX_TOKENS"`
	TurnTimeout  time.Duration `env:"ROUNDTABLE_TURN_TIMEOUT" envDefault:"60s"`

	// Mode selectors, flag-only.
	Fork    string
	Branch  string
	Lineage string
	List    bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the session database")
	fs.StringVar(&cfg.ScenarioPath, "scenario", cfg.ScenarioPath, "Scenario file for a new session")
	fs.StringVar(&cfg.SessionID, "session", cfg.SessionID, "Resume the session with this id")
	fs.IntVar(&cfg.Turns, "turns", cfg.Turns, "Number of turns to play")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model used for agent invocations")
	fs.StringVar(&cfg.Fork, "fork", "", "Fork the session with this id and play the branch")
	fs.StringVar(&cfg.Branch, "branch", "", "Name for the forked branch")
	fs.StringVar(&cfg.Lineage, "lineage", "", "Print the fork ancestry of this session and exit")
	fs.BoolVar(&cfg.List, "list", false, "List stored sessions and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run plays sessions against the configured store and model provider.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceDirector, func(context.Context) error {
		return run(ctx, cfg, os.Stdout)
	})
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	switch {
	case cfg.Lineage != "":
		return printLineage(ctx, out, store, cfg.Lineage)
	case cfg.List:
		return printSessions(ctx, out, store)
	}

	state, doc, err := resolveSession(ctx, store, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "session %q (%s)\n", state.Name, state.ID)
	if cfg.Turns <= 0 {
		return nil
	}

	invoker, err := llm.NewOpenAI(llm.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("configure model provider: %w", err)
	}

	l, err := loop.New(loop.Config{
		Invoker:     invoker,
		Store:       store,
		Telemetry:   telemetry.NewEmitter(store),
		Roster:      doc.Roster(),
		Opening:     doc.Opening,
		TurnTimeout: cfg.TurnTimeout,
	})
	if err != nil {
		return fmt.Errorf("assemble loop: %w", err)
	}

	for i := 0; i < cfg.Turns; i++ {
		next, report, err := l.RunTurn(ctx, state)
		state = next
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintf(out, "\ninterrupted; progress saved through turn %d\n", state.TurnCount)
				return nil
			}
			return err
		}
		printTurn(out, report)
	}
	return nil
}

// resolveSession picks the state to play: a fresh branch when forking, a
// stored session when resuming, otherwise a new session built from the
// scenario file. The scenario file also rides along on resume so the
// director keeps its NPC roster briefing.
func resolveSession(ctx context.Context, store storage.Store, cfg Config) (game.GameState, scenario.Document, error) {
	var doc scenario.Document
	if cfg.ScenarioPath != "" {
		loaded, err := scenario.Load(cfg.ScenarioPath)
		if err != nil {
			return game.GameState{}, scenario.Document{}, err
		}
		doc = loaded
	}

	switch {
	case cfg.Fork != "":
		state, err := storage.ForkSession(ctx, store, cfg.Fork, cfg.Branch, nil, nil)
		if err != nil {
			return game.GameState{}, doc, fmt.Errorf("fork session: %w", err)
		}
		return state, doc, nil
	case cfg.SessionID != "":
		state, err := store.LoadSession(ctx, cfg.SessionID)
		if err != nil {
			return game.GameState{}, doc, fmt.Errorf("load session: %w", err)
		}
		return state, doc, nil
	}

	if cfg.ScenarioPath == "" {
		return game.GameState{}, doc, errors.New("a scenario file is required to start a new session")
	}
	state, err := game.CreateState(doc.CreateInput(), nil, nil)
	if err != nil {
		return game.GameState{}, doc, fmt.Errorf("create session: %w", err)
	}
	if err := store.SaveSession(ctx, state); err != nil {
		return game.GameState{}, doc, fmt.Errorf("save new session: %w", err)
	}
	return state, doc, nil
}

func printLineage(ctx context.Context, out io.Writer, store storage.Store, sessionID string) error {
	chain, err := store.Lineage(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session lineage: %w", err)
	}
	for _, summary := range chain {
		fmt.Fprintln(out, summaryLine(summary))
	}
	return nil
}

func printSessions(ctx context.Context, out io.Writer, store storage.Store) error {
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "no sessions")
		return nil
	}
	for _, summary := range sessions {
		fmt.Fprintln(out, summaryLine(summary))
	}
	return nil
}

func summaryLine(summary storage.SessionSummary) string {
	if summary.IsBranch() {
		return fmt.Sprintf("%s  %q  turn %d  (forked from %s at turn %d)",
			summary.ID, summary.Name, summary.TurnCount, summary.ParentID, summary.ForkedAtTurn)
	}
	return fmt.Sprintf("%s  %q  turn %d", summary.ID, summary.Name, summary.TurnCount)
}

func printTurn(out io.Writer, report loop.TurnReport) {
	fmt.Fprintf(out, "\n== turn %d: %s ==\n", report.Turn, report.Actor.Key)
	if report.Skipped {
		fmt.Fprintf(out, "(skipped: %s)\n", report.SkipReason)
		return
	}
	for _, line := range report.Narration {
		fmt.Fprintln(out, line)
	}
	for _, act := range report.Actions {
		if act.Rejected {
			fmt.Fprintf(out, "  x %s: %s [%s]\n", act.Name, act.Confirmation, act.Code)
			continue
		}
		fmt.Fprintf(out, "  * %s: %s\n", act.Name, act.Confirmation)
	}
}
