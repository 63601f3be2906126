// Package director runs the orchestration loop. One actor acts at a time:
// the loop picks the actor from the turn router, assembles that actor's
// context, invokes the model once per conversation round, and feeds every
// requested action through the interceptor before the next round. Model
// failures skip the turn; they never abort the session or touch the last
// known-good state.
package director

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wrenfold/roundtable/internal/action"
	"github.com/wrenfold/roundtable/internal/dice"
	"github.com/wrenfold/roundtable/internal/game"
	"github.com/wrenfold/roundtable/internal/llm"
	"github.com/wrenfold/roundtable/internal/platform/timeouts"
	"github.com/wrenfold/roundtable/internal/projection"
	"github.com/wrenfold/roundtable/internal/random"
	"github.com/wrenfold/roundtable/internal/storage"
	"github.com/wrenfold/roundtable/internal/telemetry"
	"github.com/wrenfold/roundtable/internal/turn"
)

const (
	defaultMaxActionRounds = 4
	invokeAttempts         = 2
)

var tracer = otel.Tracer("github.com/wrenfold/roundtable/internal/director")

// Config assembles the loop's collaborators.
type Config struct {
	// Invoker is the model boundary. Required.
	Invoker llm.Invoker
	// Interceptor applies requested actions. Nil gets the default registry.
	Interceptor *action.Interceptor
	// Store receives an autosave after every turn when set.
	Store storage.Store
	// Telemetry records loop events. Nil disables emission.
	Telemetry *telemetry.Emitter
	// Dice feeds the rolling actions. Nil gets a crypto-seeded source.
	Dice dice.Source
	// Roster briefs the director on NPC templates it may bring into combat.
	Roster map[string]game.NpcProfile
	// Opening seeds the very first director turn of a fresh session.
	Opening string
	// MaxActionRounds caps invoke/apply cycles within one turn.
	MaxActionRounds int
	// TurnTimeout bounds each model invocation attempt.
	TurnTimeout time.Duration
	// Now stamps state after each turn. Nil falls back to time.Now.
	Now func() time.Time
	// NewID generates whisper identifiers. Nil falls back to the default.
	NewID func() (string, error)
}

// Loop drives a session one turn at a time.
type Loop struct {
	invoker         llm.Invoker
	interceptor     *action.Interceptor
	store           storage.Store
	telemetry       *telemetry.Emitter
	dice            dice.Source
	roster          map[string]game.NpcProfile
	opening         string
	maxActionRounds int
	turnTimeout     time.Duration
	now             func() time.Time
	newID           func() (string, error)
}

// New validates the config and applies defaults.
func New(cfg Config) (*Loop, error) {
	if cfg.Invoker == nil {
		return nil, errors.New("invoker is required")
	}

	l := &Loop{
		invoker:         cfg.Invoker,
		interceptor:     cfg.Interceptor,
		store:           cfg.Store,
		telemetry:       cfg.Telemetry,
		dice:            cfg.Dice,
		roster:          cfg.Roster,
		opening:         strings.TrimSpace(cfg.Opening),
		maxActionRounds: cfg.MaxActionRounds,
		turnTimeout:     cfg.TurnTimeout,
		now:             cfg.Now,
		newID:           cfg.NewID,
	}
	if l.interceptor == nil {
		l.interceptor = action.NewInterceptor(nil)
	}
	if l.dice == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, fmt.Errorf("seed dice source: %w", err)
		}
		l.dice = dice.NewSource(seed)
	}
	if l.maxActionRounds <= 0 {
		l.maxActionRounds = defaultMaxActionRounds
	}
	if l.turnTimeout <= 0 {
		l.turnTimeout = timeouts.Turn
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l, nil
}

// ActionReport records one intercepted action within a turn.
type ActionReport struct {
	Name         string
	Confirmation string
	Rejected     bool
	Code         string
}

// TurnReport summarizes one executed turn.
type TurnReport struct {
	Actor turn.Actor
	Turn  int
	// Skipped marks a turn whose model invocation failed after retry.
	Skipped    bool
	SkipReason string
	Narration  []string
	Actions    []ActionReport
}

// RunTurn executes one actor turn and returns the replacement state. The
// input state is never mutated. A skipped turn still advances the cursor
// and logs the skip; only cancellation and storage failures return errors.
func (l *Loop) RunTurn(ctx context.Context, state game.GameState) (game.GameState, TurnReport, error) {
	if err := ctx.Err(); err != nil {
		return state, TurnReport{}, err
	}

	actor, working, err := turn.Next(state)
	if err != nil {
		return state, TurnReport{}, err
	}

	ctx, span := tracer.Start(ctx, "director.turn", trace.WithAttributes(
		attribute.String("session.id", working.ID),
		attribute.String("actor.id", actor.AgentID),
		attribute.String("actor.key", actor.Key),
		attribute.Int("turn.number", working.TurnCount),
	))
	defer span.End()

	report := TurnReport{Actor: actor, Turn: working.TurnCount}
	l.emit(ctx, working.ID, telemetry.EventTurnStarted, actor.Key, "", working.TurnCount)

	messages := l.buildMessages(working, actor)
	actions := l.actionDefinitions()

	for round := 0; round < l.maxActionRounds; round++ {
		reply, invokeErr := l.invoke(ctx, working.ID, working.TurnCount, llm.Request{Messages: messages, Actions: actions})
		if invokeErr != nil {
			if ctx.Err() != nil {
				return state, report, ctx.Err()
			}
			span.RecordError(invokeErr)
			report.Skipped = true
			report.SkipReason = invokeErr.Error()
			working = working.AppendLog(game.LogEntry{
				Kind:    game.EntryNarrative,
				Turn:    working.TurnCount,
				Speaker: game.DirectorAgent,
				Content: fmt.Sprintf("%s does not act this turn.", speakerName(working, actor)),
			})
			l.emit(ctx, working.ID, telemetry.EventTurnSkipped, actor.Key, invokeErr.Error(), working.TurnCount)
			break
		}

		messages = append(messages, reply.Message())
		if narration := strings.TrimSpace(reply.Narration); narration != "" {
			report.Narration = append(report.Narration, narration)
			working = working.AppendLog(game.LogEntry{
				Kind:    game.EntryNarrative,
				Turn:    working.TurnCount,
				Speaker: speakerName(working, actor),
				Content: narration,
			})
		}
		if len(reply.Calls) == 0 {
			break
		}

		for _, call := range reply.Calls {
			before := working
			outcome := l.interceptor.Apply(action.Invocation{
				Actor: actor.AgentID,
				Turn:  working.TurnCount,
				Dice:  l.dice,
				NewID: l.newID,
			}, working, action.Request{Name: call.Name, Args: call.Args})
			working = turn.Resolve(before, outcome.State)

			messages = append(messages, llm.Observation(call.ID, outcome.Confirmation))
			report.Actions = append(report.Actions, ActionReport{
				Name:         call.Name,
				Confirmation: outcome.Confirmation,
				Rejected:     outcome.Rejected,
				Code:         outcome.Code,
			})
			l.emitAction(ctx, working, actor, call.Name, outcome)

			switch {
			case !before.Combat.Active && working.Combat.Active:
				l.emit(ctx, working.ID, telemetry.EventCombatStarted, actor.Key, strings.Join(working.Combat.InitiativeOrder, ", "), working.TurnCount)
			case before.Combat.Active && !working.Combat.Active:
				l.emit(ctx, working.ID, telemetry.EventCombatEnded, actor.Key, "", working.TurnCount)
			}
		}
	}

	working = working.Stamp(l.now())
	if l.store != nil {
		if err := l.store.SaveSession(ctx, working); err != nil {
			return working, report, fmt.Errorf("autosave session: %w", err)
		}
		l.emit(ctx, working.ID, telemetry.EventSessionSaved, actor.Key, "", working.TurnCount)
	}
	return working, report, nil
}

// Run executes up to turns consecutive turns, stopping early on
// cancellation or a storage failure.
func (l *Loop) Run(ctx context.Context, state game.GameState, turns int) (game.GameState, []TurnReport, error) {
	reports := make([]TurnReport, 0, turns)
	for i := 0; i < turns; i++ {
		next, report, err := l.RunTurn(ctx, state)
		if err != nil {
			return next, reports, err
		}
		state = next
		reports = append(reports, report)
	}
	return state, reports, nil
}

// invoke calls the model, retrying once on failure. Each attempt gets its
// own timeout so one stalled request cannot hold the turn open forever.
func (l *Loop) invoke(ctx context.Context, sessionID string, turnNumber int, req llm.Request) (llm.Reply, error) {
	var lastErr error
	for attempt := 1; attempt <= invokeAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, l.turnTimeout)
		reply, err := l.invoker.Invoke(attemptCtx, req)
		cancel()
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return llm.Reply{}, ctx.Err()
		}
		if attempt < invokeAttempts {
			l.emit(ctx, sessionID, telemetry.EventInvocationRetry, "", err.Error(), turnNumber)
		}
	}
	return llm.Reply{}, lastErr
}

func (l *Loop) buildMessages(state game.GameState, actor turn.Actor) []llm.Message {
	var actorCtx projection.ActorContext
	if actor.NpcKey != "" {
		actorCtx = projection.BuildNpcContext(state, actor.NpcKey)
	} else {
		actorCtx = projection.BuildActorContext(state, actor.AgentID)
	}

	system := actorCtx.SystemPrompt()
	if actor.AgentID == game.DirectorAgent && len(l.roster) > 0 {
		system += "\n\n" + rosterPrompt(l.roster)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: actorCtx.UserPrompt()},
	}
	if state.TurnCount == 1 && actor.AgentID == game.DirectorAgent && l.opening != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleUser,
			Content: "Open the session for the table:\n" + l.opening,
		})
	}
	return messages
}

func (l *Loop) actionDefinitions() []llm.ActionDef {
	defs := l.interceptor.Registry().ListDefinitions()
	out := make([]llm.ActionDef, 0, len(defs))
	for _, def := range defs {
		out = append(out, llm.ActionDef{Name: def.Name, Description: def.Description, Schema: def.Schema})
	}
	return out
}

func (l *Loop) emit(ctx context.Context, sessionID, eventName, actorKey, detail string, turnNumber int) {
	err := l.telemetry.Emit(ctx, storage.TelemetryEvent{
		SessionID: sessionID,
		EventName: eventName,
		Actor:     actorKey,
		Detail:    detail,
		Turn:      turnNumber,
	})
	if err != nil {
		log.Printf("telemetry emit %s: %v", eventName, err)
	}
}

func (l *Loop) emitAction(ctx context.Context, state game.GameState, actor turn.Actor, name string, outcome action.Outcome) {
	eventName := telemetry.EventActionApplied
	detail := name
	if outcome.Rejected {
		eventName = telemetry.EventActionRejected
		detail = name + ": " + outcome.Code
	}
	l.emit(ctx, state.ID, eventName, actor.Key, detail, state.TurnCount)
}

// speakerName resolves the narrative voice for a turn: the character name
// for PC agents, the NPC's name on routed NPC slots, the director otherwise.
func speakerName(state game.GameState, actor turn.Actor) string {
	if actor.NpcKey != "" {
		if profile, ok := state.Combat.NpcProfiles[actor.NpcKey]; ok && profile.Name != "" {
			return profile.Name
		}
		return actor.NpcKey
	}
	if name, ok := state.Party[actor.AgentID]; ok {
		return name
	}
	return actor.AgentID
}

// rosterPrompt renders the setup roster as a director-only briefing.
func rosterPrompt(roster map[string]game.NpcProfile) string {
	keys := make([]string, 0, len(roster))
	for key := range roster {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("NPC ROSTER (yours to bring into combat by key):")
	for _, key := range keys {
		profile := roster[key]
		fmt.Fprintf(&sb, "\n- %s: %s, HP %d/%d, AC %d", key, profile.Name, profile.HPCurrent, profile.HPMax, profile.ArmorClass)
		if profile.Personality != "" {
			fmt.Fprintf(&sb, ". Personality: %s", profile.Personality)
		}
		if profile.Tactics != "" {
			fmt.Fprintf(&sb, ". Tactics: %s", profile.Tactics)
		}
		if profile.Secret != "" {
			fmt.Fprintf(&sb, ". Secret: %s", profile.Secret)
		}
	}
	return sb.String()
}
