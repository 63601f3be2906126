package game

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wrenfold/roundtable/internal/id"
)

var (
	// ErrEmptySessionName indicates a missing session name.
	ErrEmptySessionName = errors.New("session name is required")
	// ErrNoPlayerAgents indicates a session without any player agents.
	ErrNoPlayerAgents = errors.New("at least one player agent is required")
	// ErrEmptyAgentID indicates a player entry with no agent identifier.
	ErrEmptyAgentID = errors.New("player agent identifier is required")
	// ErrReservedAgentID indicates a player using the director identifier.
	ErrReservedAgentID = errors.New("agent identifier is reserved for the director")
	// ErrDuplicateAgentID indicates two players sharing one identifier.
	ErrDuplicateAgentID = errors.New("agent identifiers must be unique")
	// ErrDuplicateCharacter indicates two sheets sharing one display name.
	ErrDuplicateCharacter = errors.New("character names must be unique")
)

// GameState is the root record of a running session. It is passed by value
// through the router, the interceptor, and the orchestration loop; every
// transition returns a replacement value.
type GameState struct {
	ID   string
	Name string

	// TurnQueue is the exploration-mode rotation: the director exactly once
	// plus each PC agent exactly once.
	TurnQueue []string
	// TurnCount is the number of turns handed out so far.
	TurnCount int
	// Cursor indexes the active order (turn queue or initiative order). It
	// resets when combat starts or ends.
	Cursor int

	Log     []LogEntry
	Party   map[string]string // agent id -> character display name
	Sheets  map[string]CharacterSheet
	Secrets map[string][]Whisper

	Combat       CombatState
	TacticalMode bool

	// ParentID is empty for a root timeline; OriginID names the root of the
	// whole lineage; ForkedAtTurn records where a branch split off.
	ParentID     string
	OriginID     string
	ForkedAtTurn int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlayerInput pairs an agent identifier with the character it plays.
type PlayerInput struct {
	Agent string
	Sheet CharacterSheet
}

// CreateStateInput describes the data needed to start a session.
type CreateStateInput struct {
	Name         string
	TacticalMode bool
	Players      []PlayerInput
}

// CreateState creates a fresh root session state with a generated id. The
// turn queue starts with the director followed by each player agent in the
// order provided.
func CreateState(input CreateStateInput, now func() time.Time, idGenerator func() (string, error)) (GameState, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateStateInput(input)
	if err != nil {
		return GameState{}, err
	}

	sessionID, err := idGenerator()
	if err != nil {
		return GameState{}, fmt.Errorf("generate session id: %w", err)
	}

	queue := make([]string, 0, len(normalized.Players)+1)
	queue = append(queue, DirectorAgent)
	party := make(map[string]string, len(normalized.Players))
	sheets := make(map[string]CharacterSheet, len(normalized.Players))
	for _, player := range normalized.Players {
		queue = append(queue, player.Agent)
		party[player.Agent] = player.Sheet.Name
		sheets[player.Sheet.Name] = cloneSheet(player.Sheet)
	}

	createdAt := now().UTC()
	return GameState{
		ID:           sessionID,
		Name:         normalized.Name,
		TurnQueue:    queue,
		Party:        party,
		Sheets:       sheets,
		Secrets:      make(map[string][]Whisper),
		TacticalMode: normalized.TacticalMode,
		OriginID:     sessionID,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// NormalizeCreateStateInput trims and validates session input.
func NormalizeCreateStateInput(input CreateStateInput) (CreateStateInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return CreateStateInput{}, ErrEmptySessionName
	}
	if len(input.Players) == 0 {
		return CreateStateInput{}, ErrNoPlayerAgents
	}

	agents := make(map[string]struct{}, len(input.Players))
	names := make(map[string]struct{}, len(input.Players))
	players := make([]PlayerInput, 0, len(input.Players))
	for _, player := range input.Players {
		player.Agent = strings.TrimSpace(player.Agent)
		if player.Agent == "" {
			return CreateStateInput{}, ErrEmptyAgentID
		}
		if player.Agent == DirectorAgent {
			return CreateStateInput{}, ErrReservedAgentID
		}
		if _, ok := agents[player.Agent]; ok {
			return CreateStateInput{}, fmt.Errorf("%w: %s", ErrDuplicateAgentID, player.Agent)
		}
		agents[player.Agent] = struct{}{}

		player.Sheet.Name = strings.TrimSpace(player.Sheet.Name)
		if err := ValidateSheet(player.Sheet); err != nil {
			return CreateStateInput{}, fmt.Errorf("player %s: %w", player.Agent, err)
		}
		if _, ok := names[player.Sheet.Name]; ok {
			return CreateStateInput{}, fmt.Errorf("%w: %s", ErrDuplicateCharacter, player.Sheet.Name)
		}
		names[player.Sheet.Name] = struct{}{}

		players = append(players, player)
	}
	input.Players = players
	return input, nil
}

// PlayerAgents returns the PC agent identifiers in turn-queue order.
func (s GameState) PlayerAgents() []string {
	agents := make([]string, 0, len(s.TurnQueue))
	for _, agent := range s.TurnQueue {
		if agent == DirectorAgent {
			continue
		}
		agents = append(agents, agent)
	}
	return agents
}

// SheetFor looks up the sheet played by an agent. The second return is
// false when the agent has no bound character or the sheet is missing.
func (s GameState) SheetFor(agent string) (CharacterSheet, bool) {
	name, ok := s.Party[agent]
	if !ok {
		return CharacterSheet{}, false
	}
	sheet, ok := s.Sheets[name]
	return sheet, ok
}

// Clone returns a deep copy. Mutating the copy never affects the original,
// which is what keeps forked timelines independent.
func (s GameState) Clone() GameState {
	out := s
	out.TurnQueue = cloneStrings(s.TurnQueue)
	out.Log = append([]LogEntry(nil), s.Log...)
	if s.Party != nil {
		out.Party = make(map[string]string, len(s.Party))
		for agent, name := range s.Party {
			out.Party[agent] = name
		}
	}
	if s.Sheets != nil {
		out.Sheets = make(map[string]CharacterSheet, len(s.Sheets))
		for name, sheet := range s.Sheets {
			out.Sheets[name] = cloneSheet(sheet)
		}
	}
	if s.Secrets != nil {
		out.Secrets = make(map[string][]Whisper, len(s.Secrets))
		for agent, list := range s.Secrets {
			out.Secrets[agent] = cloneWhispers(list)
		}
	}
	out.Combat = s.Combat.Clone()
	return out
}

// AppendLog returns a new state with an entry appended to the ground-truth
// log.
func (s GameState) AppendLog(entry LogEntry) GameState {
	out := s
	out.Log = append(append([]LogEntry(nil), s.Log...), entry)
	return out
}

// WithSheet returns a new state with the named character sheet replaced.
func (s GameState) WithSheet(name string, sheet CharacterSheet) GameState {
	out := s
	out.Sheets = make(map[string]CharacterSheet, len(s.Sheets)+1)
	for existing, value := range s.Sheets {
		out.Sheets[existing] = value
	}
	out.Sheets[name] = sheet
	return out
}

// WithSecrets returns a new state with one agent's whisper list replaced.
func (s GameState) WithSecrets(agent string, list []Whisper) GameState {
	out := s
	out.Secrets = make(map[string][]Whisper, len(s.Secrets)+1)
	for existing, value := range s.Secrets {
		out.Secrets[existing] = value
	}
	out.Secrets[agent] = list
	return out
}

// AddWhisper returns a new state with the whisper appended to its target
// agent's secret list.
func (s GameState) AddWhisper(w Whisper) GameState {
	existing := s.Secrets[w.ToAgent]
	list := append(append([]Whisper(nil), existing...), w)
	return s.WithSecrets(w.ToAgent, list)
}

// WithCombat returns a new state with the combat record replaced.
func (s GameState) WithCombat(combat CombatState) GameState {
	out := s
	out.Combat = combat
	return out
}

// WithTurnQueue returns a new state with the exploration queue replaced.
func (s GameState) WithTurnQueue(queue []string) GameState {
	out := s
	out.TurnQueue = cloneStrings(queue)
	return out
}

// Stamp returns a new state with UpdatedAt set to ts in UTC.
func (s GameState) Stamp(ts time.Time) GameState {
	out := s
	out.UpdatedAt = ts.UTC()
	return out
}

func cloneStrings(list []string) []string {
	if list == nil {
		return nil
	}
	return append([]string(nil), list...)
}
