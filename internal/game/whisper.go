package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wrenfold/roundtable/internal/id"
)

var (
	// ErrEmptyWhisperContent indicates a whisper with no content.
	ErrEmptyWhisperContent = errors.New("whisper content is required")
	// ErrEmptyWhisperTarget indicates a whisper with no target agent.
	ErrEmptyWhisperTarget = errors.New("whisper target agent is required")
	// ErrWhisperToSelf indicates a whisper addressed to its own sender.
	ErrWhisperToSelf = errors.New("whisper target must differ from sender")
)

// Whisper is a private, directed message from the director to one agent.
// It stays out of the shared ground-truth log until revealed.
type Whisper struct {
	ID           string
	FromAgent    string
	ToAgent      string
	Content      string
	TurnCreated  int
	Revealed     bool
	TurnRevealed *int
}

// CreateWhisperInput describes the data needed to create a whisper.
type CreateWhisperInput struct {
	FromAgent string
	ToAgent   string
	Content   string
	Turn      int
}

// CreateWhisper creates an unrevealed whisper with a generated id.
func CreateWhisper(input CreateWhisperInput, idGenerator func() (string, error)) (Whisper, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateWhisperInput(input)
	if err != nil {
		return Whisper{}, err
	}

	whisperID, err := idGenerator()
	if err != nil {
		return Whisper{}, fmt.Errorf("generate whisper id: %w", err)
	}

	return Whisper{
		ID:          whisperID,
		FromAgent:   normalized.FromAgent,
		ToAgent:     normalized.ToAgent,
		Content:     normalized.Content,
		TurnCreated: normalized.Turn,
	}, nil
}

// NormalizeCreateWhisperInput trims and validates whisper input.
func NormalizeCreateWhisperInput(input CreateWhisperInput) (CreateWhisperInput, error) {
	input.FromAgent = strings.TrimSpace(input.FromAgent)
	input.ToAgent = strings.TrimSpace(input.ToAgent)
	if input.ToAgent == "" {
		return CreateWhisperInput{}, ErrEmptyWhisperTarget
	}
	if input.ToAgent == input.FromAgent {
		return CreateWhisperInput{}, ErrWhisperToSelf
	}
	input.Content = strings.TrimSpace(input.Content)
	if input.Content == "" {
		return CreateWhisperInput{}, ErrEmptyWhisperContent
	}
	return input, nil
}

// MatchKind classifies how a reveal hint matched an agent's whispers.
type MatchKind int

const (
	// MatchNone means no whisper matched the hint.
	MatchNone MatchKind = iota
	// MatchActive means an unrevealed whisper matched and may be revealed.
	MatchActive
	// MatchRevealed means the hint only matched an already-revealed whisper.
	MatchRevealed
)

// MatchWhisper locates a whisper by exact id or by case-insensitive
// substring against content. Unrevealed whispers are scanned first in
// creation order and the first match wins; revealed whispers are scanned
// second so callers can report the already-revealed case distinctly.
func MatchWhisper(list []Whisper, hint string) (int, MatchKind) {
	trimmed := strings.TrimSpace(hint)
	if trimmed == "" {
		return -1, MatchNone
	}
	lowered := strings.ToLower(trimmed)

	for i, w := range list {
		if w.Revealed {
			continue
		}
		if w.ID == trimmed || strings.Contains(strings.ToLower(w.Content), lowered) {
			return i, MatchActive
		}
	}
	for i, w := range list {
		if !w.Revealed {
			continue
		}
		if w.ID == trimmed || strings.Contains(strings.ToLower(w.Content), lowered) {
			return i, MatchRevealed
		}
	}
	return -1, MatchNone
}

// RevealWhisper marks the whisper at index revealed on the provided turn and
// returns the replacement list. The input list is never modified; reveals
// happen exactly once, so the caller must check Revealed before calling.
func RevealWhisper(list []Whisper, index, turn int) []Whisper {
	out := append([]Whisper(nil), list...)
	w := out[index]
	w.Revealed = true
	revealedTurn := turn
	w.TurnRevealed = &revealedTurn
	out[index] = w
	return out
}

// cloneWhispers deep-copies a whisper list, including the revealed-turn
// pointers.
func cloneWhispers(list []Whisper) []Whisper {
	if list == nil {
		return nil
	}
	out := make([]Whisper, len(list))
	for i, w := range list {
		if w.TurnRevealed != nil {
			turn := *w.TurnRevealed
			w.TurnRevealed = &turn
		}
		out[i] = w
	}
	return out
}
