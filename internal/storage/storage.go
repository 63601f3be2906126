package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wrenfold/roundtable/internal/game"
	"github.com/wrenfold/roundtable/internal/id"
)

// ErrNotFound indicates a requested session is missing.
var ErrNotFound = errors.New("session not found")

// SessionSummary is the row shape for listing and lineage walks. It is
// read from indexed columns without decoding the full document.
type SessionSummary struct {
	ID           string
	Name         string
	ParentID     string
	OriginID     string
	ForkedAtTurn int
	TurnCount    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsBranch reports whether the session forked off another timeline.
func (s SessionSummary) IsBranch() bool {
	return s.ParentID != ""
}

// Store persists full session states.
type Store interface {
	// SaveSession upserts the state under its session id.
	SaveSession(ctx context.Context, state game.GameState) error
	// LoadSession reconstructs the full state for one session.
	LoadSession(ctx context.Context, sessionID string) (game.GameState, error)
	// ListSessions returns summaries for every stored session, newest first.
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	// Lineage walks parent links from the session toward its origin. The
	// first element is the session itself, the last is the root timeline.
	Lineage(ctx context.Context, sessionID string) ([]SessionSummary, error)
	// DeleteSession removes one session.
	DeleteSession(ctx context.Context, sessionID string) error
}

// ForkSession branches a stored session into an independent timeline and
// persists the branch. The parent is left untouched.
func ForkSession(ctx context.Context, store Store, parentID, name string, now func() time.Time, idGenerator func() (string, error)) (game.GameState, error) {
	if store == nil {
		return game.GameState{}, errors.New("store is required")
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	parent, err := store.LoadSession(ctx, parentID)
	if err != nil {
		return game.GameState{}, err
	}

	branchID, err := idGenerator()
	if err != nil {
		return game.GameState{}, fmt.Errorf("generate branch id: %w", err)
	}

	branch, err := game.Fork(parent, branchID, name, now)
	if err != nil {
		return game.GameState{}, err
	}

	if err := store.SaveSession(ctx, branch); err != nil {
		return game.GameState{}, fmt.Errorf("save branch: %w", err)
	}
	return branch, nil
}
