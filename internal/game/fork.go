package game

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrEmptyForkID indicates a fork without a new session id.
	ErrEmptyForkID = errors.New("fork session id is required")
	// ErrEmptyParentID indicates a fork from a state with no id.
	ErrEmptyParentID = errors.New("fork parent id is required")
)

// Fork clones a session state into an independently mutable branch. The
// branch records its parent, the origin of the whole lineage, and the turn
// count at which it split. Later mutation of either timeline never touches
// the other.
func Fork(parent GameState, newID, name string, now func() time.Time) (GameState, error) {
	if now == nil {
		now = time.Now
	}
	newID = strings.TrimSpace(newID)
	if newID == "" {
		return GameState{}, ErrEmptyForkID
	}
	if strings.TrimSpace(parent.ID) == "" {
		return GameState{}, ErrEmptyParentID
	}

	branch := parent.Clone()
	branch.ID = newID
	branch.ParentID = parent.ID
	branch.OriginID = parent.OriginID
	if branch.OriginID == "" {
		branch.OriginID = parent.ID
	}
	branch.ForkedAtTurn = parent.TurnCount

	name = strings.TrimSpace(name)
	if name == "" {
		name = parent.Name + " (fork)"
	}
	branch.Name = name

	ts := now().UTC()
	branch.CreatedAt = ts
	branch.UpdatedAt = ts
	return branch, nil
}

// IsBranch reports whether the state is a forked branch rather than the
// root timeline.
func (s GameState) IsBranch() bool {
	return s.ParentID != ""
}
