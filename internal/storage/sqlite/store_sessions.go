package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wrenfold/roundtable/internal/game"
	"github.com/wrenfold/roundtable/internal/storage"
)

// SaveSession upserts the full state document with its summary columns.
func (s *Store) SaveSession(ctx context.Context, state game.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(state.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(state.Name) == "" {
		return fmt.Errorf("session name is required")
	}

	document, err := storage.EncodeState(state)
	if err != nil {
		return fmt.Errorf("encode session document: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (
	id, name, parent_id, origin_id, forked_at_turn, turn_count, document, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	parent_id = excluded.parent_id,
	origin_id = excluded.origin_id,
	forked_at_turn = excluded.forked_at_turn,
	turn_count = excluded.turn_count,
	document = excluded.document,
	updated_at = excluded.updated_at
`,
		state.ID,
		state.Name,
		state.ParentID,
		state.OriginID,
		state.ForkedAtTurn,
		state.TurnCount,
		string(document),
		toMillis(state.CreatedAt),
		toMillis(state.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession reconstructs the full state for one session.
func (s *Store) LoadSession(ctx context.Context, sessionID string) (game.GameState, error) {
	if err := ctx.Err(); err != nil {
		return game.GameState{}, err
	}
	if s == nil || s.sqlDB == nil {
		return game.GameState{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return game.GameState{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT document
FROM sessions
WHERE id = ?
`, sessionID)

	var document string
	if err := row.Scan(&document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.GameState{}, storage.ErrNotFound
		}
		return game.GameState{}, fmt.Errorf("load session: %w", err)
	}

	state, err := storage.DecodeState([]byte(document))
	if err != nil {
		return game.GameState{}, fmt.Errorf("decode session document: %w", err)
	}
	return state, nil
}

// ListSessions returns summaries for every stored session, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]storage.SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, parent_id, origin_id, forked_at_turn, turn_count, created_at, updated_at
FROM sessions
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var summaries []storage.SessionSummary
	for rows.Next() {
		summary, err := scanSessionSummaryRows(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return summaries, nil
}

// Lineage walks parent links from the session toward its origin. The first
// element is the session itself, the last is the oldest surviving ancestor.
func (s *Store) Lineage(ctx context.Context, sessionID string) ([]storage.SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	var chain []storage.SessionSummary
	seen := make(map[string]bool)
	currentID := sessionID
	for currentID != "" {
		if seen[currentID] {
			return nil, fmt.Errorf("session lineage cycle at %s", currentID)
		}
		seen[currentID] = true

		summary, err := s.getSessionSummary(ctx, currentID)
		if errors.Is(err, storage.ErrNotFound) {
			// The requested session must exist; a deleted ancestor only
			// ends the walk early.
			if len(chain) == 0 {
				return nil, storage.ErrNotFound
			}
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, summary)
		currentID = summary.ParentID
	}
	return chain, nil
}

// DeleteSession removes one session. Branches keep their parent link even
// when the parent row is gone.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session result: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) getSessionSummary(ctx context.Context, sessionID string) (storage.SessionSummary, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, parent_id, origin_id, forked_at_turn, turn_count, created_at, updated_at
FROM sessions
WHERE id = ?
`, sessionID)
	return scanSessionSummaryRow(row)
}

func scanSessionSummaryRow(row *sql.Row) (storage.SessionSummary, error) {
	var (
		summary   storage.SessionSummary
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&summary.ID,
		&summary.Name,
		&summary.ParentID,
		&summary.OriginID,
		&summary.ForkedAtTurn,
		&summary.TurnCount,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionSummary{}, storage.ErrNotFound
		}
		return storage.SessionSummary{}, fmt.Errorf("scan session row: %w", err)
	}
	summary.CreatedAt = fromMillis(createdAt)
	summary.UpdatedAt = fromMillis(updatedAt)
	return summary, nil
}

func scanSessionSummaryRows(rows *sql.Rows) (storage.SessionSummary, error) {
	var (
		summary   storage.SessionSummary
		createdAt int64
		updatedAt int64
	)
	if err := rows.Scan(
		&summary.ID,
		&summary.Name,
		&summary.ParentID,
		&summary.OriginID,
		&summary.ForkedAtTurn,
		&summary.TurnCount,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.SessionSummary{}, fmt.Errorf("scan session row: %w", err)
	}
	summary.CreatedAt = fromMillis(createdAt)
	summary.UpdatedAt = fromMillis(updatedAt)
	return summary, nil
}
