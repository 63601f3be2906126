package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wrenfold/roundtable/internal/storage"
	"github.com/wrenfold/roundtable/internal/storage/cursor"
)

// PutTelemetryEvent appends one orchestration event.
func (s *Store) PutTelemetryEvent(ctx context.Context, record storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(record.EventName) == "" {
		return fmt.Errorf("event name is required")
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (
	session_id, event_name, actor, detail, turn, trace_id, span_id, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		strings.TrimSpace(record.SessionID),
		strings.TrimSpace(record.EventName),
		strings.TrimSpace(record.Actor),
		record.Detail,
		record.Turn,
		record.TraceID,
		record.SpanID,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put telemetry event: %w", err)
	}
	return nil
}

// ListTelemetryEvents returns a page of events for one session in insertion
// order. Page tokens are opaque and scoped to the session they were minted
// for; a token issued while listing one session is rejected for any other.
func (s *Store) ListTelemetryEvents(ctx context.Context, sessionID string, pageSize int, pageToken string) (storage.TelemetryEventPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.TelemetryEventPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TelemetryEventPage{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.TelemetryEventPage{}, fmt.Errorf("session id is required")
	}
	if pageSize <= 0 {
		return storage.TelemetryEventPage{}, fmt.Errorf("page size must be greater than zero")
	}

	limit := pageSize + 1
	pageToken = strings.TrimSpace(pageToken)
	whereParts := []string{"session_id = ?"}
	args := []any{sessionID}
	if pageToken != "" {
		c, decodeErr := cursor.Decode(pageToken)
		if decodeErr != nil {
			return storage.TelemetryEventPage{}, fmt.Errorf("invalid page token: %w", decodeErr)
		}
		if scopeErr := cursor.ValidateScope(c, sessionID); scopeErr != nil {
			return storage.TelemetryEventPage{}, fmt.Errorf("invalid page token: %w", scopeErr)
		}
		whereParts = append(whereParts, "id > ?")
		args = append(args, c.Seq)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT id, session_id, event_name, actor, detail, turn, trace_id, span_id, created_at
FROM telemetry_events
WHERE %s
ORDER BY id
LIMIT ?
`, strings.Join(whereParts, " AND "))
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.TelemetryEventPage{}, fmt.Errorf("list telemetry events: %w", err)
	}
	defer rows.Close()

	page := storage.TelemetryEventPage{Events: make([]storage.TelemetryEvent, 0, pageSize)}
	rowIDs := make([]int64, 0, pageSize)
	for rows.Next() {
		var (
			idValue      int64
			sessionValue string
			eventName    string
			actor        string
			detail       string
			turn         int
			traceID      string
			spanID       string
			createdAtRaw int64
		)
		if err := rows.Scan(&idValue, &sessionValue, &eventName, &actor, &detail, &turn, &traceID, &spanID, &createdAtRaw); err != nil {
			return storage.TelemetryEventPage{}, fmt.Errorf("scan telemetry event row: %w", err)
		}
		rowIDs = append(rowIDs, idValue)
		page.Events = append(page.Events, storage.TelemetryEvent{
			ID:        strconv.FormatInt(idValue, 10),
			SessionID: sessionValue,
			EventName: eventName,
			Actor:     actor,
			Detail:    detail,
			Turn:      turn,
			TraceID:   traceID,
			SpanID:    spanID,
			CreatedAt: fromMillis(createdAtRaw),
		})
	}
	if err := rows.Err(); err != nil {
		return storage.TelemetryEventPage{}, fmt.Errorf("iterate telemetry event rows: %w", err)
	}
	if len(page.Events) > pageSize {
		token, encodeErr := cursor.Encode(cursor.NewNextPage(rowIDs[pageSize-1], sessionID))
		if encodeErr != nil {
			return storage.TelemetryEventPage{}, fmt.Errorf("encode page token: %w", encodeErr)
		}
		page.NextPageToken = token
		page.Events = page.Events[:pageSize]
	}
	return page, nil
}
