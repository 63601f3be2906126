package storage

import (
	"context"
	"time"
)

// TelemetryEvent stores one append-only orchestration event, such as a turn
// handed out, an action applied, or an invocation failure.
type TelemetryEvent struct {
	ID        string
	SessionID string
	EventName string
	Actor     string
	Detail    string
	Turn      int
	TraceID   string
	SpanID    string
	CreatedAt time.Time
}

// TelemetryEventPage is a paged set of telemetry events.
type TelemetryEventPage struct {
	Events        []TelemetryEvent
	NextPageToken string
}

// TelemetryStore records orchestration events for later inspection.
type TelemetryStore interface {
	PutTelemetryEvent(ctx context.Context, record TelemetryEvent) error
	ListTelemetryEvents(ctx context.Context, sessionID string, pageSize int, pageToken string) (TelemetryEventPage, error)
}
