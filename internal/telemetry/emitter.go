// Package telemetry records operational events from the orchestration loop:
// turns handed out, actions applied or rejected, provider invocations that
// failed. Events are stored per session and never feed back into game state.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/wrenfold/roundtable/internal/storage"
)

// Event names emitted by the orchestration loop.
const (
	EventTurnStarted     = "turn.started"
	EventTurnSkipped     = "turn.skipped"
	EventActionApplied   = "action.applied"
	EventActionRejected  = "action.rejected"
	EventInvocationRetry = "invocation.retry"
	EventCombatStarted   = "combat.started"
	EventCombatEnded     = "combat.ended"
	EventSessionSaved    = "session.saved"
)

// Emitter records operational telemetry events.
type Emitter struct {
	store storage.TelemetryStore
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records a telemetry event. It is a no-op when the store is nil.
// An active span on the context stamps the event with its trace and span ids.
func (e *Emitter) Emit(ctx context.Context, evt storage.TelemetryEvent) error {
	if e == nil || e.store == nil {
		return nil
	}
	if evt.CreatedAt.IsZero() {
		if e.clock == nil {
			evt.CreatedAt = time.Now().UTC()
		} else {
			evt.CreatedAt = e.clock().UTC()
		}
	}
	if evt.TraceID == "" {
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			evt.TraceID = sc.TraceID().String()
			evt.SpanID = sc.SpanID().String()
		}
	}
	return e.store.PutTelemetryEvent(ctx, evt)
}
