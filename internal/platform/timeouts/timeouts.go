// Package timeouts defines shared timeout constants used across the
// orchestration loop and its transports. Centralizing these values prevents
// drift between boundaries and makes the durations discoverable.
package timeouts

import "time"

// Turn caps a single model invocation attempt inside the orchestration loop.
// The cap applies per attempt, not per turn, so a retried invocation gets a
// fresh window.
const Turn = 60 * time.Second

// HTTPShutdown limits how long the MCP HTTP server waits for in-flight
// requests during graceful shutdown.
const HTTPShutdown = 35 * time.Second

// TelemetryShutdown limits how long trace flushing may hold up process exit.
const TelemetryShutdown = 5 * time.Second
