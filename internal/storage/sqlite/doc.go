// Package sqlite provides a SQLite-backed session store.
//
// It persists full session documents alongside indexed summary columns so
// listings and lineage walks never decode state, and keeps an append-only
// telemetry trail per session.
package sqlite
