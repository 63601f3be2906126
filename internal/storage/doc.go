// Package storage defines the persistence boundary for session states.
//
// It provides the versioned document codec that turns a GameState into
// JSON and back, the Store interface that session persistence
// implementations satisfy, and the fork helper that branches a stored
// timeline. Implementations (e.g., using SQLite) live in subpackages.
//
// # Error Types
//
// The package defines common error types used across storage implementations:
//   - ErrNotFound: Indicates a requested session is missing.
package storage
