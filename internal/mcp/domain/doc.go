// Package domain translates MCP operations into table commands.
//
// The package is intentionally explicit about that mapping:
// - decode MCP tool input into session-scoped requests,
// - route mutations through the same action registry the director uses,
// - and surface structured outputs and resources that MCP clients can render.
//
// This keeps MCP behavior auditable from protocol message -> table action ->
// stored session update.
package domain
