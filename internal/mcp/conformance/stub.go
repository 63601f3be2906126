//go:build !conformance

package conformance

import "github.com/modelcontextprotocol/go-sdk/mcp"

// Register registers nothing; the probe fixtures need the conformance build tag.
func Register(_ *mcp.Server) {}
