// Package cursor provides opaque pagination token encoding/decoding for
// telemetry listings. Tokens are scope-bound: a token minted while paging one
// session cannot be replayed to page through another.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Cursor represents the internal state of a pagination token.
type Cursor struct {
	// Seq is the storage sequence of the last row already returned. The next
	// page resumes strictly after it.
	Seq int64 `json:"seq"`
	// Scope pins the token to the listing it was minted for.
	Scope string `json:"scope,omitempty"`
}

// NewNextPage creates a cursor that resumes after lastSeq within scope.
func NewNextPage(lastSeq int64, scope string) Cursor {
	return Cursor{
		Seq:   lastSeq,
		Scope: HashScope(scope),
	}
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque base64 string to a cursor.
// Returns an error if the token is invalid or malformed.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("empty token")
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}

	if c.Seq < 0 {
		return Cursor{}, fmt.Errorf("invalid cursor sequence: %d", c.Seq)
	}

	return c, nil
}

// HashScope computes a short hash of the scope string for cursor validation.
// Returns empty string for empty scope.
func HashScope(scope string) string {
	if scope == "" {
		return ""
	}
	h := sha256.Sum256([]byte(scope))
	return hex.EncodeToString(h[:8]) // 64-bit hash is sufficient for validation
}

// ValidateScope checks if the cursor's scope hash matches the current listing.
// Returns an error if the token was minted for a different scope.
func ValidateScope(c Cursor, scope string) error {
	if c.Scope != HashScope(scope) {
		return fmt.Errorf("cursor scope mismatch")
	}
	return nil
}
