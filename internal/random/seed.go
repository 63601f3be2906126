// Package random provides cryptographic seed generation for the engine's
// dice sources.
//
// Seeds come from crypto/rand so live sessions are unpredictable, while
// tests bypass this package entirely and construct sources from fixed seeds.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a high-entropy int64 seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
