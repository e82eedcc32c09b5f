package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a prefixed random identifier. Used for locally generated
// message ids, where uniqueness only matters within one conversation.
func NewID(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
