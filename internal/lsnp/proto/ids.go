package proto

import (
	crand "crypto/rand"
	"encoding/hex"
)

// NewID returns a random 4-byte identifier in lowercase hex, the format used
// for MESSAGE_ID and FILEID across the protocol.
func NewID() string {
	var b [4]byte
	// rand.Read on the crypto source does not fail on supported platforms.
	_, _ = crand.Read(b[:])
	return hex.EncodeToString(b[:])
}
