package booking

import (
	"crypto/rand"
	"encoding/hex"
)

const cancelTokenBytes = 32

// NewCancelToken returns 256 bits of randomness, hex encoded.
func NewCancelToken() (string, error) {
	var b [cancelTokenBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
