package common

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// MakeRandHexString generates size random bytes and returns them hex-encoded,
// so the result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns size random bytes. It panics if the system
// random source fails, which crypto/rand documents as unrecoverable.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// Fingerprint returns a short, non-reversible identifier for a secret value,
// suitable for logs.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:6])
}

// WipeByteArray overwrites b with zeros. A nil slice is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
