// Package cryptox wraps password hashing for the credential store.
package cryptox

import (
	"errors"
	"sync"

	"github.com/dmitrijs2005/shopauth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new hashes.
const DefaultCost = 12

// ErrPasswordTooLong is returned for passwords bcrypt would silently truncate.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

var (
	dummyMu     sync.Mutex
	dummyHashes = map[int][]byte{}
)

// HashPassword returns a bcrypt hash of password. A cost outside bcrypt's
// range falls back to DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	b, err := bcrypt.GenerateFromPassword(pw, normalizeCost(cost))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return DefaultCost
	}
	return cost
}

// CheckPassword reports whether password matches hash. The comparison of the
// derived keys is constant-time.
func CheckPassword(hash, password string) bool {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	return bcrypt.CompareHashAndPassword([]byte(hash), pw) == nil
}

// BurnPasswordCheck performs a full bcrypt comparison against a throwaway
// hash of the given cost and always reports false. Use it when the
// identifier is unknown, with the cost real hashes are made with, so the
// response time matches the wrong-password path.
func BurnPasswordCheck(password string, cost int) bool {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	_ = bcrypt.CompareHashAndPassword(dummyHash(cost), pw)
	return false
}

// dummyHash returns the throwaway hash for cost, generating it on first use.
func dummyHash(cost int) []byte {
	cost = normalizeCost(cost)

	dummyMu.Lock()
	defer dummyMu.Unlock()
	if h, ok := dummyHashes[cost]; ok {
		return h
	}
	h, err := bcrypt.GenerateFromPassword(common.GenerateRandByteArray(16), cost)
	if err != nil {
		// keep the comparison path busy even if generation fails
		h = []byte{}
	}
	dummyHashes[cost] = h
	return h
}
