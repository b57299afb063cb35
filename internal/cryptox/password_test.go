package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Password123!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "Password123!", hash)

	assert.True(t, CheckPassword(hash, "Password123!"))
	assert.False(t, CheckPassword(hash, "password123!"))
	assert.False(t, CheckPassword("not-a-hash", "Password123!"))
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	a, err := HashPassword("same", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPassword("same", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashPassword_InvalidCostFallsBack(t *testing.T) {
	hash, err := HashPassword("pw", 1000)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, cost)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", 73), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestBurnPasswordCheck_AlwaysFalse(t *testing.T) {
	assert.False(t, BurnPasswordCheck("anything", bcrypt.MinCost))
	assert.False(t, BurnPasswordCheck("", bcrypt.MinCost))
}

func TestBurnPasswordCheck_MatchesConfiguredCost(t *testing.T) {
	hash, err := HashPassword("pw", bcrypt.MinCost+1)
	require.NoError(t, err)
	realCost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)

	BurnPasswordCheck("pw", bcrypt.MinCost+1)
	dummyCost, err := bcrypt.Cost(dummyHash(bcrypt.MinCost + 1))
	require.NoError(t, err)
	assert.Equal(t, realCost, dummyCost, "unknown-user path must do the same work as a real check")

	assert.Same(t, &dummyHash(bcrypt.MinCost + 1)[0], &dummyHash(bcrypt.MinCost + 1)[0], "dummy hash is generated once per cost")
}

func TestDummyHash_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultCost, normalizeCost(1000))
	assert.Equal(t, DefaultCost, normalizeCost(0))
	assert.Equal(t, bcrypt.MinCost, normalizeCost(bcrypt.MinCost))
}
