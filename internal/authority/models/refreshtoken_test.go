package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_Lifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := &RefreshToken{CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	assert.True(t, tok.IsActive(now))
	assert.True(t, tok.IsActive(now.Add(time.Hour-time.Nanosecond)))
	assert.False(t, tok.IsActive(now.Add(time.Hour)), "expiry instant is already expired")
	assert.True(t, tok.IsExpired(now.Add(time.Hour)))

	revoked := now.Add(time.Minute)
	tok.RevokedAt = &revoked
	assert.True(t, tok.IsRevoked())
	assert.False(t, tok.IsActive(now.Add(2*time.Minute)))
}

func TestUser_HasRole(t *testing.T) {
	u := &User{Roles: []string{"User", "Admin"}}
	assert.True(t, u.HasRole("Admin"))
	assert.False(t, u.HasRole("ProductManager"))
}
