package models

import "time"

// RefreshToken is a persisted refresh token record. Records are never
// deleted: rotation and logout only set RevokedAt, which is never cleared.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsExpired reports whether now is at or past the expiry.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsRevoked reports whether the token was revoked by rotation or logout.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the token can still be exchanged at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
