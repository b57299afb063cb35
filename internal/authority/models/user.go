// Package models defines the authority's persisted records.
package models

import "time"

// User is an identity known to the credential store.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// HasRole reports whether the user has been assigned role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
