// Package auth mints the authority's RS256 access tokens.
package auth

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/accesstoken"
	"github.com/dmitrijs2005/shopauth/internal/authority/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// KeySource yields the key id and private key to sign with.
type KeySource interface {
	Current() (string, *rsa.PrivateKey)
}

type Issuer struct {
	keys     KeySource
	issuer   string
	audience []string
	ttl      time.Duration
}

func NewIssuer(keys KeySource, issuer string, audience []string, ttl time.Duration) *Issuer {
	return &Issuer{keys: keys, issuer: issuer, audience: audience, ttl: ttl}
}

// TTL is the lifetime stamped into every access token.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs an access token for user valid from now for the configured
// lifetime, and returns it with its expiry. The kid header names the signing
// key so validators can select it from the published set.
func (i *Issuer) Issue(user *models.User, now time.Time) (string, time.Time, error) {
	kid, key := i.keys.Current()
	if key == nil {
		return "", time.Time{}, errors.New("no signing key")
	}

	expires := now.Add(i.ttl)
	claims := accesstoken.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.issuer,
			Audience:  i.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
		Name:  user.Email,
		Roles: user.Roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expires, nil
}
