package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/accesstoken"
	"github.com/dmitrijs2005/shopauth/internal/authority/models"
	"github.com/golang-jwt/jwt/v5"
)

type staticKey struct {
	kid string
	key *rsa.PrivateKey
}

func (s staticKey) Current() (string, *rsa.PrivateKey) { return s.kid, s.key }

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	return k
}

func TestIssue_ClaimsAndHeader(t *testing.T) {
	t.Parallel()

	key := newKey(t)
	iss := NewIssuer(staticKey{kid: "k1", key: key}, "https://auth.shop.local", []string{"orders", "catalog"}, time.Hour)

	now := time.Now().Truncate(time.Second)
	user := &models.User{ID: "u-1", Email: "alice@example.com", Roles: []string{"Admin", "User"}}

	tok, exp, err := iss.Issue(user, now)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("expiry mismatch: %v", exp)
	}

	claims := &accesstoken.Claims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if parsed.Header["kid"] != "k1" {
		t.Fatalf("kid header mismatch: %v", parsed.Header["kid"])
	}
	if claims.Subject != "u-1" || claims.Name != "alice@example.com" || claims.Issuer != "https://auth.shop.local" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if len(claims.Roles) != 2 || len(claims.Audience) != 2 || claims.ID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.IssuedAt.Time.Equal(now) {
		t.Fatalf("iat mismatch: %v", claims.IssuedAt)
	}
}

func TestIssue_WrongKeyFailsVerification(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(staticKey{kid: "k1", key: newKey(t)}, "iss", nil, time.Hour)
	tok, _, err := iss.Issue(&models.User{ID: "u"}, time.Now())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	other := newKey(t)
	_, err = jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) { return &other.PublicKey, nil })
	if err == nil {
		t.Fatal("expected signature error")
	}
}

func TestIssue_NoKey(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(staticKey{}, "iss", nil, time.Hour)
	if _, _, err := iss.Issue(&models.User{ID: "u"}, time.Now()); err == nil {
		t.Fatal("expected error without a signing key")
	}
}
