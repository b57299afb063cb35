// Package accesstoken defines the claim set carried by access tokens and the
// immutable identity a resource service derives from a validated token.
package accesstoken

import (
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role names known to the shop's resource services.
const (
	RoleAdmin          = "Admin"
	RoleUser           = "User"
	RoleProductManager = "ProductManager"
	RoleOrderManager   = "OrderManager"
)

// Claims is the JWT payload minted by the authority: registered claims
// (sub, iss, aud, iat, exp, jti) plus the display name and role names.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Principal is the authenticated caller as seen by a resource service.
// It is read-only once constructed.
type Principal struct {
	subject string
	name    string
	roles   map[string]struct{}
}

// NewPrincipal builds a Principal from a subject, display name and roles.
// Roles are matched case-sensitively; blanks and duplicates are dropped.
func NewPrincipal(subject, name string, roles []string) Principal {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r != "" {
			set[r] = struct{}{}
		}
	}
	return Principal{subject: subject, name: name, roles: set}
}

// PrincipalFromClaims converts validated claims into a Principal.
func PrincipalFromClaims(c *Claims) Principal {
	return NewPrincipal(c.Subject, c.Name, c.Roles)
}

func (p Principal) Subject() string { return p.subject }

func (p Principal) Name() string { return p.name }

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	_, ok := p.roles[role]
	return ok
}

// Roles returns a sorted copy of the role set.
func (p Principal) Roles() []string {
	out := make([]string, 0, len(p.roles))
	for r := range p.roles {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}
