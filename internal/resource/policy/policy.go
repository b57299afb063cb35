// Package policy evaluates named role predicates against a validated
// principal. Evaluation is pure: no I/O, no mutation.
package policy

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/shopauth/internal/accesstoken"
	"github.com/dmitrijs2005/shopauth/internal/common"
)

// Policy is a named predicate over a principal's roles.
type Policy struct {
	name  string
	roles []string
	all   bool
}

// AnyOf allows a principal holding at least one of roles.
func AnyOf(name string, roles ...string) Policy {
	return Policy{name: name, roles: slices.Clone(roles)}
}

// AllOf allows a principal holding every one of roles.
func AllOf(name string, roles ...string) Policy {
	return Policy{name: name, roles: slices.Clone(roles), all: true}
}

func (p Policy) Name() string { return p.name }

// Allows reports whether p admits the principal. An AnyOf policy with no
// roles admits nobody; an AllOf policy with no roles admits everybody.
func (p Policy) Allows(pr accesstoken.Principal) bool {
	if p.all {
		for _, r := range p.roles {
			if !pr.HasRole(r) {
				return false
			}
		}
		return true
	}
	for _, r := range p.roles {
		if pr.HasRole(r) {
			return true
		}
	}
	return false
}

// Registry holds the policies a resource service enforces, by name.
type Registry struct {
	policies map[string]Policy
}

func NewRegistry(policies ...Policy) (*Registry, error) {
	r := &Registry{policies: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		if p.name == "" {
			return nil, errors.New("policy without a name")
		}
		if _, dup := r.policies[p.name]; dup {
			return nil, fmt.Errorf("duplicate policy %q", p.name)
		}
		r.policies[p.name] = p
	}
	return r, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.policies[name]
	return ok
}

// Evaluate returns nil when the named policy admits the principal,
// common.ErrPolicyDenied when it does not and common.ErrUnknownPolicy when
// no such policy exists.
func (r *Registry) Evaluate(name string, pr accesstoken.Principal) error {
	p, ok := r.policies[name]
	if !ok {
		return fmt.Errorf("%w: %q", common.ErrUnknownPolicy, name)
	}
	if !p.Allows(pr) {
		return fmt.Errorf("%w: %q", common.ErrPolicyDenied, name)
	}
	return nil
}
