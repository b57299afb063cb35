// Package guard enforces authentication and named policies at a resource
// service boundary, over HTTP and gRPC.
package guard

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/shopauth/internal/accesstoken"
	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/logging"
	"github.com/dmitrijs2005/shopauth/internal/metrics"
)

type Validator interface {
	Validate(raw string) (accesstoken.Principal, error)
}

type Policies interface {
	Evaluate(name string, p accesstoken.Principal) error
}

type Guard struct {
	service   string
	validator Validator
	policies  Policies
	logger    logging.Logger
}

func New(service string, v Validator, p Policies, l logging.Logger) *Guard {
	return &Guard{
		service:   service,
		validator: v,
		policies:  p,
		logger:    l.With("module", "guard"),
	}
}

type ctxKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p accesstoken.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal the guard admitted, if any.
func PrincipalFromContext(ctx context.Context) (accesstoken.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(accesstoken.Principal)
	return p, ok
}

// Check validates raw and, when policy is not empty, evaluates it. The
// returned error is an authentication failure, common.ErrPolicyDenied or
// common.ErrUnknownPolicy.
func (g *Guard) Check(ctx context.Context, raw, policy string) (accesstoken.Principal, error) {
	p, err := g.validator.Validate(raw)
	if err != nil {
		g.logger.Debug(ctx, "Token rejected", "error", err)
		return accesstoken.Principal{}, err
	}
	if policy == "" {
		return p, nil
	}

	err = g.policies.Evaluate(policy, p)
	switch {
	case err == nil:
		metrics.PolicyDecisionsTotal.WithLabelValues(g.service, policy, "allow").Inc()
	case errors.Is(err, common.ErrPolicyDenied):
		metrics.PolicyDecisionsTotal.WithLabelValues(g.service, policy, "deny").Inc()
		g.logger.Info(ctx, "Policy denied", "policy", policy, "user_id", p.Subject())
	default:
		g.logger.Error(ctx, "Policy evaluation failed", "policy", policy, "error", err)
	}
	return p, err
}
