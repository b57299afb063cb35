// Package validator checks access tokens locally against cached verification
// keys: signature, issuer, expiry and, when configured, audience.
package validator

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/accesstoken"
	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
)

// KeySource resolves a key id to a verification key without network I/O.
type KeySource interface {
	Key(kid string) (*rsa.PublicKey, error)
}

type Options struct {
	Service  string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

type Validator struct {
	keys    KeySource
	service string
	parser  *jwt.Parser
}

func New(keys KeySource, opts Options) *Validator {
	return newValidator(keys, opts, time.Now)
}

func newValidator(keys KeySource, opts Options, now func() time.Time) *Validator {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(opts.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(opts.Leeway),
		jwt.WithTimeFunc(now),
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}

	return &Validator{
		keys:    keys,
		service: opts.Service,
		parser:  jwt.NewParser(parserOpts...),
	}
}

// Validate verifies raw and returns the caller's identity. Errors are one
// of the common token errors.
func (v *Validator) Validate(raw string) (accesstoken.Principal, error) {
	p, err := v.validate(raw)
	metrics.TokenValidationsTotal.WithLabelValues(v.service, resultLabel(err)).Inc()
	return p, err
}

func (v *Validator) validate(raw string) (accesstoken.Principal, error) {
	if raw == "" {
		return accesstoken.Principal{}, common.ErrMissingOrMalformedToken
	}

	claims := &accesstoken.Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, v.keyfunc)
	if err != nil {
		return accesstoken.Principal{}, mapError(err)
	}
	if claims.Subject == "" {
		return accesstoken.Principal{}, fmt.Errorf("%w: no subject", common.ErrMissingOrMalformedToken)
	}

	return accesstoken.PrincipalFromClaims(claims), nil
}

func (v *Validator) keyfunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("no key id")
	}
	return v.keys.Key(kid)
}

func mapError(err error) error {
	var kind error
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		kind = common.ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		kind = common.ErrTokenInactive
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		kind = common.ErrIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		kind = common.ErrAudienceMismatch
	default:
		kind = common.ErrMissingOrMalformedToken
	}
	return fmt.Errorf("%w: %v", kind, err)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, common.ErrTokenInactive):
		return "inactive"
	case errors.Is(err, common.ErrIssuerMismatch):
		return "bad_issuer"
	case errors.Is(err, common.ErrAudienceMismatch):
		return "bad_audience"
	default:
		return "malformed"
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", common.ErrMissingOrMalformedToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", common.ErrMissingOrMalformedToken
	}
	return token, nil
}
