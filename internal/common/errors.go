// Package common defines shared constants and sentinel errors used across
// the authority and resource layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorValidation    = errors.New("validation error")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Access and refresh token lifecycle.
	ErrMissingOrMalformedToken = errors.New("missing or malformed token")
	ErrTokenNotFound           = errors.New("token not found")
	ErrTokenInactive           = errors.New("token inactive")
	ErrSignatureInvalid        = errors.New("signature invalid")
	ErrIssuerMismatch          = errors.New("issuer mismatch")
	ErrAudienceMismatch        = errors.New("audience mismatch")

	// Authorization.
	ErrPolicyDenied  = errors.New("policy denied")
	ErrUnknownPolicy = errors.New("unknown policy")

	// Persistence failures that must abort the whole operation.
	ErrStorageFailure = errors.New("storage failure")
)

// IsAuthenticationFailure reports whether err belongs to the group of errors
// that is answered with a single generic "unauthorized" at the boundary.
func IsAuthenticationFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrMissingOrMalformedToken) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrTokenInactive) ||
		errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrIssuerMismatch) ||
		errors.Is(err, ErrAudienceMismatch) ||
		errors.Is(err, ErrorUnauthorized)
}
