// Package common contains shared constants and sentinel errors used across
// the authority and the resource guards.
package common

// RefreshTokenCookieName is the cookie carrying the refresh token between the
// browser and the authority.
const RefreshTokenCookieName = "X-Refresh-Token"

// AuthorizationHeaderName carries "Bearer <access token>" on resource calls.
const AuthorizationHeaderName = "Authorization"

// AccessTokenMetadataKey is the gRPC metadata key used to carry the bearer
// access token.
const AccessTokenMetadataKey = "authorization"

// Identity headers set by a guard on requests forwarded upstream.
const (
	UserIDHeaderName    = "X-User-Id"
	UserNameHeaderName  = "X-User-Name"
	UserRolesHeaderName = "X-User-Roles"
)
