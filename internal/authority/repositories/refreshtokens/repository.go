// Package refreshtokens declares the refresh token store contract and its
// PostgreSQL and in-memory implementations.
package refreshtokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/authority/models"
)

// Repository persists refresh token records. Only a hash of the opaque value
// is stored; lookups hash the presented value and match exactly.
type Repository interface {
	// Create stores a new active record. token.Token carries the plain value.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find returns the record for the presented value, or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke sets the revocation time of the record to at, but only when the
	// record is active at that instant. It returns the revoked record. When the
	// record exists but is already revoked or expired, it returns the record
	// together with common.ErrTokenInactive; when it does not exist,
	// common.ErrorNotFound. Among concurrent calls for one value at most one
	// succeeds.
	Revoke(ctx context.Context, token string, at time.Time) (*models.RefreshToken, error)

	// RevokeAllForUser revokes every active record owned by userID and
	// returns how many were revoked.
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// HashToken returns the storage key for a refresh token value.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
