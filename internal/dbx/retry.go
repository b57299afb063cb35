package dbx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// Postgres SQLSTATE codes that are safe to retry as a whole transaction.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// IsTransient reports whether err is a storage fault after which the whole
// transaction can be replayed from scratch.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}

// WithRetry runs fn and, when it fails with a transient error, runs it again
// with exponential backoff, at most attempts times in total. fn must be a
// complete unit of work (typically one WithTx call) so a retry never resumes
// from a half-applied state.
func WithRetry(ctx context.Context, attempts uint64, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts == 0 {
		attempts = 1
	}
	b := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
