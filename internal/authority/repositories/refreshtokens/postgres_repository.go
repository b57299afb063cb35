package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/authority/models"
	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/dbx"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, HashToken(token.Token), token.CreatedAt, token.ExpiresAt); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, created_at, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	rec, err := scanToken(r.db.QueryRowContext(ctx, query, HashToken(token)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	rec.Token = token
	return rec, nil
}

// Revoke is a compare-and-swap on revoked_at: the row lock taken by UPDATE
// makes a concurrent second caller re-check the predicate and match nothing.
func (r *PostgresRepository) Revoke(ctx context.Context, token string, at time.Time) (*models.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2
		RETURNING id, user_id, created_at, expires_at, revoked_at
	`
	rec, err := scanToken(r.db.QueryRowContext(ctx, query, HashToken(token), at))
	if err == nil {
		rec.Token = token
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	existing, err := r.Find(ctx, token)
	if err != nil {
		return nil, err
	}
	return existing, common.ErrTokenInactive
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
	`
	res, err := r.db.ExecContext(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func scanToken(row *sql.Row) (*models.RefreshToken, error) {
	rec := &models.RefreshToken{}
	var revoked sql.NullTime
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.CreatedAt, &rec.ExpiresAt, &revoked); err != nil {
		return nil, err
	}
	if revoked.Valid {
		t := revoked.Time
		rec.RevokedAt = &t
	}
	return rec, nil
}
