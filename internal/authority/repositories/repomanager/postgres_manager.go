package repomanager

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/authority/migrations"
	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/refreshtokens"
	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/users"
	"github.com/dmitrijs2005/shopauth/internal/dbx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var gooseUpContext = goose.UpContext

type PostgresRepositoryManager struct {
	db            *sql.DB
	retryAttempts uint64
	retryBase     time.Duration
}

// NewPostgresRepositoryManager returns a manager over db. Units of work that
// fail with a serialization failure or deadlock are replayed up to
// retryAttempts times in total.
func NewPostgresRepositoryManager(db *sql.DB, retryAttempts uint64, retryBase time.Duration) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db, retryAttempts: retryAttempts, retryBase: retryBase}
}

func (m *PostgresRepositoryManager) Users() users.Repository {
	return users.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(m.db)
}

func (m *PostgresRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithRetry(ctx, m.retryAttempts, m.retryBase, func(ctx context.Context) error {
		return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return fn(ctx, postgresTx{tx: tx})
		})
	})
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

type postgresTx struct {
	tx dbx.DBTX
}

func (t postgresTx) Users() users.Repository {
	return users.NewPostgresRepository(t.tx)
}

func (t postgresTx) RefreshTokens() refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(t.tx)
}
