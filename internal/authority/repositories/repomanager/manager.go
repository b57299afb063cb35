// Package repomanager hands out repositories bound either to the shared
// store or to a single unit of work.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/refreshtokens"
	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/users"
)

// Repositories is a set of repositories sharing one handle.
type Repositories interface {
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
}

type RepositoryManager interface {
	Repositories

	RunMigrations(ctx context.Context) error

	// WithinTx runs fn with repositories whose writes commit together when fn
	// returns nil and are discarded otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
