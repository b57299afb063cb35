package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/refreshtokens"
	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/users"
	"github.com/dmitrijs2005/shopauth/internal/dbx"
)

// MemoryRepositoryManager keeps all records in process. One mutex guards
// every table, so a unit of work is serialized against all other access.
type MemoryRepositoryManager struct {
	mu     sync.Mutex
	users  *users.MemoryTable
	tokens *refreshtokens.MemoryTable
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:  users.NewMemoryTable(),
		tokens: refreshtokens.NewMemoryTable(),
	}
}

func (m *MemoryRepositoryManager) Users() users.Repository {
	return users.NewMemoryRepository(m.users, &m.mu, nil)
}

func (m *MemoryRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return refreshtokens.NewMemoryRepository(m.tokens, &m.mu, nil)
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *MemoryRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j := &dbx.Journal{}
	defer func() {
		if p := recover(); p != nil {
			j.Rollback()
			panic(p)
		}
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			j.Rollback()
		}
	}()

	return fn(ctx, memoryTx{
		users:  users.NewMemoryRepository(m.users, dbx.NopLocker{}, j),
		tokens: refreshtokens.NewMemoryRepository(m.tokens, dbx.NopLocker{}, j),
	})
}

type memoryTx struct {
	users  users.Repository
	tokens refreshtokens.Repository
}

func (t memoryTx) Users() users.Repository                 { return t.users }
func (t memoryTx) RefreshTokens() refreshtokens.Repository { return t.tokens }
