package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/authority/models"
	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/dbx"
)

// MemoryTable holds refresh token records keyed by token hash. It does no
// locking of its own; repositories built over it serialize access.
type MemoryTable struct {
	byHash map[string]models.RefreshToken
}

func NewMemoryTable() *MemoryTable {
	return &MemoryTable{byHash: make(map[string]models.RefreshToken)}
}

// MemoryRepository implements Repository over a MemoryTable. Writes are
// recorded in the journal, if any, so a surrounding unit of work can undo
// them.
type MemoryRepository struct {
	table   *MemoryTable
	mu      sync.Locker
	journal *dbx.Journal
}

func NewMemoryRepository(table *MemoryTable, mu sync.Locker, journal *dbx.Journal) *MemoryRepository {
	return &MemoryRepository{table: table, mu: mu, journal: journal}
}

func (r *MemoryRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := HashToken(token.Token)
	if _, ok := r.table.byHash[h]; ok {
		return common.ErrorAlreadyExists
	}
	rec := *token
	rec.Token = ""
	r.table.byHash[h] = rec
	r.journal.Record(func() { delete(r.table.byHash, h) })
	return nil
}

func (r *MemoryRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(token)
}

func (r *MemoryRepository) find(token string) (*models.RefreshToken, error) {
	rec, ok := r.table.byHash[HashToken(token)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	rec.Token = token
	return &rec, nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, token string, at time.Time) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := HashToken(token)
	rec, ok := r.table.byHash[h]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if !rec.IsActive(at) {
		rec.Token = token
		return &rec, common.ErrTokenInactive
	}

	prev := rec
	revokedAt := at
	rec.RevokedAt = &revokedAt
	r.table.byHash[h] = rec
	r.journal.Record(func() { r.table.byHash[h] = prev })

	rec.Token = token
	return &rec, nil
}

func (r *MemoryRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for h, rec := range r.table.byHash {
		if rec.UserID != userID || !rec.IsActive(at) {
			continue
		}
		prev := rec
		revokedAt := at
		rec.RevokedAt = &revokedAt
		r.table.byHash[h] = rec
		r.journal.Record(func() { r.table.byHash[h] = prev })
		n++
	}
	return n, nil
}
