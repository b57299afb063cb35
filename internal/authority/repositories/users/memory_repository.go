package users

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/authority/models"
	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/dbx"
	"github.com/google/uuid"
)

// MemoryTable holds users keyed by ID with an email index. Access is
// serialized by the repositories built over it.
type MemoryTable struct {
	byID    map[string]models.User
	byEmail map[string]string
}

func NewMemoryTable() *MemoryTable {
	return &MemoryTable{byID: make(map[string]models.User), byEmail: make(map[string]string)}
}

type MemoryRepository struct {
	table   *MemoryTable
	mu      sync.Locker
	journal *dbx.Journal
	now     func() time.Time
}

func NewMemoryRepository(table *MemoryTable, mu sync.Locker, journal *dbx.Journal) *MemoryRepository {
	return &MemoryRepository{table: table, mu: mu, journal: journal, now: time.Now}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.table.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = r.now().UTC()

	rec := *user
	rec.Roles = nil
	for _, role := range user.Roles {
		if !slices.Contains(rec.Roles, role) {
			rec.Roles = append(rec.Roles, role)
		}
	}
	slices.Sort(rec.Roles)

	id, email := rec.ID, rec.Email
	r.table.byID[id] = rec
	r.table.byEmail[email] = id
	r.journal.Record(func() {
		delete(r.table.byID, id)
		delete(r.table.byEmail, email)
	})

	out := rec
	out.Roles = slices.Clone(rec.Roles)
	return &out, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.table.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.get(id)
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *MemoryRepository) AssignRole(ctx context.Context, userID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.table.byID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	if slices.Contains(rec.Roles, role) {
		return nil
	}

	prev := rec
	rec.Roles = append(slices.Clone(rec.Roles), role)
	slices.Sort(rec.Roles)
	r.table.byID[userID] = rec
	r.journal.Record(func() { r.table.byID[userID] = prev })
	return nil
}

func (r *MemoryRepository) get(id string) (*models.User, error) {
	rec, ok := r.table.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	rec.Roles = slices.Clone(rec.Roles)
	return &rec, nil
}
