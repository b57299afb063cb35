package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, " Carol@Example.com ", "pw", "pw")
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", u.Email)
	assert.Equal(t, []string{RoleUser}, u.Roles)
	assert.NotEqual(t, "pw", u.PasswordHash)

	_, err = f.users.Register(ctx, "carol@example.com", "pw", "pw")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = f.users.Register(ctx, "dave@example.com", "pw", "other")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.users.Register(ctx, "not-an-email", "pw", "pw")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.users.Register(ctx, "erin@example.com", "", "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestEnsureUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.EnsureUser(ctx, "admin@example.com", "Password123!", []string{RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, []string{RoleAdmin}, u.Roles)

	again, err := f.users.EnsureUser(ctx, "admin@example.com", "ignored", []string{RoleAdmin, RoleUser})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.ElementsMatch(t, []string{RoleAdmin, RoleUser}, again.Roles)

	_, err = f.tokens.Login(ctx, "admin@example.com", "Password123!")
	assert.NoError(t, err, "existing password is kept")
}

func TestAssignRole_Validation(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.users.AssignRole(context.Background(), "x", ""), common.ErrorValidation)
	assert.ErrorIs(t, f.users.AssignRole(context.Background(), "missing", RoleAdmin), common.ErrorNotFound)
}
