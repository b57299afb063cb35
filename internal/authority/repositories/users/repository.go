// Package users declares the credential store contract and its PostgreSQL
// and in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/shopauth/internal/authority/models"
)

type Repository interface {
	// Create stores user with its roles and returns it with ID and CreatedAt
	// filled. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// AssignRole grants role to the user. Granting a held role is a no-op.
	AssignRole(ctx context.Context, userID, role string) error
}
