package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/dmitrijs2005/shopauth/internal/accesstoken"
	"github.com/dmitrijs2005/shopauth/internal/authority/config"
	"github.com/dmitrijs2005/shopauth/internal/authority/models"
	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/repomanager"
	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/cryptox"
	"github.com/dmitrijs2005/shopauth/internal/logging"
)

const (
	RoleAdmin          = accesstoken.RoleAdmin
	RoleUser           = accesstoken.RoleUser
	RoleProductManager = accesstoken.RoleProductManager
	RoleOrderManager   = accesstoken.RoleOrderManager
)

// DefaultRoles are granted to every self-registered user.
var DefaultRoles = []string{RoleUser}

type UserService struct {
	repomanager repomanager.RepositoryManager
	hashCost    int
	logger      logging.Logger
}

func NewUserService(m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		repomanager: m,
		hashCost:    cfg.PasswordHashCost,
		logger:      logger.With("module", "users"),
	}
}

// Register creates a user with DefaultRoles. A password that does not match
// its confirmation, an invalid email or an empty password yield
// common.ErrorValidation; a taken email yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, password, confirmPassword string) (*models.User, error) {
	if password != confirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", common.ErrorValidation)
	}
	return s.create(ctx, email, password, DefaultRoles)
}

// AssignRole grants role to an existing user.
func (s *UserService) AssignRole(ctx context.Context, userID, role string) error {
	if role == "" {
		return fmt.Errorf("%w: empty role", common.ErrorValidation)
	}
	if err := s.repomanager.Users().AssignRole(ctx, userID, role); err != nil {
		return err
	}
	s.logger.Info(ctx, "role assigned", "user_id", userID, "role", role)
	return nil
}

// EnsureUser creates the user with the given roles if the email is unknown,
// and otherwise grants any of the roles the user lacks. The password of an
// existing user is left unchanged.
func (s *UserService) EnsureUser(ctx context.Context, email, password string, roles []string) (*models.User, error) {
	var out *models.User
	err := s.repomanager.WithinTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		user, err := repos.Users().GetByEmail(ctx, NormalizeEmail(email))
		if errors.Is(err, common.ErrorNotFound) {
			out, err = s.createIn(ctx, repos, email, password, roles)
			return err
		}
		if err != nil {
			return err
		}

		for _, role := range roles {
			if user.HasRole(role) {
				continue
			}
			if err := repos.Users().AssignRole(ctx, user.ID, role); err != nil {
				return err
			}
			user.Roles = append(user.Roles, role)
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *UserService) create(ctx context.Context, email, password string, roles []string) (*models.User, error) {
	var out *models.User
	err := s.repomanager.WithinTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		var err error
		out, err = s.createIn(ctx, repos, email, password, roles)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user registered", "user_id", out.ID)
	return out, nil
}

func (s *UserService) createIn(ctx context.Context, repos repomanager.Repositories, email, password string, roles []string) (*models.User, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", common.ErrorValidation)
	}

	hash, err := cryptox.HashPassword(password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	return repos.Users().Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Roles:        append([]string(nil), roles...),
	})
}
