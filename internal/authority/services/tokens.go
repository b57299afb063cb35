// Package services contains the authority's business logic. TokenService
// handles login, refresh token rotation and logout; UserService handles
// registration and role assignment.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/authority/auth"
	"github.com/dmitrijs2005/shopauth/internal/authority/config"
	"github.com/dmitrijs2005/shopauth/internal/authority/models"
	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/refreshtokens"
	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/repomanager"
	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/cryptox"
	"github.com/dmitrijs2005/shopauth/internal/logging"
	"github.com/dmitrijs2005/shopauth/internal/metrics"
	"github.com/google/uuid"
)

// refreshTokenBytes is the entropy of a refresh token value (256 bits).
const refreshTokenBytes = 32

// TokenPair bundles a short-lived access token and a long-lived refresh token
// with their expiries.
type TokenPair struct {
	IssuedAt         time.Time
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type TokenService struct {
	repomanager          repomanager.RepositoryManager
	issuer               *auth.Issuer
	refreshTTL           time.Duration
	revokeFamilyOnReplay bool
	hashCost             int
	logger               logging.Logger

	now           func() time.Time
	newTokenValue func() (string, error)
}

func NewTokenService(m repomanager.RepositoryManager, issuer *auth.Issuer, cfg *config.Config, logger logging.Logger) *TokenService {
	return &TokenService{
		repomanager:          m,
		issuer:               issuer,
		refreshTTL:           cfg.RefreshTokenValidityDuration,
		revokeFamilyOnReplay: cfg.RevokeFamilyOnReplay,
		hashCost:             cfg.PasswordHashCost,
		logger:               logger.With("module", "tokens"),
		now:                  func() time.Time { return time.Now().UTC() },
		newTokenValue:        func() (string, error) { return common.MakeRandHexString(refreshTokenBytes) },
	}
}

// Login verifies the password and issues a new token pair. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials after comparable work.
func (s *TokenService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users().GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.BurnPasswordCheck(password, s.hashCost)
			metrics.LoginsTotal.WithLabelValues("unauthorized").Inc()
			return nil, common.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageFailure, err)
	}

	if !cryptox.CheckPassword(user.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("unauthorized").Inc()
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, s.repomanager.RefreshTokens(), user, s.now())
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return pair, nil
}

// Refresh exchanges an active refresh token for a new pair. Revoking the
// presented token and storing its successor happen in one unit of work, so a
// failure leaves the presented token active and concurrent presentations of
// one value produce exactly one success.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		metrics.RefreshRotationsTotal.WithLabelValues("malformed").Inc()
		return nil, common.ErrMissingOrMalformedToken
	}

	var (
		pair     *TokenPair
		inactive *models.RefreshToken
	)
	err := s.repomanager.WithinTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		pair, inactive = nil, nil
		now := s.now()

		old, err := repos.RefreshTokens().Revoke(ctx, refreshToken, now)
		if err != nil {
			if errors.Is(err, common.ErrTokenInactive) {
				inactive = old
			}
			return err
		}

		user, err := repos.Users().GetByID(ctx, old.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("owner %s of refresh token missing: %w", old.UserID, common.ErrorInternal)
			}
			return err
		}

		pair, err = s.issue(ctx, repos.RefreshTokens(), user, now)
		return err
	})

	switch {
	case err == nil:
		metrics.RefreshRotationsTotal.WithLabelValues("success").Inc()
		s.logger.Debug(ctx, "refresh token rotated", "token", common.Fingerprint(refreshToken))
		return pair, nil
	case errors.Is(err, common.ErrorNotFound):
		metrics.RefreshRotationsTotal.WithLabelValues("not_found").Inc()
		return nil, common.ErrTokenNotFound
	case errors.Is(err, common.ErrTokenInactive):
		metrics.RefreshRotationsTotal.WithLabelValues("inactive").Inc()
		if inactive != nil && inactive.IsRevoked() {
			s.onReplay(ctx, inactive)
		}
		return nil, common.ErrTokenInactive
	default:
		metrics.RefreshRotationsTotal.WithLabelValues("error").Inc()
		s.logger.Error(ctx, "refresh token rotation failed", "error", err)
		if errors.Is(err, common.ErrorInternal) || errors.Is(err, common.ErrStorageFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorageFailure, err)
	}
}

// onReplay handles presentation of a token that was already revoked.
func (s *TokenService) onReplay(ctx context.Context, rec *models.RefreshToken) {
	metrics.RefreshReplaysTotal.Inc()
	s.logger.Warn(ctx, "revoked refresh token presented",
		"user_id", rec.UserID, "token_id", rec.ID, "revoked_at", rec.RevokedAt)

	if !s.revokeFamilyOnReplay {
		return
	}

	n, err := s.repomanager.RefreshTokens().RevokeAllForUser(ctx, rec.UserID, s.now())
	if err != nil {
		s.logger.Error(ctx, "revoking refresh tokens after replay failed", "user_id", rec.UserID, "error", err)
		return
	}
	s.logger.Warn(ctx, "refresh tokens revoked after replay", "user_id", rec.UserID, "count", n)
}

// Logout revokes the presented refresh token if it is still active. Unknown
// and inactive tokens are not an error.
func (s *TokenService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	_, err := s.repomanager.RefreshTokens().Revoke(ctx, refreshToken, s.now())
	switch {
	case err == nil:
		s.logger.Debug(ctx, "refresh token revoked on logout", "token", common.Fingerprint(refreshToken))
		return nil
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrTokenInactive):
		return nil
	default:
		return fmt.Errorf("%w: %v", common.ErrStorageFailure, err)
	}
}

func (s *TokenService) issue(ctx context.Context, repo refreshtokens.Repository, user *models.User, now time.Time) (*TokenPair, error) {
	access, accessExp, err := s.issuer.Issue(user, now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", common.ErrorInternal)
	}

	value, err := s.newTokenValue()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", common.ErrorInternal)
	}

	rec := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	return &TokenPair{
		IssuedAt:         now,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     value,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// NormalizeEmail trims and lower-cases an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
