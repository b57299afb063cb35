package services

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/accesstoken"
	"github.com/dmitrijs2005/shopauth/internal/authority/auth"
	"github.com/dmitrijs2005/shopauth/internal/authority/config"
	"github.com/dmitrijs2005/shopauth/internal/authority/keys"
	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/repomanager"
	"github.com/dmitrijs2005/shopauth/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	providerOnce sync.Once
	provider     *keys.Provider
)

func testProvider(t *testing.T) *keys.Provider {
	t.Helper()
	providerOnce.Do(func() {
		var err error
		provider, err = keys.NewProvider(nil, keys.MinKeyBits, 2*time.Hour)
		if err != nil {
			panic(err)
		}
	})
	return provider
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	cfg    *config.Config
	rm     *repomanager.MemoryRepositoryManager
	tokens *TokenService
	users  *UserService
	clock  *clock
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Issuer = "https://auth.shop.local"
	cfg.PasswordHashCost = bcrypt.MinCost
	for _, m := range mutate {
		m(cfg)
	}

	rm := repomanager.NewMemoryRepositoryManager()
	issuer := auth.NewIssuer(testProvider(t), cfg.Issuer, cfg.Audience, cfg.AccessTokenValidityDuration)
	c := &clock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}

	ts := NewTokenService(rm, issuer, cfg, logging.Nop())
	ts.now = c.now

	return &fixture{
		cfg:    cfg,
		rm:     rm,
		tokens: ts,
		users:  NewUserService(rm, cfg, logging.Nop()),
		clock:  c,
	}
}

func (f *fixture) register(t *testing.T, email, password string, extraRoles ...string) string {
	t.Helper()
	u, err := f.users.Register(context.Background(), email, password, password)
	require.NoError(t, err)
	for _, r := range extraRoles {
		require.NoError(t, f.users.AssignRole(context.Background(), u.ID, r))
	}
	return u.ID
}

func parseAccess(t *testing.T, tok string, at time.Time) *accesstoken.Claims {
	t.Helper()
	_, key := testProvider(t).Current()
	claims := &accesstoken.Claims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (interface{}, error) {
		return key.Public().(*rsa.PublicKey), nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithTimeFunc(func() time.Time { return at }))
	require.NoError(t, err)
	return claims
}
