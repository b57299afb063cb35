// Package httpapi exposes the authority over HTTP: account endpoints (login,
// refresh, logout, register), issuer discovery, the published key set, health
// and metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/authority/config"
	"github.com/dmitrijs2005/shopauth/internal/authority/models"
	"github.com/dmitrijs2005/shopauth/internal/authority/services"
	"github.com/dmitrijs2005/shopauth/internal/logging"
	"github.com/dmitrijs2005/shopauth/internal/metrics"
	"github.com/go-jose/go-jose/v4"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// AccountPath prefixes the account endpoints and scopes the refresh cookie.
const AccountPath = "/api/account"

type TokenService interface {
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type UserService interface {
	Register(ctx context.Context, email, password, confirmPassword string) (*models.User, error)
}

// KeySet yields the public keys currently published for verification.
type KeySet interface {
	JWKS() jose.JSONWebKeySet
}

type Server struct {
	address      string
	issuer       string
	cookieSecure bool
	corsOrigins  []string

	tokens  TokenService
	users   UserService
	keys    KeySet
	limiter *ipLimiter
	logger  logging.Logger
}

func NewServer(cfg *config.Config, l logging.Logger, ts TokenService, us UserService, ks KeySet) *Server {
	return &Server{
		address:      cfg.EndpointAddrHTTP,
		issuer:       cfg.Issuer,
		cookieSecure: cfg.CookieSecure,
		corsOrigins:  cfg.CORSAllowedOrigins,
		tokens:       ts,
		users:        us,
		keys:         ks,
		limiter:      newIPLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst),
		logger:       l.With("module", "http_server"),
	}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	account := r.PathPrefix(AccountPath).Subrouter()
	account.Handle("/login", s.limiter.middleware(http.HandlerFunc(s.handleLogin))).Methods(http.MethodPost)
	account.Handle("/register", s.limiter.middleware(http.HandlerFunc(s.handleRegister))).Methods(http.MethodPost)
	account.Handle("/refresh", s.limiter.middleware(http.HandlerFunc(s.handleRefresh))).Methods(http.MethodPost)
	account.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	r.HandleFunc("/.well-known/openid-configuration", s.handleDiscovery).Methods(http.MethodGet)
	r.HandleFunc("/.well-known/jwks.json", s.handleJWKS).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.Use(metrics.Instrument)

	if len(s.corsOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
