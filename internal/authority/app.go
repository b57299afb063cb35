// Package authority wires and runs the token authority: storage, signing
// keys, token and user services, the HTTP API and background key rotation.
package authority

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/shopauth/internal/authority/auth"
	"github.com/dmitrijs2005/shopauth/internal/authority/config"
	"github.com/dmitrijs2005/shopauth/internal/authority/httpapi"
	"github.com/dmitrijs2005/shopauth/internal/authority/keys"
	"github.com/dmitrijs2005/shopauth/internal/authority/repositories/repomanager"
	"github.com/dmitrijs2005/shopauth/internal/authority/services"
	"github.com/dmitrijs2005/shopauth/internal/logging"
	"github.com/go-jose/go-jose/v4"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// JWKSPublisher mirrors the public key set to an external location.
type JWKSPublisher interface {
	Publish(ctx context.Context, set jose.JSONWebKeySet) error
}

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	keys         *keys.Provider
	tokenService *services.TokenService
	userService  *services.UserService
	publisher    JWKSPublisher
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	app := &App{config: c, logger: logger}

	if c.DatabaseDSN != "" {
		db, err := sql.Open("pgx", c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("db init error: %w", err)
		}
		app.db = db
		app.repomanager = repomanager.NewPostgresRepositoryManager(db, c.TxRetryAttempts, c.TxRetryBase)
	} else {
		logger.Warn(ctx, "No database configured, refresh tokens are kept in memory")
		app.repomanager = repomanager.NewMemoryRepositoryManager()
	}

	if err := app.repomanager.RunMigrations(ctx); err != nil {
		app.close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	key, err := keys.LoadOrCreate(c.SigningKeyFile, c.SigningKeyBits)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("signing key error: %w", err)
	}
	app.keys, err = keys.NewProvider(key, c.SigningKeyBits, c.KeyOverlap)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("signing key error: %w", err)
	}

	issuer := auth.NewIssuer(app.keys, c.Issuer, c.Audience, c.AccessTokenValidityDuration)
	app.tokenService = services.NewTokenService(app.repomanager, issuer, c, logger)
	app.userService = services.NewUserService(app.repomanager, c, logger)

	if c.S3Bucket != "" {
		app.publisher, err = keys.NewS3Publisher(ctx, keys.S3Config{
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Bucket:       c.S3Bucket,
			ObjectKey:    c.S3ObjectKey,
		})
		if err != nil {
			app.close()
			return nil, fmt.Errorf("jwks publisher error: %w", err)
		}
	}

	return app, nil
}

func (app *App) close() {
	if app.db != nil {
		_ = app.db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// bootstrapAdmin makes sure the configured administrator exists and holds
// the Admin role.
func (app *App) bootstrapAdmin(ctx context.Context) error {
	if app.config.BootstrapAdminEmail == "" {
		return nil
	}
	u, err := app.userService.EnsureUser(ctx, app.config.BootstrapAdminEmail, app.config.BootstrapAdminPassword,
		[]string{services.RoleAdmin, services.RoleUser})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	app.logger.Info(ctx, "Bootstrap admin ready", "user_id", u.ID)
	return nil
}

// publishKeys mirrors the key set and is also the rotation callback.
func (app *App) publishKeys(ctx context.Context, set jose.JSONWebKeySet) {
	if app.publisher == nil {
		return
	}
	if err := app.publisher.Publish(ctx, set); err != nil {
		app.logger.Error(ctx, "JWKS publish failed", "error", err)
		return
	}
	app.logger.Info(ctx, "JWKS published", "keys", len(set.Keys))
}

func (app *App) startKeyRotation(ctx context.Context) {
	err := app.keys.Run(ctx, app.config.KeyRotationInterval, func(ctx context.Context, set jose.JSONWebKeySet) {
		kid, _ := app.keys.Current()
		app.logger.Info(ctx, "Signing keys updated", "kid", kid, "next_kid", app.keys.Next())
		app.publishKeys(ctx, set)
	})
	if err != nil {
		app.logger.Error(ctx, err.Error())
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config, app.logger, app.tokenService, app.userService, app.keys)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.bootstrapAdmin(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return
	}

	app.publishKeys(ctx, app.keys.JWKS())

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startKeyRotation(ctx)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}
