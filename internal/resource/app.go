// Package resource wires and runs a resource guard: it discovers the
// authority's keys, keeps them fresh, and fronts one resource service with
// token validation and policy checks over HTTP and, optionally, gRPC.
package resource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/logging"
	"github.com/dmitrijs2005/shopauth/internal/resource/config"
	"github.com/dmitrijs2005/shopauth/internal/resource/gateway"
	"github.com/dmitrijs2005/shopauth/internal/resource/grpcapi"
	"github.com/dmitrijs2005/shopauth/internal/resource/guard"
	"github.com/dmitrijs2005/shopauth/internal/resource/keyset"
	"github.com/dmitrijs2005/shopauth/internal/resource/policy"
	"github.com/dmitrijs2005/shopauth/internal/resource/validator"
	"google.golang.org/grpc"
)

const (
	fetchTimeout        = 10 * time.Second
	healthCheckInterval = 10 * time.Second
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	keys     *keyset.KeySet
	guard    *guard.Guard
	routes   []gateway.Route
	upstream *url.URL

	registerGRPC func(*grpc.Server)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel).With("service", c.Service)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	upstream, err := url.Parse(c.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	routes, policies, err := gateway.ForService(c.Service)
	if err != nil {
		return nil, err
	}
	registry, err := policy.NewRegistry(policies...)
	if err != nil {
		return nil, err
	}
	if err := checkMethodPolicies(c.GRPCMethods, registry); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	client := &http.Client{Timeout: fetchTimeout}

	jwksURL := c.JWKSURL
	if jwksURL == "" {
		jwksURL, err = keyset.Discover(ctx, client, c.Issuer)
		if err != nil {
			return nil, err
		}
	}

	keys := keyset.New(jwksURL, c.KeyRetention, client, logger)
	if err := keys.Refresh(ctx); err != nil {
		// the background loop keeps trying; until then every token is rejected
		logger.Warn(ctx, "Initial key set fetch failed", "error", err)
	}

	v := validator.New(keys, validator.Options{
		Service:  c.Service,
		Issuer:   c.Issuer,
		Audience: c.Audience,
		Leeway:   c.ClockSkew,
	})

	return &App{
		config:   c,
		logger:   logger,
		keys:     keys,
		guard:    guard.New(c.Service, v, registry, logger),
		routes:   routes,
		upstream: upstream,
	}, nil
}

// MountGRPC registers resource services on the gRPC listener. Their methods
// are guarded according to the configured method table. Call before Run.
func (app *App) MountGRPC(register func(*grpc.Server)) {
	app.registerGRPC = register
}

// checkMethodPolicies makes sure every guarded gRPC method names a policy
// the service actually has.
func checkMethodPolicies(methods map[string]string, registry *policy.Registry) error {
	for method, name := range methods {
		if name != "" && !registry.Has(name) {
			return fmt.Errorf("grpc method %s: %w: %s", method, common.ErrUnknownPolicy, name)
		}
	}
	return nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gateway.NewServer(app.config.EndpointAddrHTTP, app.upstream, app.routes, app.guard, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := grpcapi.NewGRPCServer(app.config.EndpointAddrGRPC, app.config.Service, app.logger,
		app.guard.UnaryInterceptor(app.config.GRPCMethods), app.keys, app.registerGRPC)

	go func() {
		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.UpdateHealth()
			}
		}
	}()

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "upstream", app.upstream.String())

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.keys.Run(ctx, app.config.KeyRefreshInterval)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}
