package resource

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/resource/config"
	"github.com/dmitrijs2005/shopauth/internal/resource/policy"
	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func fakeAuthority(t *testing.T) *httptest.Server {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   srv.URL,
			"jwks_uri": srv.URL + "/.well-known/jwks.json",
		})
	})
	mux.HandleFunc("/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
			{Key: &key.PublicKey, KeyID: "k1", Algorithm: "RS256", Use: "sig"},
		}})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewApp_DiscoversKeys(t *testing.T) {
	auth := fakeAuthority(t)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Issuer = auth.URL
	cfg.Service = config.ServiceCatalog

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, app.keys.Len())
	assert.Len(t, app.routes, 6)
}

func TestNewApp_ExplicitJWKSURL(t *testing.T) {
	auth := fakeAuthority(t)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Issuer = "https://auth.shop.local"
	cfg.JWKSURL = auth.URL + "/.well-known/jwks.json"

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, app.keys.Len())
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Service = "payments"

	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewApp_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Issuer = srv.URL

	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewApp_GRPCMethodUnknownPolicy(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Service = config.ServiceOrders
	cfg.GRPCMethods = map[string]string{"/shop.orders.v1.Orders/ListOrders": policy.AdminOrProductManager}

	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownPolicy)
}

func TestNewApp_GRPCMethodsAreGuarded(t *testing.T) {
	auth := fakeAuthority(t)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Issuer = auth.URL
	cfg.GRPCMethods = map[string]string{healthpb.Health_Check_FullMethodName: policy.Admin}

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)

	mounted := false
	app.MountGRPC(func(*grpc.Server) { mounted = true })
	require.NotNil(t, app.registerGRPC)
	app.registerGRPC(nil)
	assert.True(t, mounted)

	intercept := app.guard.UnaryInterceptor(app.config.GRPCMethods)
	called := false
	handler := func(ctx context.Context, req any) (any, error) {
		called = true
		return nil, nil
	}

	_, err = intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: healthpb.Health_Check_FullMethodName}, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.False(t, called)

	_, err = intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: healthpb.Health_Watch_FullMethodName}, handler)
	assert.NoError(t, err)
	assert.True(t, called, "unlisted methods pass through")
}
