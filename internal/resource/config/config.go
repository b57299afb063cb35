// Package config handles configuration for a resource guard: defaults, a
// JSON file overlay, environment variables and command-line flags, applied
// in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Services a guard can front.
const (
	ServiceOrders  = "orders"
	ServiceCatalog = "catalog"
)

// Config holds runtime settings for a guard.
//
// An empty JWKSURL makes the guard locate the key set through the issuer's
// discovery document. An empty Audience disables audience checks. An empty
// EndpointAddrGRPC disables the gRPC listener. GRPCMethods maps full gRPC
// method names to the policy guarding them; an empty policy only requires
// authentication and unlisted methods are not guarded.
type Config struct {
	EndpointAddrHTTP string            `env:"ADDRESS"`
	EndpointAddrGRPC string            `env:"GRPC_ADDRESS"`
	GRPCMethods      map[string]string `env:"GRPC_METHODS" envKeyValSeparator:"="`
	Service          string            `env:"SERVICE"`
	UpstreamURL      string            `env:"UPSTREAM_URL"`
	LogLevel         string            `env:"LOG_LEVEL"`

	Issuer             string        `env:"ISSUER"`
	JWKSURL            string        `env:"JWKS_URL"`
	Audience           string        `env:"AUDIENCE"`
	ClockSkew          time.Duration `env:"CLOCK_SKEW"`
	KeyRefreshInterval time.Duration `env:"KEY_REFRESH_INTERVAL"`
	KeyRetention       time.Duration `env:"KEY_RETENTION"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8081"
	c.EndpointAddrGRPC = ""
	c.GRPCMethods = nil
	c.Service = ServiceOrders
	c.UpstreamURL = "http://localhost:5001"
	c.LogLevel = "info"
	c.Issuer = "http://localhost:8080"
	c.JWKSURL = ""
	c.Audience = ""
	c.ClockSkew = 0
	c.KeyRefreshInterval = 5 * time.Minute
	c.KeyRetention = 2 * time.Hour
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// Validate rejects settings the guard cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.EndpointAddrHTTP == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.Service != ServiceOrders && c.Service != ServiceCatalog {
		errs = append(errs, fmt.Errorf("unknown service %q", c.Service))
	}
	if !absoluteURL(c.Issuer) {
		errs = append(errs, fmt.Errorf("issuer %q is not an absolute URL", c.Issuer))
	}
	if c.JWKSURL != "" && !absoluteURL(c.JWKSURL) {
		errs = append(errs, fmt.Errorf("jwks url %q is not an absolute URL", c.JWKSURL))
	}
	if !absoluteURL(c.UpstreamURL) {
		errs = append(errs, fmt.Errorf("upstream %q is not an absolute URL", c.UpstreamURL))
	}
	for method := range c.GRPCMethods {
		if !strings.HasPrefix(method, "/") || strings.Count(method, "/") != 2 {
			errs = append(errs, fmt.Errorf("grpc method %q is not a full method name", method))
		}
	}
	if c.ClockSkew < 0 {
		errs = append(errs, errors.New("clock skew must not be negative"))
	}
	if c.KeyRefreshInterval <= 0 {
		errs = append(errs, errors.New("key refresh interval must be positive"))
	}
	if c.KeyRetention < c.KeyRefreshInterval {
		errs = append(errs, errors.New("key retention must cover the refresh interval"))
	}

	return errors.Join(errs...)
}

func absoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
