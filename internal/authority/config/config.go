// Package config handles configuration for the token authority: defaults,
// a JSON file overlay, environment variables and command-line flags, applied
// in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds runtime settings for the authority.
//
// An empty DatabaseDSN selects the in-memory store, which keeps refresh
// tokens only for the life of the process. An empty SigningKeyFile makes the
// authority generate an ephemeral key on start. An empty S3Bucket disables
// mirroring the JWKS document to object storage.
type Config struct {
	EndpointAddrHTTP string `env:"ADDRESS"`
	DatabaseDSN      string `env:"DATABASE_DSN"`
	LogLevel         string `env:"LOG_LEVEL"`

	Issuer                       string        `env:"ISSUER"`
	Audience                     []string      `env:"AUDIENCE" envSeparator:","`
	AccessTokenValidityDuration  time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"REFRESH_TOKEN_TTL"`
	RevokeFamilyOnReplay         bool          `env:"REVOKE_FAMILY_ON_REPLAY"`

	SigningKeyFile      string        `env:"SIGNING_KEY_FILE"`
	SigningKeyBits      int           `env:"SIGNING_KEY_BITS"`
	KeyRotationInterval time.Duration `env:"KEY_ROTATION_INTERVAL"`
	KeyOverlap          time.Duration `env:"KEY_OVERLAP"`

	PasswordHashCost       int    `env:"PASSWORD_HASH_COST"`
	BootstrapAdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`

	LoginRateLimit     float64  `env:"LOGIN_RATE_LIMIT"`
	LoginRateBurst     int      `env:"LOGIN_RATE_BURST"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CookieSecure       bool     `env:"COOKIE_SECURE"`

	TxRetryAttempts uint64        `env:"TX_RETRY_ATTEMPTS"`
	TxRetryBase     time.Duration `env:"TX_RETRY_BASE"`

	S3Bucket       string `env:"S3_BUCKET"`
	S3ObjectKey    string `env:"S3_OBJECT_KEY"`
	S3Region       string `env:"S3_REGION"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.LogLevel = "info"
	c.Issuer = "http://localhost:8080"
	c.Audience = nil
	c.AccessTokenValidityDuration = time.Hour
	c.RefreshTokenValidityDuration = 30 * 24 * time.Hour
	c.RevokeFamilyOnReplay = false
	c.SigningKeyBits = 2048
	c.KeyRotationInterval = 0
	c.KeyOverlap = 2 * time.Hour
	c.PasswordHashCost = 12
	c.LoginRateLimit = 1
	c.LoginRateBurst = 5
	c.CookieSecure = true
	c.TxRetryAttempts = 3
	c.TxRetryBase = 10 * time.Millisecond
	c.S3Region = "us-east-1"
	c.S3ObjectKey = ".well-known/jwks.json"
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

// Validate rejects settings the authority cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.EndpointAddrHTTP == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if u, err := url.Parse(c.Issuer); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("issuer %q is not an absolute URL", c.Issuer))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token lifetime must be positive"))
	}
	if c.RefreshTokenValidityDuration <= c.AccessTokenValidityDuration {
		errs = append(errs, errors.New("refresh token lifetime must exceed access token lifetime"))
	}
	if c.SigningKeyBits < 2048 {
		errs = append(errs, errors.New("signing key must be at least 2048 bits"))
	}
	if c.KeyOverlap < c.AccessTokenValidityDuration {
		errs = append(errs, errors.New("key overlap must cover the access token lifetime"))
	}
	if c.KeyRotationInterval < 0 {
		errs = append(errs, errors.New("key rotation interval must not be negative"))
	}
	if c.LoginRateLimit < 0 || c.LoginRateBurst < 0 {
		errs = append(errs, errors.New("login rate limit must not be negative"))
	}
	if (c.BootstrapAdminEmail == "") != (c.BootstrapAdminPassword == "") {
		errs = append(errs, errors.New("bootstrap admin needs both email and password"))
	}

	return errors.Join(errs...)
}
