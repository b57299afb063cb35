package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/flagx"
	"github.com/dmitrijs2005/shopauth/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// strings such as "30m" and integer nanoseconds. Pointer and zero-valued
// fields that are absent leave the current setting untouched.
type JsonConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	DatabaseDSN      string `json:"database_dsn"`
	LogLevel         string `json:"log_level"`

	Issuer                       string         `json:"issuer"`
	Audience                     []string       `json:"audience"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RevokeFamilyOnReplay         *bool          `json:"revoke_family_on_replay"`

	SigningKeyFile      string         `json:"signing_key_file"`
	SigningKeyBits      int            `json:"signing_key_bits"`
	KeyRotationInterval timex.Duration `json:"key_rotation_interval"`
	KeyOverlap          timex.Duration `json:"key_overlap"`

	PasswordHashCost       int    `json:"password_hash_cost"`
	BootstrapAdminEmail    string `json:"bootstrap_admin_email"`
	BootstrapAdminPassword string `json:"bootstrap_admin_password"`

	LoginRateLimit     *float64 `json:"login_rate_limit"`
	LoginRateBurst     *int     `json:"login_rate_burst"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins"`
	CookieSecure       *bool    `json:"cookie_secure"`

	TxRetryAttempts uint64         `json:"tx_retry_attempts"`
	TxRetryBase     timex.Duration `json:"tx_retry_base"`

	S3Bucket       string `json:"s3_bucket"`
	S3ObjectKey    string `json:"s3_object_key"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
}

// parseJson loads the file named by -c/-config, if any, into config.
// An unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.Issuer, c.Issuer)
	if c.Audience != nil {
		config.Audience = c.Audience
	}
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	if c.RevokeFamilyOnReplay != nil {
		config.RevokeFamilyOnReplay = *c.RevokeFamilyOnReplay
	}

	setString(&config.SigningKeyFile, c.SigningKeyFile)
	if c.SigningKeyBits != 0 {
		config.SigningKeyBits = c.SigningKeyBits
	}
	setDuration(&config.KeyRotationInterval, c.KeyRotationInterval)
	setDuration(&config.KeyOverlap, c.KeyOverlap)

	if c.PasswordHashCost != 0 {
		config.PasswordHashCost = c.PasswordHashCost
	}
	setString(&config.BootstrapAdminEmail, c.BootstrapAdminEmail)
	setString(&config.BootstrapAdminPassword, c.BootstrapAdminPassword)

	if c.LoginRateLimit != nil {
		config.LoginRateLimit = *c.LoginRateLimit
	}
	if c.LoginRateBurst != nil {
		config.LoginRateBurst = *c.LoginRateBurst
	}
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}

	if c.TxRetryAttempts != 0 {
		config.TxRetryAttempts = c.TxRetryAttempts
	}
	setDuration(&config.TxRetryBase, c.TxRetryBase)

	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3ObjectKey, c.S3ObjectKey)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.IsSet() {
		*dst = v.Duration
	}
}
