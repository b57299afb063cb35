package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, "", c.DatabaseDSN)
	assert.Equal(t, time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, 30*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, 2048, c.SigningKeyBits)
	assert.False(t, c.RevokeFamilyOnReplay)
	assert.True(t, c.CookieSecure)
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"authority"}

	c := LoadConfig()
	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, 30*24*time.Hour, c.RefreshTokenValidityDuration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "bad issuer", mutate: func(c *Config) { c.Issuer = "not a url" }, errMsg: "issuer"},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTokenValidityDuration = 0 }, errMsg: "access token lifetime"},
		{name: "refresh shorter than access", mutate: func(c *Config) { c.RefreshTokenValidityDuration = time.Minute }, errMsg: "refresh token lifetime"},
		{name: "small key", mutate: func(c *Config) { c.SigningKeyBits = 1024 }, errMsg: "2048"},
		{name: "short overlap", mutate: func(c *Config) { c.KeyOverlap = time.Minute }, errMsg: "key overlap"},
		{name: "half bootstrap", mutate: func(c *Config) { c.BootstrapAdminEmail = "root@example.com" }, errMsg: "bootstrap admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
