package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/shopauth/internal/flagx"
	"github.com/dmitrijs2005/shopauth/internal/timex"
)

// JsonConfig is the on-disk shape of a guard config file.
type JsonConfig struct {
	EndpointAddrHTTP string            `json:"endpoint_addr_http"`
	EndpointAddrGRPC string            `json:"endpoint_addr_grpc"`
	GRPCMethods      map[string]string `json:"grpc_methods"`
	Service          string            `json:"service"`
	UpstreamURL      string            `json:"upstream_url"`
	LogLevel         string            `json:"log_level"`

	Issuer             string         `json:"issuer"`
	JWKSURL            string         `json:"jwks_url"`
	Audience           string         `json:"audience"`
	ClockSkew          timex.Duration `json:"clock_skew"`
	KeyRefreshInterval timex.Duration `json:"key_refresh_interval"`
	KeyRetention       timex.Duration `json:"key_retention"`
}

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
	for dst, v := range map[*string]string{
		&config.EndpointAddrHTTP: c.EndpointAddrHTTP,
		&config.EndpointAddrGRPC: c.EndpointAddrGRPC,
		&config.Service:          c.Service,
		&config.UpstreamURL:      c.UpstreamURL,
		&config.LogLevel:         c.LogLevel,
		&config.Issuer:           c.Issuer,
		&config.JWKSURL:          c.JWKSURL,
		&config.Audience:         c.Audience,
	} {
		if v != "" {
			*dst = v
		}
	}

	if len(c.GRPCMethods) > 0 {
		config.GRPCMethods = c.GRPCMethods
	}
	if c.ClockSkew.IsSet() {
		config.ClockSkew = c.ClockSkew.Duration
	}
	if c.KeyRefreshInterval.IsSet() {
		config.KeyRefreshInterval = c.KeyRefreshInterval.Duration
	}
	if c.KeyRetention.IsSet() {
		config.KeyRetention = c.KeyRetention.Duration
	}
}
