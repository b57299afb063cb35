package config

import "github.com/caarlos0/env/v11"

// EnvPrefix namespaces every environment variable the authority reads.
const EnvPrefix = "AUTHORITY_"

// parseEnv overlays AUTHORITY_* environment variables onto config. Unset
// variables leave the current value in place.
func parseEnv(config *Config) {
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
