package config

import "github.com/caarlos0/env/v11"

// EnvPrefix namespaces every environment variable a guard reads.
const EnvPrefix = "GUARD_"

func parseEnv(config *Config) {
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
