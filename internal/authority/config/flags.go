package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/shopauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN; empty keeps records in memory
//	-i string   issuer URL stamped into tokens
//	-k string   PEM file holding the RSA signing key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-l string   log level
//
// Only the flags above are taken from os.Args (see flagx.FilterArgs), so the
// JSON config flag can share the command line.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-i", "-k", "-t", "-r", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer URL")
	fs.StringVar(&config.SigningKeyFile, "k", config.SigningKeyFile, "signing key PEM file")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
