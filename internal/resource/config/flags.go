package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/shopauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   HTTP bind address
//	-g string   gRPC bind address; empty disables it
//	-s string   guarded service (orders, catalog)
//	-i string   trusted issuer URL
//	-j string   explicit JWKS URL
//	-u string   upstream base URL
//	-l string   log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-s", "-i", "-j", "-u", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to run grpc server")
	fs.StringVar(&config.Service, "s", config.Service, "guarded service")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "trusted issuer URL")
	fs.StringVar(&config.JWKSURL, "j", config.JWKSURL, "JWKS URL")
	fs.StringVar(&config.UpstreamURL, "u", config.UpstreamURL, "upstream URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
