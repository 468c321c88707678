package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/textli/internal/flagx"
)

// parseFlags overlays the command-line flags this package owns:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-m string   gRPC health-check bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN
//	-s string   admin JWT HMAC secret
//	-o string   allowed CORS origin
//	-l string   log level
//
// Unknown arguments are filtered out first so other components may define
// their own flags.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-m", "-d", "-s", "-o", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to listen on")
	fs.StringVar(&config.HealthAddrGRPC, "m", config.HealthAddrGRPC, "gRPC health-check address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AdminSecretKey, "s", config.AdminSecretKey, "admin token secret key")
	fs.StringVar(&config.AllowOrigin, "o", config.AllowOrigin, "allowed CORS origin")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}
