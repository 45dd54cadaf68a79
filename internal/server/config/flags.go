package config

import (
	"flag"
	"os"

	"github.com/sherryycxie/tables/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-v string   log level
//	-down       roll back the most recent migration
//
// os.Args is filtered with flagx.FilterArgs first so the config file flags
// handled elsewhere do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-v", "-down"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.BoolVar(&config.Down, "down", config.Down, "roll back the last migration")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
