package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/sherryycxie/tables/internal/flagx"
)

// parseFlags overlays cfg with the flags documented in the package comment.
// Only those flags are taken from os.Args; everything else is ignored.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-u", "-k", "-d", "-p", "-l", "-v", "-reset"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIURL, "u", cfg.APIURL, "backend base URL")
	fs.StringVar(&cfg.AnonKey, "k", cfg.AnonKey, "project anon key")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	poll := fs.Int("p", int(cfg.PollInterval.Seconds()), "notification poll interval (in seconds)")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "log file")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.ResetLocal, "reset", cfg.ResetLocal, "forget the saved session and local archive state")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PollInterval = time.Duration(*poll) * time.Second
}
