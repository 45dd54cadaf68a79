// Package config loads runtime configuration for the Tables CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. A dotenv file (-e/-env, else ./.env when present) and TABLES_* variables.
//  4. Command-line flags, which override everything above.
//
// Supported flags
//
//	-u string   backend base URL (REST, auth and realtime share it)
//	-k string   project anon key
//	-d string   path of the local SQLite database
//	-p int      notification poll interval (seconds)
//	-l string   log file (empty logs to stderr)
//	-v string   log level
//	-reset      forget the saved session and local archive state on start
//
// JSON intervals use timex.Duration, so "30s" and integer nanoseconds both work:
//
//	{
//	  "api_url": "https://project.example.co",
//	  "anon_key": "public-anon-key",
//	  "poll_interval": "30s"
//	}
package config
