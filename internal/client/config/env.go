package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sherryycxie/tables/internal/flagx"
)

const envPrefix = "TABLES_"

// parseEnv loads a dotenv file (if any) into the process environment and
// overlays TABLES_* variables. Existing variables win over the file. A bad
// duration panics, like the other loaders.
func parseEnv(cfg *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	lookupString(&cfg.APIURL, "API_URL")
	lookupString(&cfg.AnonKey, "ANON_KEY")
	lookupString(&cfg.DatabasePath, "DB_PATH")
	lookupString(&cfg.LogFile, "LOG_FILE")
	lookupString(&cfg.LogLevel, "LOG_LEVEL")
	lookupDuration(&cfg.PollInterval, "POLL_INTERVAL")
	lookupDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	lookupDuration(&cfg.HeartbeatInterval, "HEARTBEAT_INTERVAL")
}

func lookupString(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

func lookupDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
