package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/sherryycxie/tables/internal/flagx"
)

const envPrefix = "TABLES_"

// parseEnv loads a dotenv file (if any) and overlays TABLES_DATABASE_DSN and
// TABLES_LOG_LEVEL. Existing variables win over the file.
func parseEnv(cfg *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	if v, ok := os.LookupEnv(envPrefix + "DATABASE_DSN"); ok {
		cfg.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv(envPrefix + "LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
}
