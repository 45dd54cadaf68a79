package config

import (
	"encoding/json"
	"os"

	"github.com/sherryycxie/tables/internal/flagx"
	"github.com/sherryycxie/tables/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Absent keys leave the
// current values untouched.
type JsonConfig struct {
	APIURL            *string         `json:"api_url"`
	AnonKey           *string         `json:"anon_key"`
	DatabasePath      *string         `json:"database_path"`
	PollInterval      *timex.Duration `json:"poll_interval"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	HeartbeatInterval *timex.Duration `json:"heartbeat_interval"`
	LogFile           *string         `json:"log_file"`
	LogLevel          *string         `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c/-config. It panics on read
// or decode errors.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}
	jc.apply(cfg)
}

func (jc JsonConfig) apply(cfg *Config) {
	setString(&cfg.APIURL, jc.APIURL)
	setString(&cfg.AnonKey, jc.AnonKey)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.PollInterval != nil {
		cfg.PollInterval = jc.PollInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.HeartbeatInterval != nil {
		cfg.HeartbeatInterval = jc.HeartbeatInterval.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
