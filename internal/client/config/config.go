package config

import "time"

// Config holds runtime settings for the Tables client.
type Config struct {
	APIURL            string
	AnonKey           string
	DatabasePath      string
	PollInterval      time.Duration
	RequestTimeout    time.Duration
	HeartbeatInterval time.Duration
	LogFile           string
	LogLevel          string
	ResetLocal        bool
}

// LoadDefaults populates c with local-development defaults.
func (c *Config) LoadDefaults() {
	c.APIURL = "http://127.0.0.1:54321"
	c.AnonKey = ""
	c.DatabasePath = "tables.db"
	c.PollInterval = 30 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.HeartbeatInterval = 25 * time.Second
	c.LogFile = "tables.log"
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then JSON, environment and flags in that order.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
