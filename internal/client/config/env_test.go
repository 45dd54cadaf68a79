package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_Variables(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"tables"}

	t.Setenv("TABLES_API_URL", "https://env.example")
	t.Setenv("TABLES_POLL_INTERVAL", "45s")

	cfg := &Config{}
	parseEnv(cfg)

	assert.Equal(t, "https://env.example", cfg.APIURL)
	assert.Equal(t, 45*time.Second, cfg.PollInterval)
}

func TestParseEnv_DotenvFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TABLES_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("TABLES_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("TABLES_LOG_LEVEL"))
	os.Args = []string{"tables", "-e", path}

	cfg := &Config{LogLevel: "info"}
	parseEnv(cfg)

	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseEnv_BadDurationPanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"tables"}

	t.Setenv("TABLES_REQUEST_TIMEOUT", "later")
	require.Panics(t, func() { parseEnv(&Config{}) })
}
