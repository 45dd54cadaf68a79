package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"tables", "-u", "https://api.example", "-k", "anon", "-d", "x.db", "-p", "10", "-l", "out.log", "-v", "debug"},
			expected: &Config{APIURL: "https://api.example", AnonKey: "anon", DatabasePath: "x.db",
				PollInterval: 10 * time.Second, LogFile: "out.log", LogLevel: "debug"},
		},
		{
			name:     "foreign flags ignored",
			args:     []string{"tables", "-c", "cfg.json", "-p", "5"},
			expected: &Config{PollInterval: 5 * time.Second},
		},
		{
			name:     "reset",
			args:     []string{"tables", "-reset", "-d", "x.db"},
			expected: &Config{DatabasePath: "x.db", ResetLocal: true},
		},
		{name: "bad interval", args: []string{"tables", "-p", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cfg := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
