package config

import (
	"testing"
	"time"

	"github.com/shaharia-lab/mcpstdio/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, Config{
		ServerName:         "super-secret-server",
		ServerVersion:      "1.0.0",
		LogDir:             ".logs",
		LogFile:            "mcp-server.log",
		LogLevel:           "debug",
		LogBackend:         "logrus",
		LogConsole:         false,
		MaxConcurrentCalls: 8,
		MaxLineBytes:       4194304,
		ShutdownTimeout:    5 * time.Second,
	}, cfg)
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"MCP_SERVER_NAME":          "vault",
		"MCP_LOG_LEVEL":            "warning",
		"MCP_LOG_BACKEND":          "zap",
		"MCP_LOG_CONSOLE":          "true",
		"MCP_MAX_CONCURRENT_CALLS": "2",
		"MCP_SHUTDOWN_TIMEOUT":     "250ms",
		"MCP_OTEL_ENDPOINT":        "http://collector:4318/v1/traces",
	})
	require.NoError(t, err)

	assert.Equal(t, "vault", cfg.ServerName)
	assert.Equal(t, "zap", cfg.LogBackend)
	assert.True(t, cfg.LogConsole)
	assert.Equal(t, 2, cfg.MaxConcurrentCalls)
	assert.Equal(t, 250*time.Millisecond, cfg.ShutdownTimeout)

	tracing := cfg.TracingOptions()
	assert.Equal(t, "http://collector:4318/v1/traces", tracing.Endpoint)
	assert.Equal(t, "vault", tracing.ServiceName)

	opts, err := cfg.SinkOptions()
	require.NoError(t, err)
	assert.Equal(t, observability.LevelWarn, opts.Level)
	assert.Equal(t, observability.BackendZap, opts.Backend)
	assert.True(t, opts.Console)
}

func TestLoadFromErrors(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "not a number",
			vars:    map[string]string{"MCP_MAX_CONCURRENT_CALLS": "lots"},
			wantErr: "parse env",
		},
		{
			name:    "zero concurrency",
			vars:    map[string]string{"MCP_MAX_CONCURRENT_CALLS": "0"},
			wantErr: "must be positive",
		},
		{
			name:    "negative line limit",
			vars:    map[string]string{"MCP_MAX_LINE_BYTES": "-1"},
			wantErr: "must not be negative",
		},
		{
			name:    "negative shutdown timeout",
			vars:    map[string]string{"MCP_SHUTDOWN_TIMEOUT": "-1s"},
			wantErr: "must not be negative",
		},
		{
			name:    "bad level",
			vars:    map[string]string{"MCP_LOG_LEVEL": "loud"},
			wantErr: `unknown log level "loud"`,
		},
		{
			name:    "bad backend",
			vars:    map[string]string{"MCP_LOG_BACKEND": "syslog"},
			wantErr: `unknown log backend "syslog"`,
		},
		{
			name:    "log file with a path",
			vars:    map[string]string{"MCP_LOG_FILE": "../escape.log"},
			wantErr: "invalid log file name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
