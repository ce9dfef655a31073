// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shaharia-lab/mcpstdio/observability"
)

// Config holds everything the server binary reads at startup.
type Config struct {
	ServerName    string `env:"MCP_SERVER_NAME"    envDefault:"super-secret-server"`
	ServerVersion string `env:"MCP_SERVER_VERSION" envDefault:"1.0.0"`

	LogDir     string `env:"MCP_LOG_DIR"     envDefault:".logs"`
	LogFile    string `env:"MCP_LOG_FILE"    envDefault:"mcp-server.log"`
	LogLevel   string `env:"MCP_LOG_LEVEL"   envDefault:"debug"`
	LogBackend string `env:"MCP_LOG_BACKEND" envDefault:"logrus"`
	LogConsole bool   `env:"MCP_LOG_CONSOLE" envDefault:"false"`

	MaxConcurrentCalls int           `env:"MCP_MAX_CONCURRENT_CALLS" envDefault:"8"`
	MaxLineBytes       int           `env:"MCP_MAX_LINE_BYTES"       envDefault:"4194304"`
	ShutdownTimeout    time.Duration `env:"MCP_SHUTDOWN_TIMEOUT"     envDefault:"5s"`

	// OTLPEndpoint is an OTLP/HTTP traces URL. Empty disables export.
	OTLPEndpoint string `env:"MCP_OTEL_ENDPOINT"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom reads configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.ServerName == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	if c.LogFile == "" || filepath.Base(c.LogFile) != c.LogFile {
		return fmt.Errorf("invalid log file name %q", c.LogFile)
	}
	if _, err := observability.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogBackend {
	case observability.BackendLogrus, observability.BackendZap:
	default:
		return fmt.Errorf("unknown log backend %q", c.LogBackend)
	}
	if c.MaxConcurrentCalls <= 0 {
		return fmt.Errorf("MCP_MAX_CONCURRENT_CALLS must be positive, got %d", c.MaxConcurrentCalls)
	}
	if c.MaxLineBytes < 0 {
		return fmt.Errorf("MCP_MAX_LINE_BYTES must not be negative, got %d", c.MaxLineBytes)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("MCP_SHUTDOWN_TIMEOUT must not be negative, got %s", c.ShutdownTimeout)
	}
	return nil
}

// SinkOptions maps the logging settings onto a file sink.
func (c Config) SinkOptions() (observability.SinkOptions, error) {
	level, err := observability.ParseLevel(c.LogLevel)
	if err != nil {
		return observability.SinkOptions{}, err
	}
	return observability.SinkOptions{
		Dir:     c.LogDir,
		File:    c.LogFile,
		Level:   level,
		Backend: c.LogBackend,
		Console: c.LogConsole,
	}, nil
}

// TracingOptions maps the tracing settings onto a tracer provider.
func (c Config) TracingOptions() observability.TracingOptions {
	return observability.TracingOptions{
		Endpoint:       c.OTLPEndpoint,
		ServiceName:    c.ServerName,
		ServiceVersion: c.ServerVersion,
	}
}
