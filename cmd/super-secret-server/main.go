package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaharia-lab/mcpstdio/config"
	"github.com/shaharia-lab/mcpstdio/mcp"
	"github.com/shaharia-lab/mcpstdio/observability"
	"github.com/shaharia-lab/mcpstdio/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "super-secret-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sinkOpts, err := cfg.SinkOptions()
	if err != nil {
		return err
	}
	sink, err := observability.NewFileSink(sinkOpts)
	if err != nil {
		return err
	}
	defer sink.Close()

	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.TracingOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			sink.WithErr(err).Error("Failed to flush traces")
		}
	}()

	registry := mcp.NewToolRegistry()
	if err := tools.Register(registry, tools.NewPassphrase()); err != nil {
		return err
	}

	baseServer, err := mcp.NewBaseServer(registry,
		mcp.UseLogger(sink),
		mcp.UseServerInfo(cfg.ServerName, cfg.ServerVersion),
		mcp.UseMaxConcurrentCalls(cfg.MaxConcurrentCalls),
		mcp.UseMaxLineBytes(cfg.MaxLineBytes),
		mcp.UseDrainTimeout(cfg.ShutdownTimeout),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink.Info("Super Secret MCP server running on stdio")

	server := mcp.NewStdIOServer(baseServer, os.Stdin, os.Stdout)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		sink.WithErr(err).Error("Server stopped")
		return err
	}
	return nil
}
