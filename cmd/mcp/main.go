package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/aisearch/internal/app"
	"github.com/utafrali/aisearch/internal/config"
	"github.com/utafrali/aisearch/internal/mcpserver"
	"github.com/utafrali/aisearch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// stdout carries the MCP protocol, so logs go to stderr.
	log := logger.NewWithWriter("aisearch-mcp", cfg.LogLevel, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("mcp server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	components, err := app.NewComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer components.Close()

	if err := components.Bootstrap(ctx); err != nil {
		return err
	}

	srv := mcpserver.NewServer(components.Search, components.Synonyms, components.Beta, log)
	log.Info("mcp server listening on stdio", slog.String("read_alias", cfg.ReadAlias))
	return srv.Serve(ctx)
}
