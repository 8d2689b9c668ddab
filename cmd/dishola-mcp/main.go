// Command dishola-mcp serves dish search as MCP tools over stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/app"
	"github.com/dishola/dishola/internal/config"
	logpkg "github.com/dishola/dishola/internal/logger"
	mcpTransport "github.com/dishola/dishola/internal/transport/mcp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dishola-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	env := config.GetEnv()
	if env != "prod" {
		_ = godotenv.Load()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(logpkg.Options{Env: env, Level: cfg.Logging.Level, Component: "mcp"})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer a.Close()

	logger.Info("Starting MCP server", zap.String("env", env))
	if err := mcpTransport.NewServer(a.Search, a.Locate, a.Usage, logger).Serve(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
