// Package logger builds the zap loggers shared by the API server and the MCP
// server, and carries per-request loggers through contexts.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dishola/dishola/internal/version"
)

// ServiceName is attached to every production log entry.
const ServiceName = "dishola"

// Options selects the encoder and level for a process.
type Options struct {
	Env       string // prod, local, dev, docker or test
	Level     string // optional override: debug, info, warn, error
	Component string // api or mcp; empty omits the field
}

// New builds a logger for opts.Env. prod writes JSON, local/dev/docker write
// colored console lines, test only shows warnings. Output always goes to
// stderr, which keeps stdout free for the MCP stdio transport.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	switch opts.Env {
	case "prod":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.InitialFields = map[string]any{
			"service": ServiceName,
			"version": version.Version,
		}
	case "local", "dev", "docker":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	default:
		return nil, fmt.Errorf("logger: unknown environment %q", opts.Env)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("logger: level %q: %w", opts.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	if opts.Component != "" {
		l = l.With(zap.String("component", opts.Component))
	}
	return l, nil
}
