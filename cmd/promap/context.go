package main

import (
	"log/slog"
	"strings"

	"promap/internal/config"
	"promap/internal/gateway"
	"promap/internal/workflow"
)

type commandContext struct {
	configFlag string
	logLevel   string
	logFormat  string

	// runner and logger replace the production gateway and run logger in tests.
	runner gateway.Runner
	logger *slog.Logger
}

// configPath prefers a positional argument over --config.
func (c *commandContext) configPath(args []string) string {
	if len(args) > 0 {
		if path := strings.TrimSpace(args[0]); path != "" {
			return path
		}
	}
	return strings.TrimSpace(c.configFlag)
}

func (c *commandContext) loadConfig(args []string) (*config.Config, string, bool, error) {
	cfg, path, exists, err := config.Load(c.configPath(args))
	if err != nil {
		return nil, path, exists, err
	}
	if err := workflow.ApplyLogOverrides(cfg, c.logLevel, c.logFormat); err != nil {
		return nil, path, exists, err
	}
	return cfg, path, exists, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
