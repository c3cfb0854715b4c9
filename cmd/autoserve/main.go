// Package main provides the entry point for autoserve.
//
// autoserve checks automation server configuration against the core schema
// and the schemas of installed extensions, and resolves the effective
// server settings.
//
// Usage:
//
//	autoserve config check --pretty
//	autoserve config show --port 4724 -o yaml
//	autoserve config args --driver uiautomator2
//	autoserve extensions check
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yndnr/autoserve/internal/cli/command"
	"github.com/yndnr/autoserve/internal/core/domain"
	"github.com/yndnr/autoserve/internal/telemetry/logger"
	"github.com/yndnr/autoserve/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		logger.Default().Debug("command failed", "code", domain.CodeOf(err), "error", err)
		command.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	boot, err := command.LoadBootstrap()
	if err != nil {
		return err
	}

	log, err := logger.New(boot.Log)
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	metrics := metric.NewRegistry()
	rt, err := command.NewRuntime(boot.Home, log, metrics)
	if err != nil {
		// Commands report it again once --home is known.
		log.Debug("build runtime", "home", boot.Home, "error", err)
		rt = &command.Runtime{Metrics: metrics}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return command.App(boot, rt).RunContext(ctx, os.Args)
}
